package contract

import (
	"context"

	"study-assistant-be/internal/entity"
)

// MessageRepository is the append-only message log of conversations.
type MessageRepository interface {
	Append(ctx context.Context, content string, sender entity.Sender, conversationId, createdBy string) (*entity.Message, error)
	// ListByConversation returns live messages in creation order.
	ListByConversation(ctx context.Context, conversationId string) ([]*entity.Message, error)
	SoftDelete(ctx context.Context, messageId string) error
}
