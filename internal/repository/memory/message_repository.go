package memory

import (
	"context"
	"fmt"
	"sync"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/repository/contract"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MessageRepository keeps messages in append order, which is creation order.
type MessageRepository struct {
	mu       sync.RWMutex
	messages []*entity.Message
}

var _ contract.MessageRepository = (*MessageRepository)(nil)

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{}
}

func (r *MessageRepository) Append(_ context.Context, content string, sender entity.Sender, conversationId, createdBy string) (*entity.Message, error) {
	if !sender.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("invalid sender %q", sender))
	}
	convId, err := parseID(conversationId, "conversation id")
	if err != nil {
		return nil, err
	}

	m := &entity.Message{
		Id:             bson.NewObjectID().Hex(),
		Content:        content,
		Sender:         sender,
		ConversationId: convId,
		Metadata: entity.MessageMetadata{
			CreatedBy: createdBy,
		},
	}

	// Stamped under the lock so append order and createdAt order agree.
	r.mu.Lock()
	m.Metadata.CreatedAt = now()
	r.messages = append(r.messages, m)
	cp := *m
	r.mu.Unlock()

	return &cp, nil
}

func (r *MessageRepository) ListByConversation(_ context.Context, conversationId string) ([]*entity.Message, error) {
	convId, err := parseID(conversationId, "conversation id")
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.Message, 0)
	for _, m := range r.messages {
		if m.ConversationId == convId && !m.Metadata.Deleted {
			cp := *m
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *MessageRepository) SoftDelete(_ context.Context, messageId string) error {
	id, err := parseID(messageId, "message id")
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Id == id && !m.Metadata.Deleted {
			at := now()
			m.Metadata.Deleted = true
			m.Metadata.DeletedAt = &at
			m.Metadata.Updated = true
			m.Metadata.UpdatedAt = &at
			return nil
		}
	}
	return apperror.NotFound("message not found")
}
