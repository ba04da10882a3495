package contract

import (
	"context"
	"time"

	"study-assistant-be/internal/entity"
)

// ConversationRepository persists conversation metadata in the document store.
// Every read excludes soft-deleted conversations.
type ConversationRepository interface {
	// Create always inserts a new conversation, even if the note already has one.
	Create(ctx context.Context, title, noteId, createdBy string) (*entity.Conversation, error)
	// FindByID fails with a validation error for malformed ids and a not found
	// error for absent or deleted conversations.
	FindByID(ctx context.Context, id string) (*entity.Conversation, error)
	FindByNoteID(ctx context.Context, noteId string) (*entity.Conversation, error)
	// FindLatestByOwner is FindByNoteID narrowed to conversations created by userId.
	FindLatestByOwner(ctx context.Context, noteId, userId string) (*entity.Conversation, error)
	ListByOwner(ctx context.Context, userId string) ([]*entity.Conversation, error)
	SoftDelete(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, at time.Time) error
}
