package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/repository/contract"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ConversationRepository is a process-local conversation store with the same
// id format and soft-delete rules as the Mongo one. Used with
// CHAT_STORE_DRIVER=memory and in tests.
type ConversationRepository struct {
	mu            sync.RWMutex
	conversations []*entity.Conversation
}

var _ contract.ConversationRepository = (*ConversationRepository)(nil)

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{}
}

func parseID(id, label string) (string, error) {
	oid, err := bson.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return "", apperror.Validation(fmt.Sprintf("invalid %s", label))
	}
	return oid.Hex(), nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func copyConversation(c *entity.Conversation) *entity.Conversation {
	cp := *c
	return &cp
}

func (r *ConversationRepository) Create(_ context.Context, title, noteId, createdBy string) (*entity.Conversation, error) {
	c := &entity.Conversation{
		Id:                bson.NewObjectID().Hex(),
		ConversationTitle: title,
		NoteId:            noteId,
		CreatedBy:         createdBy,
	}

	r.mu.Lock()
	c.CreatedAt = now()
	r.conversations = append(r.conversations, c)
	cp := copyConversation(c)
	r.mu.Unlock()

	return cp, nil
}

// live must be called with the lock held.
func (r *ConversationRepository) live(id string) *entity.Conversation {
	for _, c := range r.conversations {
		if c.Id == id && !c.Deleted {
			return c
		}
	}
	return nil
}

func (r *ConversationRepository) FindByID(_ context.Context, id string) (*entity.Conversation, error) {
	hex, err := parseID(id, "conversation id")
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if c := r.live(hex); c != nil {
		return copyConversation(c), nil
	}
	return nil, apperror.NotFound("conversation not found")
}

func (r *ConversationRepository) FindByNoteID(_ context.Context, noteId string) (*entity.Conversation, error) {
	return r.findLatest(func(c *entity.Conversation) bool { return c.NoteId == noteId })
}

func (r *ConversationRepository) FindLatestByOwner(_ context.Context, noteId, userId string) (*entity.Conversation, error) {
	return r.findLatest(func(c *entity.Conversation) bool {
		return c.NoteId == noteId && c.CreatedBy == userId
	})
}

func (r *ConversationRepository) findLatest(match func(*entity.Conversation) bool) (*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.conversations) - 1; i >= 0; i-- {
		c := r.conversations[i]
		if match(c) && !c.Deleted {
			return copyConversation(c), nil
		}
	}
	return nil, apperror.NotFound("conversation not found")
}

func (r *ConversationRepository) ListByOwner(_ context.Context, userId string) ([]*entity.Conversation, error) {
	r.mu.RLock()
	result := make([]*entity.Conversation, 0)
	for i := len(r.conversations) - 1; i >= 0; i-- {
		c := r.conversations[i]
		if c.CreatedBy == userId && !c.Deleted {
			result = append(result, copyConversation(c))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastActivity().After(result[j].LastActivity())
	})
	return result, nil
}

func (r *ConversationRepository) SoftDelete(_ context.Context, id string) error {
	hex, err := parseID(id, "conversation id")
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.live(hex)
	if c == nil {
		return apperror.NotFound("conversation not found")
	}
	at := now()
	c.Deleted = true
	c.DeletedAt = &at
	return nil
}

func (r *ConversationRepository) Touch(_ context.Context, id string, at time.Time) error {
	hex, err := parseID(id, "conversation id")
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.live(hex)
	if c == nil {
		return apperror.NotFound("conversation not found")
	}
	at = at.UTC()
	c.Updated = true
	c.UpdatedAt = &at
	return nil
}
