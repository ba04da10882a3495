package entity

import "time"

// Conversation is a note-scoped thread owned by the user who started it.
type Conversation struct {
	Id                string
	ConversationTitle string
	NoteId            string
	CreatedBy         string
	CreatedAt         time.Time
	Updated           bool
	UpdatedAt         *time.Time
	Deleted           bool
	DeletedAt         *time.Time
}

// LastActivity is UpdatedAt when set, otherwise CreatedAt.
func (c *Conversation) LastActivity() time.Time {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}
