package entity

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

type MessageMetadata struct {
	CreatedAt time.Time
	CreatedBy string
	Updated   bool
	UpdatedAt *time.Time
	Deleted   bool
	DeletedAt *time.Time
}

// Message is one immutable turn of a conversation. Only Metadata flags change
// after creation.
type Message struct {
	Id             string
	Content        string
	Sender         Sender
	ConversationId string
	Metadata       MessageMetadata
}
