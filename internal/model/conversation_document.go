package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const ConversationCollection = "conversations"

type ConversationDocument struct {
	Id                bson.ObjectID `bson:"_id,omitempty"`
	ConversationTitle string        `bson:"conversationTitle"`
	NoteId            string        `bson:"noteId"`
	CreatedBy         string        `bson:"createdBy"`
	CreatedAt         time.Time     `bson:"createdAt"`
	Updated           bool          `bson:"updated"`
	UpdatedAt         *time.Time    `bson:"updatedAt,omitempty"`
	Deleted           bool          `bson:"deleted"`
	DeletedAt         *time.Time    `bson:"deletedAt,omitempty"`
}
