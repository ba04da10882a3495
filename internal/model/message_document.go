package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const MessageCollection = "messages"

type MessageMetadataDocument struct {
	CreatedAt time.Time  `bson:"createdAt"`
	CreatedBy string     `bson:"createdBy"`
	Updated   bool       `bson:"updated"`
	UpdatedAt *time.Time `bson:"updatedAt,omitempty"`
	Deleted   bool       `bson:"deleted"`
	DeletedAt *time.Time `bson:"deletedAt,omitempty"`
}

type MessageDocument struct {
	Id             bson.ObjectID           `bson:"_id,omitempty"`
	Content        string                  `bson:"content"`
	Sender         string                  `bson:"sender"`
	ConversationId bson.ObjectID           `bson:"conversationId"`
	Metadata       MessageMetadataDocument `bson:"metadata"`
}
