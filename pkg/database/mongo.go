package database

import (
	"context"
	"fmt"
	"time"

	"study-assistant-be/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NewMongoDatabase connects to the document store holding conversations and
// messages and verifies the connection with a ping.
func NewMongoDatabase(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, client.Database(dbName), nil
}

// EnsureChatIndexes creates the indexes backing the conversation and message
// read paths. Safe to run repeatedly.
func EnsureChatIndexes(ctx context.Context, db *mongo.Database) error {
	collections := map[string][]mongo.IndexModel{
		model.ConversationCollection: {
			{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "deleted", Value: 1}}},
			{Keys: bson.D{{Key: "noteId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		model.MessageCollection: {
			{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "metadata.createdAt", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}

	for name, indexes := range collections {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", name, err)
		}
	}
	return nil
}
