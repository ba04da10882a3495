package implementation

import (
	"context"
	"fmt"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/mapper"
	"study-assistant-be/internal/model"
	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/repository/contract"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MessageRepositoryImpl struct {
	coll   *mongo.Collection
	mapper *mapper.ChatMapper
}

func NewMessageRepository(db *mongo.Database) contract.MessageRepository {
	return &MessageRepositoryImpl{
		coll:   db.Collection(model.MessageCollection),
		mapper: mapper.NewChatMapper(),
	}
}

func (r *MessageRepositoryImpl) Append(ctx context.Context, content string, sender entity.Sender, conversationId, createdBy string) (*entity.Message, error) {
	if !sender.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("invalid sender %q", sender))
	}
	convId, err := parseObjectID(conversationId, "conversation id")
	if err != nil {
		return nil, err
	}

	doc := &model.MessageDocument{
		Id:             bson.NewObjectID(),
		Content:        content,
		Sender:         string(sender),
		ConversationId: convId,
		Metadata: model.MessageMetadataDocument{
			CreatedAt: nowMillis(),
			CreatedBy: createdBy,
		},
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, apperror.Store("failed to append message", err)
	}
	return r.mapper.MessageToEntity(doc), nil
}

// ListByConversation sorts on creation time; _id breaks ties between turns
// written within the same millisecond since ObjectIDs grow monotonically.
func (r *MessageRepositoryImpl) ListByConversation(ctx context.Context, conversationId string) ([]*entity.Message, error) {
	convId, err := parseObjectID(conversationId, "conversation id")
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"conversationId":   convId,
		"metadata.deleted": bson.M{"$ne": true},
	}
	opts := options.Find().SetSort(bson.D{{Key: "metadata.createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperror.Store("failed to list messages", err)
	}
	defer cursor.Close(ctx)

	var docs []model.MessageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperror.Store("failed to decode messages", err)
	}

	messages := make([]*entity.Message, 0, len(docs))
	for i := range docs {
		messages = append(messages, r.mapper.MessageToEntity(&docs[i]))
	}
	return messages, nil
}

func (r *MessageRepositoryImpl) SoftDelete(ctx context.Context, messageId string) error {
	oid, err := parseObjectID(messageId, "message id")
	if err != nil {
		return err
	}

	now := nowMillis()
	update := bson.M{"$set": bson.M{
		"metadata.deleted":   true,
		"metadata.deletedAt": now,
		"metadata.updated":   true,
		"metadata.updatedAt": now,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid, "metadata.deleted": bson.M{"$ne": true}}, update)
	if err != nil {
		return apperror.Store("failed to delete message", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("message not found")
	}
	return nil
}
