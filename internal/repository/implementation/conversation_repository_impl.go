package implementation

import (
	"context"
	"errors"
	"sort"
	"time"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/mapper"
	"study-assistant-be/internal/model"
	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/repository/contract"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ConversationRepositoryImpl struct {
	coll   *mongo.Collection
	mapper *mapper.ChatMapper
}

func NewConversationRepository(db *mongo.Database) contract.ConversationRepository {
	return &ConversationRepositoryImpl{
		coll:   db.Collection(model.ConversationCollection),
		mapper: mapper.NewChatMapper(),
	}
}

func notDeleted(filter bson.M) bson.M {
	filter["deleted"] = bson.M{"$ne": true}
	return filter
}

func (r *ConversationRepositoryImpl) Create(ctx context.Context, title, noteId, createdBy string) (*entity.Conversation, error) {
	doc := &model.ConversationDocument{
		Id:                bson.NewObjectID(),
		ConversationTitle: title,
		NoteId:            noteId,
		CreatedBy:         createdBy,
		CreatedAt:         nowMillis(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, apperror.Store("failed to create conversation", err)
	}
	return r.mapper.ConversationToEntity(doc), nil
}

func (r *ConversationRepositoryImpl) FindByID(ctx context.Context, id string) (*entity.Conversation, error) {
	oid, err := parseObjectID(id, "conversation id")
	if err != nil {
		return nil, err
	}

	var doc model.ConversationDocument
	err = r.coll.FindOne(ctx, notDeleted(bson.M{"_id": oid})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("conversation not found")
		}
		return nil, apperror.Store("failed to find conversation", err)
	}
	return r.mapper.ConversationToEntity(&doc), nil
}

// FindByNoteID picks the most recently created live conversation of the note.
func (r *ConversationRepositoryImpl) FindByNoteID(ctx context.Context, noteId string) (*entity.Conversation, error) {
	return r.findLatest(ctx, bson.M{"noteId": noteId})
}

func (r *ConversationRepositoryImpl) FindLatestByOwner(ctx context.Context, noteId, userId string) (*entity.Conversation, error) {
	return r.findLatest(ctx, bson.M{"noteId": noteId, "createdBy": userId})
}

func (r *ConversationRepositoryImpl) findLatest(ctx context.Context, filter bson.M) (*entity.Conversation, error) {
	var doc model.ConversationDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	err := r.coll.FindOne(ctx, notDeleted(filter), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("conversation not found")
		}
		return nil, apperror.Store("failed to find conversation", err)
	}
	return r.mapper.ConversationToEntity(&doc), nil
}

func (r *ConversationRepositoryImpl) ListByOwner(ctx context.Context, userId string) ([]*entity.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, notDeleted(bson.M{"createdBy": userId}), opts)
	if err != nil {
		return nil, apperror.Store("failed to list conversations", err)
	}
	defer cursor.Close(ctx)

	var docs []model.ConversationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperror.Store("failed to decode conversations", err)
	}

	seen := make(map[bson.ObjectID]struct{}, len(docs))
	conversations := make([]*entity.Conversation, 0, len(docs))
	for i := range docs {
		if _, dup := seen[docs[i].Id]; dup {
			continue
		}
		seen[docs[i].Id] = struct{}{}
		conversations = append(conversations, r.mapper.ConversationToEntity(&docs[i]))
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastActivity().After(conversations[j].LastActivity())
	})
	return conversations, nil
}

func (r *ConversationRepositoryImpl) SoftDelete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id, "conversation id")
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"deleted": true, "deletedAt": nowMillis()}}
	res, err := r.coll.UpdateOne(ctx, notDeleted(bson.M{"_id": oid}), update)
	if err != nil {
		return apperror.Store("failed to delete conversation", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("conversation not found")
	}
	return nil
}

func (r *ConversationRepositoryImpl) Touch(ctx context.Context, id string, at time.Time) error {
	oid, err := parseObjectID(id, "conversation id")
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"updated": true, "updatedAt": at.UTC().Truncate(time.Millisecond)}}
	res, err := r.coll.UpdateOne(ctx, notDeleted(bson.M{"_id": oid}), update)
	if err != nil {
		return apperror.Store("failed to touch conversation", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("conversation not found")
	}
	return nil
}
