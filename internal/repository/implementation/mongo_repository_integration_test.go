package implementation

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MONGO_URI not set")
	}

	ctx := context.Background()
	dbName := fmt.Sprintf("study_assistant_test_%d", time.Now().UnixNano())
	client, db, err := database.NewMongoDatabase(ctx, uri, dbName)
	require.NoError(t, err)
	require.NoError(t, database.EnsureChatIndexes(ctx, db))

	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestMessageRepositoryOrderingAndSoftDelete(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)

	conv, err := conversations.Create(ctx, "Physics", "n1", "u1")
	require.NoError(t, err)

	turns := []struct {
		content string
		sender  entity.Sender
	}{
		{"What is X?", entity.SenderUser},
		{"X is a thing.", entity.SenderBot},
		{"And why?", entity.SenderUser},
		{"Because.", entity.SenderBot},
	}
	var ids []string
	for _, turn := range turns {
		m, err := messages.Append(ctx, turn.content, turn.sender, conv.Id, "u1")
		require.NoError(t, err)
		ids = append(ids, m.Id)
	}

	history, err := messages.ListByConversation(ctx, conv.Id)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, m := range history {
		assert.Equal(t, turns[i].content, m.Content)
		assert.Equal(t, turns[i].sender, m.Sender)
		if i > 0 {
			assert.False(t, m.Metadata.CreatedAt.Before(history[i-1].Metadata.CreatedAt))
		}
	}

	require.NoError(t, messages.SoftDelete(ctx, ids[1]))
	history, err = messages.ListByConversation(ctx, conv.Id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "And why?", history[1].Content)

	err = messages.SoftDelete(ctx, ids[1])
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestMessageRepositoryRejectsMalformedIds(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	messages := NewMessageRepository(db)

	_, err := messages.Append(ctx, "hi", entity.SenderUser, "not-an-id", "u1")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = messages.Append(ctx, "hi", entity.Sender("system"), bson.NewObjectID().Hex(), "u1")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = messages.ListByConversation(ctx, "zzz")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestConversationRepositoryLookups(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	repo := NewConversationRepository(db)

	_, err := repo.FindByID(ctx, "malformed")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = repo.FindByID(ctx, bson.NewObjectID().Hex())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	older, err := repo.Create(ctx, "First", "n1", "u1")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	newer, err := repo.Create(ctx, "Second", "n1", "u1")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Other user", "n2", "u2")
	require.NoError(t, err)

	byNote, err := repo.FindByNoteID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, newer.Id, byNote.Id)

	time.Sleep(5 * time.Millisecond)
	_, err = repo.Create(ctx, "Their question", "n1", "u2")
	require.NoError(t, err)
	latest, err := repo.FindLatestByOwner(ctx, "n1", "u1")
	require.NoError(t, err)
	assert.Equal(t, newer.Id, latest.Id)
	_, err = repo.FindLatestByOwner(ctx, "n2", "u1")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	owned, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, newer.Id, owned[0].Id)

	// Touching the older conversation makes it the most recent one.
	touchedAt := time.Now().Add(time.Minute)
	require.NoError(t, repo.Touch(ctx, older.Id, touchedAt))
	owned, err = repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, older.Id, owned[0].Id)
	require.NotNil(t, owned[0].UpdatedAt)
	assert.True(t, touchedAt.UTC().Truncate(time.Millisecond).Equal(*owned[0].UpdatedAt))

	require.NoError(t, repo.SoftDelete(ctx, newer.Id))
	_, err = repo.FindByID(ctx, newer.Id)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	latest, err = repo.FindLatestByOwner(ctx, "n1", "u1")
	require.NoError(t, err)
	assert.Equal(t, older.Id, latest.Id)

	owned, err = repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	assert.True(t, apperror.Is(repo.SoftDelete(ctx, newer.Id), apperror.KindNotFound))
}
