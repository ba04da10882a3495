package cache

import (
	"context"
	"strings"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/repository/contract"
)

// TranscriptCache is satisfied by memory.TranscriptCache and RedisTranscriptCache.
type TranscriptCache interface {
	Get(ctx context.Context, noteId string) (*entity.Transcript, bool)
	Set(ctx context.Context, noteId string, transcript *entity.Transcript)
	Delete(ctx context.Context, noteId string)
}

// CachedTranscriptRepository is a read-through decorator. Absent transcripts
// are not cached so a transcript created later shows up on the next read.
type CachedTranscriptRepository struct {
	next  contract.TranscriptRepository
	cache TranscriptCache
}

func NewCachedTranscriptRepository(next contract.TranscriptRepository, cache TranscriptCache) contract.TranscriptRepository {
	return &CachedTranscriptRepository{
		next:  next,
		cache: cache,
	}
}

func (r *CachedTranscriptRepository) FindByNoteID(ctx context.Context, noteId string) (*entity.Transcript, error) {
	key := strings.ToLower(strings.TrimSpace(noteId))

	if t, ok := r.cache.Get(ctx, key); ok {
		return t, nil
	}

	t, err := r.next.FindByNoteID(ctx, noteId)
	if err != nil || t == nil {
		return t, err
	}

	r.cache.Set(ctx, key, t)
	return t, nil
}
