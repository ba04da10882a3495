package memory

import (
	"context"
	"time"

	"study-assistant-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// TranscriptCache keeps transcripts in process memory keyed by note id.
type TranscriptCache struct {
	cache *cache.Cache
}

// NewTranscriptCache purges expired items every 2*ttl.
func NewTranscriptCache(ttl time.Duration) *TranscriptCache {
	c := cache.New(ttl, 2*ttl)
	return &TranscriptCache{
		cache: c,
	}
}

func (r *TranscriptCache) Set(_ context.Context, noteId string, transcript *entity.Transcript) {
	r.cache.Set(noteId, transcript, cache.DefaultExpiration)
}

func (r *TranscriptCache) Get(_ context.Context, noteId string) (*entity.Transcript, bool) {
	if x, found := r.cache.Get(noteId); found {
		return x.(*entity.Transcript), true
	}
	return nil, false
}

func (r *TranscriptCache) Delete(_ context.Context, noteId string) {
	r.cache.Delete(noteId)
}
