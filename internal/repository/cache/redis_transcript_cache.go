package cache

import (
	"context"
	"encoding/json"
	"time"

	"study-assistant-be/internal/entity"

	"github.com/redis/go-redis/v9"
)

const transcriptKeyPrefix = "transcript:note:"

// RedisTranscriptCache shares cached transcripts between API instances.
// Redis failures degrade to cache misses.
type RedisTranscriptCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTranscriptCache(rdb *redis.Client, ttl time.Duration) *RedisTranscriptCache {
	return &RedisTranscriptCache{
		rdb: rdb,
		ttl: ttl,
	}
}

func (c *RedisTranscriptCache) Get(ctx context.Context, noteId string) (*entity.Transcript, bool) {
	raw, err := c.rdb.Get(ctx, transcriptKeyPrefix+noteId).Bytes()
	if err != nil {
		return nil, false
	}

	var t entity.Transcript
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, false
	}
	return &t, true
}

func (c *RedisTranscriptCache) Set(ctx context.Context, noteId string, transcript *entity.Transcript) {
	raw, err := json.Marshal(transcript)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, transcriptKeyPrefix+noteId, raw, c.ttl)
}

func (c *RedisTranscriptCache) Delete(ctx context.Context, noteId string) {
	c.rdb.Del(ctx, transcriptKeyPrefix+noteId)
}
