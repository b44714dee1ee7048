package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

const embeddingTTL = time.Hour

// EmbeddingCache caches text query embeddings in Redis, keyed by the SHA-256
// of the query text. Strictly best-effort: every failure is a miss.
type EmbeddingCache struct {
	cache *Cache
}

func NewEmbeddingCache(c *Cache) *EmbeddingCache {
	return &EmbeddingCache{cache: c}
}

func (e *EmbeddingCache) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	var vec []float32
	if err := e.cache.Get(ctx, embeddingKey(text), &vec); err != nil {
		return nil, false
	}
	if len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

func (e *EmbeddingCache) PutEmbedding(ctx context.Context, text string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := e.cache.Set(ctx, embeddingKey(text), vec, embeddingTTL); err != nil {
		slog.Debug("embedding cache write failed", "error", err)
	}
}

func embeddingKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:text:" + hex.EncodeToString(sum[:])
}
