package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingCache = (*EmbeddingCache)(nil)

const embeddingPrefix = "notes:emb:"

// EmbeddingCache implements driven.EmbeddingCache using Redis strings.
// Vectors are stored as little-endian float64 values under a key derived from
// the model name and a SHA-256 of the text.
type EmbeddingCache struct {
	client *redis.Client
}

// NewEmbeddingCache creates a new Redis-backed embedding cache
func NewEmbeddingCache(client *redis.Client) *EmbeddingCache {
	return &EmbeddingCache{client: client}
}

func embeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return embeddingPrefix + model + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector for text under model
func (c *EmbeddingCache) Get(ctx context.Context, model, text string) ([]float64, bool, error) {
	data, err := c.client.Get(ctx, embeddingKey(model, text)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get embedding: %w", err)
	}
	if len(data)%8 != 0 {
		return nil, false, fmt.Errorf("corrupt embedding entry of %d bytes", len(data))
	}

	vector := make([]float64, len(data)/8)
	for i := range vector {
		vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return vector, true, nil
}

// Set stores a vector for text under model
func (c *EmbeddingCache) Set(ctx context.Context, model, text string, vector []float64, ttl time.Duration) error {
	data := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	if err := c.client.Set(ctx, embeddingKey(model, text), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set embedding: %w", err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy
func (c *EmbeddingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
