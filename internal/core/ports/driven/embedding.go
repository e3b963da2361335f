package driven

import (
	"context"
	"time"
)

// EmbeddingService generates text embeddings
type EmbeddingService interface {
	// Embed generates embeddings for multiple texts, one vector per text in order
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// EmbedQuery generates an embedding for a single text
	EmbedQuery(ctx context.Context, query string) ([]float64, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// HealthCheck verifies the embedding service is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}

// EmbeddingCache stores vectors keyed by model and text.
// A miss is reported as (nil, false, nil).
type EmbeddingCache interface {
	// Get returns the cached vector for text under model
	Get(ctx context.Context, model, text string) ([]float64, bool, error)

	// Set stores a vector for text under model with the given TTL (0 = no expiry)
	Set(ctx context.Context, model, text string, vector []float64, ttl time.Duration) error

	// Ping checks if the cache backend is healthy
	Ping(ctx context.Context) error
}
