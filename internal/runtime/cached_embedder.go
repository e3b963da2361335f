package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-notes/internal/metrics"
)

var _ driven.EmbeddingService = (*CachedEmbedder)(nil)

// CachedEmbedder reads embeddings through a cache keyed by model and text.
// Cache failures are treated as misses; only embedder errors are returned.
type CachedEmbedder struct {
	next  driven.EmbeddingService
	cache driven.EmbeddingCache
	ttl   time.Duration
}

// NewCachedEmbedder wraps next with cache
func NewCachedEmbedder(next driven.EmbeddingService, cache driven.EmbeddingCache, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, ttl: ttl}
}

// Embed serves cached vectors and embeds the remaining texts in a single call
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	model := c.next.Model()
	result := make([][]float64, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := c.lookup(ctx, model, text); ok {
			result[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return result, nil
	}

	vectors, err := c.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missing))
	}

	for j, v := range vectors {
		result[missingIdx[j]] = v
		_ = c.cache.Set(ctx, model, missing[j], v, c.ttl)
	}
	return result, nil
}

// EmbedQuery serves a cached vector or embeds the query
func (c *CachedEmbedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	model := c.next.Model()
	if v, ok := c.lookup(ctx, model, query); ok {
		return v, nil
	}

	v, err := c.next.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, model, query, v, c.ttl)
	return v, nil
}

func (c *CachedEmbedder) lookup(ctx context.Context, model, text string) ([]float64, bool) {
	v, ok, err := c.cache.Get(ctx, model, text)
	switch {
	case err != nil:
		metrics.EmbeddingCache.WithLabelValues("error").Inc()
		return nil, false
	case ok:
		metrics.EmbeddingCache.WithLabelValues("hit").Inc()
		return v, true
	default:
		metrics.EmbeddingCache.WithLabelValues("miss").Inc()
		return nil, false
	}
}

func (c *CachedEmbedder) Dimensions() int {
	return c.next.Dimensions()
}

func (c *CachedEmbedder) Model() string {
	return c.next.Model()
}

func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	return c.next.HealthCheck(ctx)
}

// Close is a no-op; the wrapped service is owned by Services
func (c *CachedEmbedder) Close() error {
	return nil
}
