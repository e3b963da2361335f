package domain

import "sync"

// RuntimeConfig tracks which services are available at runtime.
// This is determined at startup and can be updated dynamically for AI services.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	StorageBackend string // "postgres" or "memory"
	QueueBackend   string // "redis" or "" (synchronous indexing)

	// Dynamic capability flags (updated when the embedder changes)
	embeddingAvailable bool
	embeddingModel     string
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(storageBackend, queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		StorageBackend: storageBackend,
		QueueBackend:   queueBackend,
	}
}

// EmbeddingAvailable returns whether embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// EmbeddingModel returns the model of the active embedder ("" if none)
func (c *RuntimeConfig) EmbeddingModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingModel
}

// SetEmbedding updates the embedding availability flag and model name
func (c *RuntimeConfig) SetEmbedding(available bool, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
	c.embeddingModel = model
}

// CanAutoTag returns true if documents can be matched against tags
func (c *RuntimeConfig) CanAutoTag() bool {
	return c.EmbeddingAvailable()
}

// AsyncIndexing returns true if indexing goes through the task queue
func (c *RuntimeConfig) AsyncIndexing() bool {
	return c.QueueBackend != ""
}
