package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

// Services holds references to dynamically configurable services.
// The embedder and the chunking / auto-tag settings can be swapped at runtime.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	// Dynamic services (can be nil, updated at runtime)
	embeddingService driven.EmbeddingService
	embeddingCache   driven.EmbeddingCache
	cacheTTL         time.Duration

	chunking domain.ChunkingSettings
	autoTag  domain.AutoTagSettings
}

// NewServices creates a new Services registry with default settings
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config:   config,
		chunking: domain.DefaultChunkingSettings(),
		autoTag:  domain.DefaultAutoTagSettings(),
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service (may be nil).
// When a cache is configured the returned service reads through it.
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.embeddingService == nil {
		return nil
	}
	if s.embeddingCache != nil {
		return NewCachedEmbedder(s.embeddingService, s.embeddingCache, s.cacheTTL)
	}
	return s.embeddingService
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	if svc != nil {
		s.config.SetEmbedding(true, svc.Model())
	} else {
		s.config.SetEmbedding(false, "")
	}
}

// SetEmbeddingCache configures a read-through cache for embeddings (nil disables it)
func (s *Services) SetEmbeddingCache(cache driven.EmbeddingCache, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddingCache = cache
	s.cacheTTL = ttl
}

// ChunkingSettings returns the current chunking settings
func (s *Services) ChunkingSettings() domain.ChunkingSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunking
}

// SetChunkingSettings validates and applies chunking settings
func (s *Services) SetChunkingSettings(settings domain.ChunkingSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunking = settings
	return nil
}

// AutoTagSettings returns the current auto-tag settings
func (s *Services) AutoTagSettings() domain.AutoTagSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoTag
}

// SetAutoTagSettings validates and applies auto-tag settings
func (s *Services) SetAutoTagSettings(settings domain.AutoTagSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoTag = settings
	return nil
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	s.config.SetEmbedding(false, "")

	return nil
}

// ValidateAndSetEmbedding validates connectivity before setting embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}
