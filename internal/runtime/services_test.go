package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven/mocks"
)

// mockEmbeddingService is a mock implementation for testing
type mockEmbeddingService struct {
	*mocks.MockEmbeddingService
	healthCheckErr error
	closed         bool
}

func newMockEmbedding() *mockEmbeddingService {
	return &mockEmbeddingService{MockEmbeddingService: mocks.NewMockEmbeddingService()}
}

func (m *mockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.healthCheckErr
}

func (m *mockEmbeddingService) Close() error {
	m.closed = true
	return nil
}

func TestNewServices(t *testing.T) {
	config := domain.NewRuntimeConfig("postgres", "redis")
	services := NewServices(config)

	if services == nil {
		t.Fatal("expected non-nil services")
	}
	if services.Config() != config {
		t.Error("expected config to match")
	}
	if services.ChunkingSettings() != domain.DefaultChunkingSettings() {
		t.Error("expected default chunking settings")
	}
	if services.AutoTagSettings() != domain.DefaultAutoTagSettings() {
		t.Error("expected default auto-tag settings")
	}
}

func TestServices_EmbeddingService(t *testing.T) {
	config := domain.NewRuntimeConfig("postgres", "")
	services := NewServices(config)

	// Initially nil
	if services.EmbeddingService() != nil {
		t.Error("expected nil embedding service initially")
	}

	mock := newMockEmbedding()
	services.SetEmbeddingService(mock)

	if services.EmbeddingService() == nil {
		t.Error("expected non-nil embedding service after set")
	}
	if !config.EmbeddingAvailable() {
		t.Error("expected embedding to be available")
	}
	if config.EmbeddingModel() != "mock-embedding-model" {
		t.Errorf("expected model to be recorded, got %q", config.EmbeddingModel())
	}

	// Set to nil
	services.SetEmbeddingService(nil)
	if services.EmbeddingService() != nil {
		t.Error("expected nil embedding service after clearing")
	}
	if config.EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable")
	}
	if !mock.closed {
		t.Error("expected old service to be closed")
	}
}

func TestServices_EmbeddingCache(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("memory", ""))
	services.SetEmbeddingService(newMockEmbedding())
	services.SetEmbeddingCache(mocks.NewMockEmbeddingCache(), 0)

	if _, ok := services.EmbeddingService().(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", services.EmbeddingService())
	}

	services.SetEmbeddingCache(nil, 0)
	if _, ok := services.EmbeddingService().(*CachedEmbedder); ok {
		t.Error("expected plain embedder once the cache is removed")
	}
}

func TestServices_ValidateAndSetEmbedding(t *testing.T) {
	config := domain.NewRuntimeConfig("postgres", "")
	services := NewServices(config)
	ctx := context.Background()

	t.Run("successful validation", func(t *testing.T) {
		err := services.ValidateAndSetEmbedding(ctx, newMockEmbedding())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if services.EmbeddingService() == nil {
			t.Error("expected embedding service to be set")
		}
	})

	t.Run("failed validation", func(t *testing.T) {
		mock := newMockEmbedding()
		mock.healthCheckErr = errors.New("connection failed")
		err := services.ValidateAndSetEmbedding(ctx, mock)
		if err == nil {
			t.Error("expected error")
		}
		if !mock.closed {
			t.Error("expected failed service to be closed")
		}
	})

	t.Run("nil service", func(t *testing.T) {
		err := services.ValidateAndSetEmbedding(ctx, nil)
		if err != nil {
			t.Errorf("unexpected error for nil service: %v", err)
		}
		if config.EmbeddingAvailable() {
			t.Error("expected embedding to be unavailable")
		}
	})
}

func TestServices_Settings(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("memory", ""))

	chunking := domain.ChunkingSettings{TargetSize: 300, Overlap: 30, Mode: domain.ChunkModeNode, EmbedBatchSize: 8}
	if err := services.SetChunkingSettings(chunking); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if services.ChunkingSettings() != chunking {
		t.Error("expected chunking settings to be applied")
	}

	if err := services.SetChunkingSettings(domain.ChunkingSettings{TargetSize: 10, Overlap: 10}); !errors.Is(err, domain.ErrInvalidChunkConfig) {
		t.Errorf("expected ErrInvalidChunkConfig, got %v", err)
	}
	if services.ChunkingSettings() != chunking {
		t.Error("expected invalid settings to be rejected")
	}

	autoTag := domain.DefaultAutoTagSettings()
	autoTag.Threshold = 2
	if err := services.SetAutoTagSettings(autoTag); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestServices_Close(t *testing.T) {
	config := domain.NewRuntimeConfig("postgres", "")
	services := NewServices(config)

	mock := newMockEmbedding()
	services.SetEmbeddingService(mock)

	if err := services.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !mock.closed {
		t.Error("expected embedding service to be closed")
	}
	if config.EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable after close")
	}
}

func TestServices_ReplaceService_ClosesOld(t *testing.T) {
	services := NewServices(domain.NewRuntimeConfig("postgres", ""))

	old := newMockEmbedding()
	replacement := newMockEmbedding()

	services.SetEmbeddingService(old)
	services.SetEmbeddingService(replacement)

	if !old.closed {
		t.Error("expected old service to be closed when replaced")
	}
	if replacement.closed {
		t.Error("expected new service to remain open")
	}
}
