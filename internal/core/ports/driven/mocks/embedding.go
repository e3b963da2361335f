package mocks

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

var (
	_ driven.EmbeddingService = (*MockEmbeddingService)(nil)
	_ driven.EmbeddingCache   = (*MockEmbeddingCache)(nil)
)

// MockEmbeddingService is a mock implementation of EmbeddingService for testing.
// Vectors are derived from a hash of the text unless a fixed vector is registered.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	model      string
	failNext   error
	fixed      map[string][]float64
	calls      int
	texts      []string
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 8,
		model:      "mock-embedding-model",
		fixed:      make(map[string][]float64),
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if err := m.takeFailure(ctx); err != nil {
		return nil, err
	}

	result := make([][]float64, len(texts))
	for i, text := range texts {
		m.texts = append(m.texts, text)
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if err := m.takeFailure(ctx); err != nil {
		return nil, err
	}
	m.texts = append(m.texts, query)
	return m.vectorFor(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

func (m *MockEmbeddingService) takeFailure(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	return nil
}

func (m *MockEmbeddingService) vectorFor(text string) []float64 {
	if v, ok := m.fixed[text]; ok {
		return v
	}

	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float64, m.dimensions)
	for i := range embedding {
		// Generate deterministic pseudo-random values
		seed = seed*1103515245 + 12345
		embedding[i] = float64(seed%1000) / 1000.0
	}
	return embedding
}

// Helper methods for testing

// SetFailNext makes the next embedding call return err
func (m *MockEmbeddingService) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// SetVector registers the vector returned for text
func (m *MockEmbeddingService) SetVector(text string, vector []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[text] = vector
}

func (m *MockEmbeddingService) SetDimensions(dim int) {
	m.dimensions = dim
}

func (m *MockEmbeddingService) SetModel(model string) {
	m.model = model
}

// Calls returns how many Embed/EmbedQuery calls were made
func (m *MockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Texts returns every text embedded so far, in call order
func (m *MockEmbeddingService) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// MockEmbeddingCache is an in-memory EmbeddingCache that ignores TTLs
type MockEmbeddingCache struct {
	mu      sync.Mutex
	entries map[string][]float64
	GetErr  error
	SetErr  error
}

// NewMockEmbeddingCache creates a new MockEmbeddingCache
func NewMockEmbeddingCache() *MockEmbeddingCache {
	return &MockEmbeddingCache{entries: make(map[string][]float64)}
}

func (m *MockEmbeddingCache) Get(ctx context.Context, model, text string) ([]float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	v, ok := m.entries[model+"\x00"+text]
	return v, ok, nil
}

func (m *MockEmbeddingCache) Set(ctx context.Context, model, text string, vector []float64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.entries[model+"\x00"+text] = vector
	return nil
}

func (m *MockEmbeddingCache) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of cached vectors
func (m *MockEmbeddingCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
