package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

var _ driven.ChunkStore = (*MockChunkStore)(nil)

// MockChunkStore is a mock implementation of ChunkStore for testing
type MockChunkStore struct {
	mu         sync.RWMutex
	byDocument map[string][]*domain.Chunk

	// ReplaceErr, when set, is returned by ReplaceForDocument
	ReplaceErr error
}

// NewMockChunkStore creates a new MockChunkStore
func NewMockChunkStore() *MockChunkStore {
	return &MockChunkStore{
		byDocument: make(map[string][]*domain.Chunk),
	}
}

func (m *MockChunkStore) ReplaceForDocument(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	m.byDocument[documentID] = append([]*domain.Chunk(nil), chunks...)
	return nil
}

func (m *MockChunkStore) GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Chunk{}, m.byDocument[documentID]...), nil
}

func (m *MockChunkStore) GetByNode(ctx context.Context, documentID, nodeID string) ([]*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*domain.Chunk{}
	for _, chunk := range m.byDocument[documentID] {
		for _, id := range chunk.NodeIDs {
			if id == nodeID {
				result = append(result, chunk)
				break
			}
		}
	}
	return result, nil
}

func (m *MockChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byDocument, documentID)
	return nil
}

// Helper methods for testing

func (m *MockChunkStore) Count(documentID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byDocument[documentID])
}
