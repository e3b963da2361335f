package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

var _ driven.TagStore = (*MockTagStore)(nil)

// MockTagStore is a mock implementation of TagStore for testing.
// Tags keep insertion order so candidate order is deterministic.
type MockTagStore struct {
	mu          sync.RWMutex
	tags        map[string]*domain.Tag
	order       []string
	assignments map[string]*domain.TagAssignment

	// ListCandidatesErr, when set, is returned by ListCandidates
	ListCandidatesErr error
}

// NewMockTagStore creates a new MockTagStore
func NewMockTagStore() *MockTagStore {
	return &MockTagStore{
		tags:        make(map[string]*domain.Tag),
		assignments: make(map[string]*domain.TagAssignment),
	}
}

func (m *MockTagStore) Save(ctx context.Context, tag *domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[tag.ID]; !ok {
		m.order = append(m.order, tag.ID)
	}
	cp := *tag
	m.tags[tag.ID] = &cp
	return nil
}

func (m *MockTagStore) Get(ctx context.Context, id string) (*domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tag, ok := m.tags[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *tag
	return &cp, nil
}

func (m *MockTagStore) GetByName(ctx context.Context, ownerID, name string) (*domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tag := range m.tags {
		if tag.OwnerID == ownerID && tag.Name == name {
			cp := *tag
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTagStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tags := []*domain.Tag{}
	for _, tag := range m.tags {
		if tag.OwnerID == ownerID {
			cp := *tag
			tags = append(tags, &cp)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (m *MockTagStore) ListCandidates(ctx context.Context, ownerID string) ([]domain.CandidateVector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListCandidatesErr != nil {
		return nil, m.ListCandidatesErr
	}
	var candidates []domain.CandidateVector
	for _, id := range m.order {
		tag, ok := m.tags[id]
		if ok && tag.OwnerID == ownerID && tag.HasEmbedding() {
			candidates = append(candidates, tag.Candidate())
		}
	}
	return candidates, nil
}

func (m *MockTagStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.tags, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockTagStore) SaveAssignment(ctx context.Context, assignment *domain.TagAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *assignment
	m.assignments[assignment.DocumentID] = &cp
	return nil
}

func (m *MockTagStore) GetAssignment(ctx context.Context, documentID string) (*domain.TagAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}
