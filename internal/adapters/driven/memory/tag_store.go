package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TagStore = (*TagStore)(nil)

// errNoEmbeddingFunc is returned if chromem ever tries to embed on its own.
// Tag vectors are always computed by the tag service before Save.
var errNoEmbeddingFunc = errors.New("tag store does not embed")

// TagStore implements driven.TagStore in memory.
// Tag records live in a map; label vectors are kept in one chromem-go
// collection per owner, which serves ListCandidates. chromem stores vectors
// normalized, which leaves cosine similarity unchanged.
type TagStore struct {
	mu          sync.RWMutex
	db          *chromem.DB
	tags        map[string]*domain.Tag
	assignments map[string]*domain.TagAssignment
}

// NewTagStore creates a TagStore backed by a volatile chromem database
func NewTagStore() *TagStore {
	return newTagStore(chromem.NewDB())
}

// NewPersistentTagStore creates a TagStore whose vectors are persisted under path.
// Tag records themselves are not persisted.
func NewPersistentTagStore(path string) (*TagStore, error) {
	db, err := chromem.NewPersistentDB(path, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	return newTagStore(db), nil
}

func newTagStore(db *chromem.DB) *TagStore {
	return &TagStore{
		db:          db,
		tags:        make(map[string]*domain.Tag),
		assignments: make(map[string]*domain.TagAssignment),
	}
}

func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

func (s *TagStore) collection(ownerID string) (*chromem.Collection, error) {
	return s.db.GetOrCreateCollection("tags-"+ownerID, nil, noEmbedding)
}

// Save creates or updates a tag. Names are unique per owner.
func (s *TagStore) Save(ctx context.Context, tag *domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tags {
		if existing.ID != tag.ID && existing.OwnerID == tag.OwnerID && existing.Name == tag.Name {
			return domain.ErrAlreadyExists
		}
	}

	coll, err := s.collection(tag.OwnerID)
	if err != nil {
		return err
	}
	if indexable(tag.Embedding) {
		err = coll.AddDocument(ctx, chromem.Document{
			ID:        tag.ID,
			Content:   tag.Label(),
			Embedding: toFloat32(tag.Embedding),
		})
	} else {
		err = coll.Delete(ctx, nil, nil, tag.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to index tag vector: %w", err)
	}

	cp := *tag
	cp.Embedding = append([]float64(nil), tag.Embedding...)
	s.tags[tag.ID] = &cp
	return nil
}

// Get retrieves a tag by ID
func (s *TagStore) Get(ctx context.Context, id string) (*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tag, ok := s.tags[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *tag
	return &cp, nil
}

// GetByName retrieves an owner's tag by name
func (s *TagStore) GetByName(ctx context.Context, ownerID, name string) (*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tag := range s.tags {
		if tag.OwnerID == ownerID && tag.Name == name {
			cp := *tag
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListByOwner retrieves all tags of an owner ordered by name
func (s *TagStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerTags(ownerID), nil
}

func (s *TagStore) ownerTags(ownerID string) []*domain.Tag {
	tags := []*domain.Tag{}
	for _, tag := range s.tags {
		if tag.OwnerID == ownerID {
			cp := *tag
			tags = append(tags, &cp)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags
}

// ListCandidates returns the vectors indexed for an owner, ordered by tag name
func (s *TagStore) ListCandidates(ctx context.Context, ownerID string) ([]domain.CandidateVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.db.GetCollection("tags-"+ownerID, noEmbedding)
	if coll == nil {
		return nil, nil
	}

	var candidates []domain.CandidateVector
	for _, tag := range s.ownerTags(ownerID) {
		if !indexable(tag.Embedding) {
			continue
		}
		doc, err := coll.GetByID(ctx, tag.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load vector for tag %s: %w", tag.ID, err)
		}
		candidates = append(candidates, domain.CandidateVector{
			ID:      tag.ID,
			Vector:  toFloat64(doc.Embedding),
			OwnerID: ownerID,
		})
	}
	return candidates, nil
}

// Delete deletes a tag and its vector
func (s *TagStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, ok := s.tags[id]
	if !ok {
		return domain.ErrNotFound
	}
	if coll := s.db.GetCollection("tags-"+tag.OwnerID, noEmbedding); coll != nil {
		if err := coll.Delete(ctx, nil, nil, id); err != nil {
			return fmt.Errorf("failed to remove tag vector: %w", err)
		}
	}
	delete(s.tags, id)
	return nil
}

// SaveAssignment records the tag chosen for a document
func (s *TagStore) SaveAssignment(ctx context.Context, assignment *domain.TagAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *assignment
	s.assignments[assignment.DocumentID] = &cp
	return nil
}

// GetAssignment retrieves the latest assignment of a document
func (s *TagStore) GetAssignment(ctx context.Context, documentID string) (*domain.TagAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// indexable reports whether chromem can hold the vector.
// Zero vectors cannot be normalized and never match, so they are not indexed.
func indexable(v []float64) bool {
	for _, x := range v {
		if x != 0 && !math.IsNaN(x) {
			return true
		}
	}
	return false
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
