package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.ChunkStore    = (*ChunkStore)(nil)
)

// DocumentStore implements driven.DocumentStore in memory
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*storedDocument
}

type storedDocument struct {
	doc            domain.Document
	indexedVersion int
}

// NewDocumentStore creates an empty DocumentStore
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{documents: make(map[string]*storedDocument)}
}

// Save creates or updates a document, bumping its version on update
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored, ok := s.documents[doc.ID]
	if ok {
		doc.Version = stored.doc.Version + 1
		doc.CreatedAt = stored.doc.CreatedAt
		doc.TagID = stored.doc.TagID
		doc.IndexedAt = stored.doc.IndexedAt
	} else {
		stored = &storedDocument{}
		s.documents[doc.ID] = stored
		doc.Version = 1
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	stored.doc = *doc
	return nil
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := stored.doc
	return &cp, nil
}

// ListByOwner retrieves an owner's documents, most recently updated first
func (s *DocumentStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	docs := s.filter(func(d *storedDocument) bool { return d.doc.OwnerID == ownerID })
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdatedAt.After(docs[j].UpdatedAt) })
	return page(docs, limit, offset), nil
}

// ListUnindexed returns documents whose current version has not been indexed
func (s *DocumentStore) ListUnindexed(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Document, error) {
	docs := s.filter(func(d *storedDocument) bool {
		return d.indexedVersion < d.doc.Version && d.doc.UpdatedAt.Before(updatedBefore)
	})
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdatedAt.Before(docs[j].UpdatedAt) })
	return page(docs, limit, 0), nil
}

// Delete deletes a document
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	return nil
}

// MarkIndexed records an indexed version; stale versions are ignored
func (s *DocumentStore) MarkIndexed(ctx context.Context, id string, version int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.doc.Version == version {
		stored.indexedVersion = version
		stored.doc.IndexedAt = &at
	}
	return nil
}

// SetTag records the tag assigned to a document
func (s *DocumentStore) SetTag(ctx context.Context, id, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	stored.doc.TagID = tagID
	return nil
}

// CountByOwner returns the number of documents an owner has
func (s *DocumentStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	return len(s.filter(func(d *storedDocument) bool { return d.doc.OwnerID == ownerID })), nil
}

func (s *DocumentStore) filter(keep func(*storedDocument) bool) []*domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := []*domain.Document{}
	for _, stored := range s.documents {
		if keep(stored) {
			cp := stored.doc
			docs = append(docs, &cp)
		}
	}
	return docs
}

func page(docs []*domain.Document, limit, offset int) []*domain.Document {
	if offset >= len(docs) {
		return []*domain.Document{}
	}
	end := offset + limit
	if limit <= 0 || end > len(docs) {
		end = len(docs)
	}
	return docs[offset:end]
}

// ChunkStore implements driven.ChunkStore in memory
type ChunkStore struct {
	mu         sync.RWMutex
	byDocument map[string][]*domain.Chunk
}

// NewChunkStore creates an empty ChunkStore
func NewChunkStore() *ChunkStore {
	return &ChunkStore{byDocument: make(map[string][]*domain.Chunk)}
}

// ReplaceForDocument replaces all chunks of a document
func (s *ChunkStore) ReplaceForDocument(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]*domain.Chunk, len(chunks))
	for i, chunk := range chunks {
		cp := *chunk
		cp.DocumentID = documentID
		stored[i] = &cp
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
	s.byDocument[documentID] = stored
	return nil
}

// GetByDocument retrieves all chunks for a document ordered by position
func (s *ChunkStore) GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	return s.find(documentID, func(*domain.Chunk) bool { return true }), nil
}

// GetByNode retrieves the chunks of a document that span the given node
func (s *ChunkStore) GetByNode(ctx context.Context, documentID, nodeID string) ([]*domain.Chunk, error) {
	return s.find(documentID, func(c *domain.Chunk) bool {
		for _, id := range c.NodeIDs {
			if id == nodeID {
				return true
			}
		}
		return false
	}), nil
}

// DeleteByDocument deletes all chunks for a document
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byDocument, documentID)
	return nil
}

func (s *ChunkStore) find(documentID string, keep func(*domain.Chunk) bool) []*domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := []*domain.Chunk{}
	for _, chunk := range s.byDocument[documentID] {
		if keep(chunk) {
			cp := *chunk
			chunks = append(chunks, &cp)
		}
	}
	return chunks
}
