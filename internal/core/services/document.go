package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService implements the DocumentService interface
type documentService struct {
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	taskQueue     driven.TaskQueue
	indexer       driving.IndexingService
	logger        *slog.Logger
}

// DocumentServiceConfig holds dependencies for the document service.
// With a TaskQueue saves are indexed by workers; without one they are
// indexed inline by Indexer (if set).
type DocumentServiceConfig struct {
	DocumentStore driven.DocumentStore
	ChunkStore    driven.ChunkStore
	TaskQueue     driven.TaskQueue
	Indexer       driving.IndexingService
	Logger        *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(cfg DocumentServiceConfig) driving.DocumentService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		documentStore: cfg.DocumentStore,
		chunkStore:    cfg.ChunkStore,
		taskQueue:     cfg.TaskQueue,
		indexer:       cfg.Indexer,
		logger:        logger,
	}
}

// Save creates or updates a document and schedules it for indexing
func (s *documentService) Save(ctx context.Context, ownerID string, req driving.SaveDocumentRequest) (*domain.Document, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	doc := &domain.Document{ID: strings.TrimSpace(req.ID), OwnerID: ownerID}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	} else {
		existing, err := s.documentStore.Get(ctx, doc.ID)
		switch {
		case err == nil:
			if existing.OwnerID != ownerID {
				return nil, domain.ErrNotFound
			}
			doc = existing
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("failed to get document: %w", err)
		}
	}

	doc.Title = strings.TrimSpace(req.Title)
	doc.MimeType = req.MimeType
	doc.Content = req.Content
	doc.Metadata = req.Metadata
	if doc.MimeType == "" {
		doc.MimeType = "text/plain"
	}

	if err := s.documentStore.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.scheduleIndex(ctx, doc)
	return doc, nil
}

// scheduleIndex queues or runs indexing. Failures are logged, not returned:
// the document itself was saved.
func (s *documentService) scheduleIndex(ctx context.Context, doc *domain.Document) {
	if s.taskQueue != nil {
		queued, err := s.taskQueue.Enqueue(ctx, domain.NewIndexDocumentTask(doc.OwnerID, doc.ID))
		if err != nil {
			s.logger.Warn("failed to enqueue index task", "document_id", doc.ID, "error", err)
			return
		}
		if !queued {
			s.logger.Debug("index task already pending", "document_id", doc.ID)
		}
		return
	}

	if s.indexer != nil {
		if _, err := s.indexer.IndexDocument(ctx, doc.ID, ""); err != nil {
			s.logger.Warn("inline indexing failed", "document_id", doc.ID, "error", err)
		}
	}
}

// Get retrieves a document by ID
func (s *documentService) Get(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	return getOwnedDocument(ctx, s.documentStore, ownerID, id)
}

// GetWithChunks retrieves a document with its chunks
func (s *documentService) GetWithChunks(ctx context.Context, ownerID, id string) (*domain.DocumentWithChunks, error) {
	doc, err := getOwnedDocument(ctx, s.documentStore, ownerID, id)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunkStore.GetByDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.DocumentWithChunks{
		Document: doc,
		Chunks:   chunks,
	}, nil
}

// List retrieves an owner's documents with pagination
func (s *documentService) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.documentStore.ListByOwner(ctx, ownerID, limit, offset)
}

// Count returns the number of documents an owner has
func (s *documentService) Count(ctx context.Context, ownerID string) (int, error) {
	return s.documentStore.CountByOwner(ctx, ownerID)
}

// Delete deletes a document and its chunks
func (s *documentService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := getOwnedDocument(ctx, s.documentStore, ownerID, id); err != nil {
		return err
	}
	if err := s.chunkStore.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return s.documentStore.Delete(ctx, id)
}

// getOwnedDocument loads a document, hiding documents of other owners.
func getOwnedDocument(ctx context.Context, store driven.DocumentStore, ownerID, id string) (*domain.Document, error) {
	doc, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}
