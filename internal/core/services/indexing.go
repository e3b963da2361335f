package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-notes/internal/chunking"
	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-notes/internal/metrics"
	"github.com/custodia-labs/sercha-notes/internal/runtime"
)

// Ensure IndexingService implements driving.IndexingService
var _ driving.IndexingService = (*IndexingService)(nil)

const (
	defaultLockTTL   = 5 * time.Minute
	defaultBatchSize = 64
)

// IndexingService coordinates the document indexing pipeline:
//  1. Lock the document
//  2. Parse editor output into a node tree
//  3. Chunk the tree (stream- or node-aligned)
//  4. Embed chunks in batches (if an EmbeddingService is available)
//  5. Replace the stored chunks and mark the version indexed
type IndexingService struct {
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	parsers       driven.ParserRegistry
	lock          driven.DistributedLock
	services      *runtime.Services
	lockTTL       time.Duration
	logger        *slog.Logger
}

// IndexingServiceConfig holds dependencies for IndexingService.
type IndexingServiceConfig struct {
	DocumentStore driven.DocumentStore
	ChunkStore    driven.ChunkStore
	Parsers       driven.ParserRegistry
	Lock          driven.DistributedLock // optional, nil disables per-document locking
	Services      *runtime.Services
	LockTTL       time.Duration
	Logger        *slog.Logger
}

// NewIndexingService creates a new indexing service.
func NewIndexingService(cfg IndexingServiceConfig) *IndexingService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	return &IndexingService{
		documentStore: cfg.DocumentStore,
		chunkStore:    cfg.ChunkStore,
		parsers:       cfg.Parsers,
		lock:          cfg.Lock,
		services:      cfg.Services,
		lockTTL:       lockTTL,
		logger:        logger,
	}
}

// IndexDocument indexes the current version of a document.
func (s *IndexingService) IndexDocument(ctx context.Context, documentID string, mode domain.ChunkMode) (*domain.IndexResult, error) {
	start := time.Now()

	result, err := s.indexDocument(ctx, documentID, mode, start)
	metrics.DocumentsIndexed.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Error("indexing failed", "document_id", documentID, "error", err)
		return nil, err
	}

	s.logger.Info("document indexed",
		"document_id", documentID,
		"version", result.Version,
		"mode", result.Mode,
		"chunks", result.Chunks,
		"embedded", result.Embedded,
		"duration", time.Since(start))
	return result, nil
}

func (s *IndexingService) indexDocument(ctx context.Context, documentID string, mode domain.ChunkMode, start time.Time) (*domain.IndexResult, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id is required: %w", domain.ErrInvalidInput)
	}

	// Step 1: Lock the document
	if s.lock != nil {
		lockName := "index:" + documentID
		acquired, err := s.lock.Acquire(ctx, lockName, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire document lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrIndexInProgress)
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
				s.logger.Warn("failed to release document lock", "document_id", documentID, "error", err)
			}
		}()
	}

	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	settings := s.services.ChunkingSettings()
	if mode == "" {
		mode = settings.Mode
	}

	// Steps 2-3: Parse and chunk
	result, err := s.chunk(doc.Content, doc.MimeType, mode, settings)
	if err != nil {
		return nil, err
	}

	chunks := make([]*domain.Chunk, len(result.Chunks))
	now := time.Now()
	for i, c := range result.Chunks {
		chunks[i] = &domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			OwnerID:    doc.OwnerID,
			Version:    doc.Version,
			Mode:       result.Mode,
			Content:    c.Text,
			NodeIDs:    c.NodeIDs,
			Position:   i,
			StartChar:  c.StartIndex,
			EndChar:    c.EndIndex,
			CreatedAt:  now,
		}
	}

	// Step 4: Embed
	embedded, err := s.embed(ctx, chunks, settings.EmbedBatchSize)
	if err != nil {
		return nil, err
	}

	// Step 5: Store
	if err := s.chunkStore.ReplaceForDocument(ctx, doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("failed to save chunks: %w", err)
	}
	if err := s.documentStore.MarkIndexed(ctx, doc.ID, doc.Version, now); err != nil {
		return nil, fmt.Errorf("failed to mark document indexed: %w", err)
	}

	return &domain.IndexResult{
		DocumentID: doc.ID,
		Version:    doc.Version,
		Mode:       result.Mode,
		Boundaries: len(result.Boundaries),
		Chunks:     len(chunks),
		Skipped:    result.Skipped,
		Embedded:   embedded,
		Duration:   time.Since(start).Seconds(),
	}, nil
}

// Preview parses and chunks content without persisting anything.
func (s *IndexingService) Preview(ctx context.Context, content, mimeType string, mode domain.ChunkMode) (*domain.ChunkPreview, error) {
	settings := s.services.ChunkingSettings()
	if mode == "" {
		mode = settings.Mode
	}

	result, err := s.chunk(content, mimeType, mode, settings)
	if err != nil {
		return nil, err
	}
	return result.Preview(), nil
}

func (s *IndexingService) chunk(content, mimeType string, mode domain.ChunkMode, settings domain.ChunkingSettings) (*chunking.Result, error) {
	root, err := parse(s.parsers, content, mimeType)
	if err != nil {
		return nil, err
	}

	pipeline, err := chunking.New(chunking.WithSettings(settings), chunking.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	result, err := pipeline.Chunk(root, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}
	metrics.RecordChunks(result.Mode, len(result.Chunks), result.Skipped)
	return result, nil
}

// embed fills chunk embeddings batch by batch. Without an embedder chunks are
// stored without vectors.
func (s *IndexingService) embed(ctx context.Context, chunks []*domain.Chunk, batchSize int) (int, error) {
	embedder := s.services.EmbeddingService()
	if embedder == nil || len(chunks) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	embedded := 0
	for lo := 0; lo < len(chunks); lo += batchSize {
		hi := min(lo+batchSize, len(chunks))

		texts := make([]string, 0, hi-lo)
		for _, c := range chunks[lo:hi] {
			texts = append(texts, c.Content)
		}

		start := time.Now()
		vectors, err := embedder.Embed(ctx, texts)
		metrics.ObserveEmbedding("batch", start)
		if err != nil {
			return embedded, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(texts) {
			return embedded, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
		}

		for i, v := range vectors {
			chunks[lo+i].Embedding = v
		}
		embedded += len(vectors)
	}
	return embedded, nil
}

// parse runs the best parser for mimeType. An empty type is plain text.
func parse(parsers driven.ParserRegistry, content, mimeType string) (*domain.Container, error) {
	if mimeType == "" {
		mimeType = "text/plain"
	}
	p := parsers.Get(mimeType)
	if p == nil {
		return nil, fmt.Errorf("%q: %w", mimeType, domain.ErrUnsupportedMimeType)
	}
	root, err := p.Parse(content, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return root, nil
}
