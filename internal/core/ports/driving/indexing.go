package driving

import (
	"context"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// IndexingService turns documents into stored, node-addressed chunks
type IndexingService interface {
	// IndexDocument parses, chunks and embeds the current version of a document.
	// An empty mode uses the configured default.
	IndexDocument(ctx context.Context, documentID string, mode domain.ChunkMode) (*domain.IndexResult, error)

	// Preview runs parsing and chunking without persisting anything
	Preview(ctx context.Context, content, mimeType string, mode domain.ChunkMode) (*domain.ChunkPreview, error)
}
