package driving

import (
	"context"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// SaveDocumentRequest carries editor output for a note
type SaveDocumentRequest struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	MimeType string            `json:"mime_type"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DocumentService manages an owner's notes.
// Every call is scoped to ownerID; documents of other owners are reported as not found.
type DocumentService interface {
	// Save creates or updates a document and schedules it for indexing
	Save(ctx context.Context, ownerID string, req SaveDocumentRequest) (*domain.Document, error)

	// Get retrieves a document by ID
	Get(ctx context.Context, ownerID, id string) (*domain.Document, error)

	// GetWithChunks retrieves a document with its chunks
	GetWithChunks(ctx context.Context, ownerID, id string) (*domain.DocumentWithChunks, error)

	// List retrieves an owner's documents with pagination
	List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error)

	// Count returns the number of documents an owner has
	Count(ctx context.Context, ownerID string) (int, error)

	// Delete deletes a document and its chunks
	Delete(ctx context.Context, ownerID, id string) error
}
