package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// DocumentStore handles document persistence (PostgreSQL)
type DocumentStore interface {
	// Save creates or updates a document. The stored version is incremented on update.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// ListByOwner retrieves an owner's documents with pagination, most recently updated first
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error)

	// Delete deletes a document
	Delete(ctx context.Context, id string) error

	// MarkIndexed records that the given version was indexed at the given time
	MarkIndexed(ctx context.Context, id string, version int, at time.Time) error

	// SetTag records the tag assigned to a document
	SetTag(ctx context.Context, id, tagID string) error

	// CountByOwner returns the number of documents an owner has
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	// ListUnindexed returns documents whose current version has not been indexed,
	// updated before the given time, oldest first
	ListUnindexed(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Document, error)
}

// ChunkStore handles chunk persistence (PostgreSQL)
type ChunkStore interface {
	// ReplaceForDocument atomically replaces all chunks of a document
	ReplaceForDocument(ctx context.Context, documentID string, chunks []*domain.Chunk) error

	// GetByDocument retrieves all chunks for a document ordered by position
	GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error)

	// GetByNode retrieves the chunks of a document that span the given node
	GetByNode(ctx context.Context, documentID, nodeID string) ([]*domain.Chunk, error)

	// DeleteByDocument deletes all chunks for a document
	DeleteByDocument(ctx context.Context, documentID string) error
}
