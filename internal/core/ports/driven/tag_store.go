package driven

import (
	"context"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// TagStore handles owner-scoped tags and their label embeddings
type TagStore interface {
	// Save creates or updates a tag
	Save(ctx context.Context, tag *domain.Tag) error

	// Get retrieves a tag by ID
	Get(ctx context.Context, id string) (*domain.Tag, error)

	// GetByName retrieves an owner's tag by name
	GetByName(ctx context.Context, ownerID, name string) (*domain.Tag, error)

	// ListByOwner retrieves all tags of an owner ordered by name
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Tag, error)

	// ListCandidates returns the embedded tags of an owner as candidate vectors.
	// Tags without an embedding are not candidates.
	ListCandidates(ctx context.Context, ownerID string) ([]domain.CandidateVector, error)

	// Delete deletes a tag
	Delete(ctx context.Context, id string) error

	// SaveAssignment records the tag chosen for a document
	SaveAssignment(ctx context.Context, assignment *domain.TagAssignment) error

	// GetAssignment retrieves the latest assignment of a document
	GetAssignment(ctx context.Context, documentID string) (*domain.TagAssignment, error)
}
