package driving

import (
	"context"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// CreateTagRequest describes a new tag
type CreateTagRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateTagRequest changes a tag; nil fields are left untouched
type UpdateTagRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// TagService manages an owner's tags and keeps their label embeddings fresh
type TagService interface {
	// Create creates a tag and embeds its label when an embedder is available
	Create(ctx context.Context, ownerID string, req CreateTagRequest) (*domain.Tag, error)

	// Update changes a tag, re-embedding its label if it changed
	Update(ctx context.Context, ownerID, id string, req UpdateTagRequest) (*domain.Tag, error)

	// Get retrieves a tag by ID
	Get(ctx context.Context, ownerID, id string) (*domain.Tag, error)

	// List retrieves all tags of an owner
	List(ctx context.Context, ownerID string) ([]*domain.Tag, error)

	// Delete deletes a tag
	Delete(ctx context.Context, ownerID, id string) error

	// RefreshEmbeddings re-embeds every tag of an owner and returns how many were updated
	RefreshEmbeddings(ctx context.Context, ownerID string) (int, error)
}

// MatchRequest scores a raw vector against an owner's tags
type MatchRequest struct {
	Vector    []float64 `json:"vector"`
	Threshold *float64  `json:"threshold,omitempty"`
}

// MatchResponse is a match result with the candidates that could not be scored
type MatchResponse struct {
	Result   domain.MatchResult `json:"result"`
	Excluded []string           `json:"excluded,omitempty"`
}

// AutoTagService assigns documents to the best-matching tag
type AutoTagService interface {
	// AutoTag resolves and stores the tag of a document.
	// On fallback the owner's configured fallback tag (possibly none) is assigned.
	AutoTag(ctx context.Context, ownerID, documentID string) (*domain.TagAssignment, error)

	// Match runs the matcher against an owner's tags without embedding anything
	Match(ctx context.Context, ownerID string, req MatchRequest) (*MatchResponse, error)
}
