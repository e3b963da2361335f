package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TagStore = (*TagStore)(nil)

// uniqueViolation is the PostgreSQL error code for a unique constraint failure
const uniqueViolation = "23505"

// TagStore implements driven.TagStore using PostgreSQL
type TagStore struct {
	db *DB
}

// NewTagStore creates a new TagStore
func NewTagStore(db *DB) *TagStore {
	return &TagStore{db: db}
}

const tagColumns = `id, owner_id, name, description, embedding, embedded_at, created_at, updated_at`

// Save creates or updates a tag
func (s *TagStore) Save(ctx context.Context, tag *domain.Tag) error {
	query := `
		INSERT INTO tags (id, owner_id, name, description, embedding, embedded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			embedding = EXCLUDED.embedding,
			embedded_at = EXCLUDED.embedded_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		tag.ID,
		tag.OwnerID,
		tag.Name,
		tag.Description,
		embeddingArray(tag.Embedding),
		NullTime(tag.EmbeddedAt),
		tag.CreatedAt,
		tag.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves a tag by ID
func (s *TagStore) Get(ctx context.Context, id string) (*domain.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByName retrieves an owner's tag by name
func (s *TagStore) GetByName(ctx context.Context, ownerID, name string) (*domain.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE owner_id = $1 AND name = $2`
	return s.getOne(ctx, query, ownerID, name)
}

func (s *TagStore) getOne(ctx context.Context, query string, args ...any) (*domain.Tag, error) {
	tag, err := scanTag(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return tag, err
}

// ListByOwner retrieves all tags of an owner ordered by name
func (s *TagStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE owner_id = $1 ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}

// ListCandidates returns the embedded tags of an owner as candidate vectors
func (s *TagStore) ListCandidates(ctx context.Context, ownerID string) ([]domain.CandidateVector, error) {
	query := `
		SELECT id, embedding
		FROM tags
		WHERE owner_id = $1 AND embedding IS NOT NULL AND cardinality(embedding) > 0
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []domain.CandidateVector
	for rows.Next() {
		var id string
		var vector pq.Float64Array
		if err := rows.Scan(&id, &vector); err != nil {
			return nil, err
		}
		candidates = append(candidates, domain.CandidateVector{ID: id, Vector: []float64(vector), OwnerID: ownerID})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return candidates, nil
}

// Delete deletes a tag
func (s *TagStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// SaveAssignment records the tag chosen for a document, replacing any earlier one
func (s *TagStore) SaveAssignment(ctx context.Context, assignment *domain.TagAssignment) error {
	query := `
		INSERT INTO tag_assignments (document_id, owner_id, tag_id, score, fallback, reason, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id) DO UPDATE SET
			tag_id = EXCLUDED.tag_id,
			score = EXCLUDED.score,
			fallback = EXCLUDED.fallback,
			reason = EXCLUDED.reason,
			assigned_at = EXCLUDED.assigned_at
	`

	_, err := s.db.ExecContext(ctx, query,
		assignment.DocumentID,
		assignment.OwnerID,
		nullIfEmpty(assignment.TagID),
		assignment.Score,
		assignment.Fallback,
		string(assignment.Reason),
		assignment.AssignedAt,
	)
	return err
}

// GetAssignment retrieves the latest assignment of a document
func (s *TagStore) GetAssignment(ctx context.Context, documentID string) (*domain.TagAssignment, error) {
	query := `
		SELECT document_id, owner_id, tag_id, score, fallback, reason, assigned_at
		FROM tag_assignments
		WHERE document_id = $1
	`

	var a domain.TagAssignment
	var tagID sql.NullString
	var reason string
	err := s.db.QueryRowContext(ctx, query, documentID).Scan(
		&a.DocumentID,
		&a.OwnerID,
		&tagID,
		&a.Score,
		&a.Fallback,
		&reason,
		&a.AssignedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.TagID = tagID.String
	a.Reason = domain.MatchReason(reason)
	return &a, nil
}

func scanTag(row rowScanner) (*domain.Tag, error) {
	var tag domain.Tag
	var embedding pq.Float64Array
	var embeddedAt sql.NullTime

	err := row.Scan(
		&tag.ID,
		&tag.OwnerID,
		&tag.Name,
		&tag.Description,
		&embedding,
		&embeddedAt,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(embedding) > 0 {
		tag.Embedding = []float64(embedding)
	}
	tag.EmbeddedAt = TimePtr(embeddedAt)
	return &tag, nil
}
