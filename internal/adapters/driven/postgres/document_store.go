package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, owner_id, title, mime_type, content, version, tag_id, metadata, created_at, updated_at, indexed_at`

// Save creates or updates a document. The version starts at 1 and is bumped on
// every update; the stored version and timestamps are written back to doc.
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (id, owner_id, title, mime_type, content, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			mime_type = EXCLUDED.mime_type,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			version = documents.version + 1,
			updated_at = NOW()
		RETURNING version, created_at, updated_at
	`

	return s.db.QueryRowContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		doc.MimeType,
		doc.Content,
		metadataJSON,
	).Scan(&doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListByOwner retrieves an owner's documents, most recently updated first
func (s *DocumentStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	return s.queryDocuments(ctx, query, ownerID, limit, offset)
}

// ListUnindexed returns documents whose current version has not been indexed
func (s *DocumentStore) ListUnindexed(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE indexed_version < version AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`
	return s.queryDocuments(ctx, query, updatedBefore, limit)
}

func (s *DocumentStore) queryDocuments(ctx context.Context, query string, args ...any) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

// Delete deletes a document. Chunks and assignments cascade.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// MarkIndexed records that the given version was indexed.
// A stale version (the document changed meanwhile) is ignored.
func (s *DocumentStore) MarkIndexed(ctx context.Context, id string, version int, at time.Time) error {
	query := `
		UPDATE documents
		SET indexed_version = $2, indexed_at = $3
		WHERE id = $1 AND version = $2
	`
	_, err := s.db.ExecContext(ctx, query, id, version, at)
	return err
}

// SetTag records the tag assigned to a document
func (s *DocumentStore) SetTag(ctx context.Context, id, tagID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE documents SET tag_id = $2 WHERE id = $1`, id, nullIfEmpty(tagID))
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// CountByOwner returns the number of documents an owner has
func (s *DocumentStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE owner_id = $1`, ownerID).Scan(&count)
	return count, err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var tagID sql.NullString
	var metadataJSON []byte
	var indexedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Title,
		&doc.MimeType,
		&doc.Content,
		&doc.Version,
		&tagID,
		&metadataJSON,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&indexedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.TagID = tagID.String
	doc.IndexedAt = TimePtr(indexedAt)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	return &doc, nil
}

// expectOneRow maps an update that touched nothing to ErrNotFound
func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
