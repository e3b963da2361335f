package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL.
// Node IDs are a TEXT[] and embeddings a DOUBLE PRECISION[] column.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

const chunkColumns = `id, document_id, owner_id, version, mode, content, node_ids, embedding, position, start_char, end_char, created_at`

// ReplaceForDocument atomically replaces all chunks of a document
func (s *ChunkStore) ReplaceForDocument(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("chunks",
			"id", "document_id", "owner_id", "version", "mode", "content",
			"node_ids", "embedding", "position", "start_char", "end_char", "created_at",
		))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			_, err = stmt.ExecContext(ctx,
				chunk.ID,
				documentID,
				chunk.OwnerID,
				chunk.Version,
				string(chunk.Mode),
				chunk.Content,
				pq.StringArray(chunk.NodeIDs),
				embeddingArray(chunk.Embedding),
				chunk.Position,
				chunk.StartChar,
				chunk.EndChar,
				chunk.CreatedAt,
			)
			if err != nil {
				return err
			}
		}

		// Flush the COPY buffer
		_, err = stmt.ExecContext(ctx)
		return err
	})
}

// GetByDocument retrieves all chunks for a document
func (s *ChunkStore) GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	query := `
		SELECT ` + chunkColumns + `
		FROM chunks
		WHERE document_id = $1
		ORDER BY position ASC
	`
	return s.queryChunks(ctx, query, documentID)
}

// GetByNode retrieves the chunks of a document that span the given node
func (s *ChunkStore) GetByNode(ctx context.Context, documentID, nodeID string) ([]*domain.Chunk, error) {
	query := `
		SELECT ` + chunkColumns + `
		FROM chunks
		WHERE document_id = $1 AND node_ids @> ARRAY[$2]::TEXT[]
		ORDER BY position ASC
	`
	return s.queryChunks(ctx, query, documentID, nodeID)
}

// DeleteByDocument deletes all chunks for a document
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	query := `DELETE FROM chunks WHERE document_id = $1`
	_, err := s.db.ExecContext(ctx, query, documentID)
	return err
}

func (s *ChunkStore) queryChunks(ctx context.Context, query string, args ...any) ([]*domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var mode string
		var nodeIDs pq.StringArray
		var embedding pq.Float64Array
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.OwnerID,
			&chunk.Version,
			&mode,
			&chunk.Content,
			&nodeIDs,
			&embedding,
			&chunk.Position,
			&chunk.StartChar,
			&chunk.EndChar,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		chunk.Mode = domain.ChunkMode(mode)
		chunk.NodeIDs = []string(nodeIDs)
		if len(embedding) > 0 {
			chunk.Embedding = []float64(embedding)
		}
		chunks = append(chunks, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return chunks, nil
}

// embeddingArray stores an empty vector as NULL
func embeddingArray(v []float64) any {
	if len(v) == 0 {
		return nil
	}
	return pq.Float64Array(v)
}
