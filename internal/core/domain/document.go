package domain

import "time"

// Document is an owner's note as saved by the editor
type Document struct {
	ID        string            `json:"id"`
	OwnerID   string            `json:"owner_id"`
	Title     string            `json:"title"`
	MimeType  string            `json:"mime_type"`
	Content   string            `json:"content"` // Raw editor output (JSON, HTML or Markdown)
	Version   int               `json:"version"`
	TagID     string            `json:"tag_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	IndexedAt *time.Time        `json:"indexed_at,omitempty"`
}

// Chunk represents a persisted, embeddable chunk of a document
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	OwnerID    string    `json:"owner_id"`
	Version    int       `json:"version"`
	Mode       ChunkMode `json:"mode"`
	Content    string    `json:"content"`
	NodeIDs    []string  `json:"node_ids"`
	Embedding  []float64 `json:"embedding,omitempty"`
	Position   int       `json:"position"` // Chunk position within document
	StartChar  int       `json:"start_char"`
	EndChar    int       `json:"end_char"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocumentWithChunks combines a document with its chunks
type DocumentWithChunks struct {
	Document *Document `json:"document"`
	Chunks   []*Chunk  `json:"chunks"`
}

// IndexResult summarizes one indexing run of a document
type IndexResult struct {
	DocumentID string    `json:"document_id"`
	Version    int       `json:"version"`
	Mode       ChunkMode `json:"mode"`
	Boundaries int       `json:"boundaries"`
	Chunks     int       `json:"chunks"`
	Skipped    int       `json:"skipped"`
	Embedded   int       `json:"embedded"`
	Duration   float64   `json:"duration_seconds"`
}

// ChunkPreview is the unpersisted output of the chunking pipeline
type ChunkPreview struct {
	Stream     FlatTextStream     `json:"stream"`
	Boundaries []NodeBoundary     `json:"boundaries"`
	Chunks     []ChunkWithNodeIDs `json:"chunks"`
	Skipped    int                `json:"skipped"`
}
