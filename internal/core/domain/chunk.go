package domain

// ChunkMode selects how the chunking pipeline treats node edges
type ChunkMode string

const (
	// ChunkModeStream splits the whole flat stream; chunks may span nodes and overlap
	ChunkModeStream ChunkMode = "stream"
	// ChunkModeNode confines every chunk to a single node
	ChunkModeNode ChunkMode = "node"
)

// IsValid returns true if the mode is known
func (m ChunkMode) IsValid() bool {
	return m == ChunkModeStream || m == ChunkModeNode
}

// NodeBoundary records the [StartIndex, EndIndex) range of one node's text
// inside a specific FlatTextStream. Offsets are byte offsets.
type NodeBoundary struct {
	NodeID     string   `json:"node_id"`
	Kind       NodeKind `json:"kind"`
	StartIndex int      `json:"start_index"`
	EndIndex   int      `json:"end_index"`
}

// Len returns the byte length of the boundary
func (b NodeBoundary) Len() int {
	return b.EndIndex - b.StartIndex
}

// Overlaps reports whether [start, end) intersects the boundary
func (b NodeBoundary) Overlaps(start, end int) bool {
	return max(start, b.StartIndex) < min(end, b.EndIndex)
}

// FlatTextStream is the normalized text of a document version.
// It is the join key between boundaries and chunks.
type FlatTextStream struct {
	Text string `json:"text"`
}

// Len returns the stream length in bytes
func (s FlatTextStream) Len() int {
	return len(s.Text)
}

// Slice returns the text in [start, end), clamped to the stream
func (s FlatTextStream) Slice(start, end int) string {
	start = max(start, 0)
	end = min(end, len(s.Text))
	if start >= end {
		return ""
	}
	return s.Text[start:end]
}

// TextChunk is a split of a flat stream with its absolute offsets
type TextChunk struct {
	Text       string `json:"text"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// ChunkWithNodeIDs is a chunk annotated with the nodes it spans, in document order
type ChunkWithNodeIDs struct {
	Text       string   `json:"text"`
	NodeIDs    []string `json:"node_ids"`
	StartIndex int      `json:"start_index"`
	EndIndex   int      `json:"end_index"`
}
