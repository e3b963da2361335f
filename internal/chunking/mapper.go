package chunking

import (
	"sort"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// MapNodeIDs returns the IDs of every boundary whose range intersects
// [start, end), in boundary order and without duplicates.
func MapNodeIDs(start, end int, boundaries []domain.NodeBoundary) []string {
	return collect(start, end, boundaries, false)
}

// Mapper maps many chunks against the boundaries of one stream.
// Boundaries are kept sorted by start offset so that each lookup can skip the
// boundaries that end before the chunk.
type Mapper struct {
	boundaries []domain.NodeBoundary
}

// NewMapper creates a mapper over a copy of the given boundaries.
func NewMapper(boundaries []domain.NodeBoundary) *Mapper {
	sorted := make([]domain.NodeBoundary, len(boundaries))
	copy(sorted, boundaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartIndex < sorted[j].StartIndex
	})
	return &Mapper{boundaries: sorted}
}

// NodeIDs returns the node IDs spanned by [start, end).
func (m *Mapper) NodeIDs(start, end int) []string {
	// Extracted boundaries never overlap, so end offsets ascend with start offsets.
	first := sort.Search(len(m.boundaries), func(i int) bool {
		return m.boundaries[i].EndIndex > start
	})
	return collect(start, end, m.boundaries[first:], true)
}

// Annotate attaches node IDs to each chunk.
func (m *Mapper) Annotate(chunks []domain.TextChunk) []domain.ChunkWithNodeIDs {
	out := make([]domain.ChunkWithNodeIDs, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, domain.ChunkWithNodeIDs{
			Text:       c.Text,
			NodeIDs:    m.NodeIDs(c.StartIndex, c.EndIndex),
			StartIndex: c.StartIndex,
			EndIndex:   c.EndIndex,
		})
	}
	return out
}

func collect(start, end int, boundaries []domain.NodeBoundary, sorted bool) []string {
	ids := make([]string, 0, 2)
	seen := make(map[string]struct{}, 2)
	for _, b := range boundaries {
		if sorted && b.StartIndex >= end {
			break
		}
		if b.Overlaps(start, end) {
			if _, ok := seen[b.NodeID]; !ok {
				seen[b.NodeID] = struct{}{}
				ids = append(ids, b.NodeID)
			}
		}
	}
	return ids
}
