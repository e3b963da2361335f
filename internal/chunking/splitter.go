package chunking

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// Separators is the split cascade, tried in order. A piece still larger than
// the target size after one separator is split again with the next one; a
// hard cut on rune boundaries follows the last.
var Separators = []string{"\n\n", "\n", ". ", " "}

// span is a half-open byte range of the text being split. level is the
// index of the first separator not yet applied to it.
type span struct {
	start, end int
	level      int
}

// Split cuts text into chunks of at most targetSize bytes that overlap by at
// most overlap bytes. Offsets of the returned chunks are absolute offsets
// into text; consecutive chunks never start before their predecessor and the
// union of all chunks covers text exactly.
//
// A chunk exceeds targetSize only when it is a single rune wider than
// targetSize. Empty or whitespace-only text yields no chunks.
func Split(text string, targetSize, overlap int) ([]domain.TextChunk, error) {
	if err := checkConfig(targetSize, overlap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	pieces := cascade(text, span{start: 0, end: len(text)}, 0, targetSize, nil)
	return merge(text, pieces, targetSize, overlap), nil
}

func checkConfig(targetSize, overlap int) error {
	if targetSize <= 0 {
		return fmt.Errorf("%w: target size %d", domain.ErrInvalidChunkConfig, targetSize)
	}
	if overlap < 0 || overlap >= targetSize {
		return fmt.Errorf("%w: overlap %d with target size %d", domain.ErrInvalidChunkConfig, overlap, targetSize)
	}
	return nil
}

// cascade appends the atomic pieces of s to out. Pieces are contiguous and
// keep their separator attached to the end, so they concatenate back to s.
func cascade(text string, s span, level, targetSize int, out []span) []span {
	if s.end-s.start <= targetSize {
		s.level = level
		return append(out, s)
	}
	if level >= len(Separators) {
		return hardCut(text, s, targetSize, out)
	}

	parts := splitKeep(text, s, Separators[level])
	if len(parts) == 1 {
		return cascade(text, s, level+1, targetSize, out)
	}
	for _, p := range parts {
		out = cascade(text, p, level+1, targetSize, out)
	}
	return out
}

// splitKeep splits s after every occurrence of sep.
func splitKeep(text string, s span, sep string) []span {
	var parts []span
	start := s.start
	for start < s.end {
		idx := strings.Index(text[start:s.end], sep)
		if idx < 0 {
			break
		}
		end := start + idx + len(sep)
		parts = append(parts, span{start: start, end: end})
		start = end
	}
	if start < s.end {
		parts = append(parts, span{start: start, end: s.end})
	}
	return parts
}

// refine splits p with the first remaining separator that divides it. It
// returns nil when p is a single token.
func refine(text string, p span) []span {
	for level := p.level; level < len(Separators); level++ {
		parts := splitKeep(text, p, Separators[level])
		if len(parts) > 1 {
			for i := range parts {
				parts[i].level = level + 1
			}
			return parts
		}
	}
	return nil
}

// hardCut slices s into targetSize pieces without splitting a rune.
func hardCut(text string, s span, targetSize int, out []span) []span {
	start := s.start
	for start < s.end {
		end := min(start+targetSize, s.end)
		for end > start && end < s.end && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			// A single rune wider than targetSize.
			_, size := utf8.DecodeRuneInString(text[start:s.end])
			end = start + size
		}
		out = append(out, span{start: start, end: end, level: len(Separators)})
		start = end
	}
	return out
}

// merge greedily packs contiguous pieces into chunks. After a chunk ending at
// e the next one starts inside [e-overlap, e), preferring a piece boundary,
// then a word boundary, and always strictly after the previous start. A
// following piece too large to share a chunk with that tail is split with the
// finer separators first; only a single token may force a zero overlap.
func merge(text string, pieces []span, targetSize, overlap int) []domain.TextChunk {
	var chunks []domain.TextChunk
	n := len(text)
	start := 0

	for {
		// first piece that still has bytes at or after start
		j := sort.Search(len(pieces), func(i int) bool { return pieces[i].end > start })
		end := pieces[j].end
		for j+1 < len(pieces) && pieces[j+1].end-start <= targetSize {
			j++
			end = pieces[j].end
		}

		chunks = append(chunks, domain.TextChunk{
			Text:       text[start:end],
			StartIndex: start,
			EndIndex:   end,
		})
		if end >= n {
			return chunks
		}

		if overlap > 0 {
			pieces = fitFollowing(text, pieces, j+1, max(end-overlap, start+1), targetSize)
		}
		start = nextStart(text, pieces, start, end, pieces[j+1].end, targetSize, overlap)
	}
}

// fitFollowing refines pieces[k] until it fits in a chunk starting at lo, so
// the overlap tail and the next piece can share a chunk. Single tokens are
// left as they are.
func fitFollowing(text string, pieces []span, k, lo, targetSize int) []span {
	for pieces[k].end-lo > targetSize {
		parts := refine(text, pieces[k])
		if parts == nil {
			break
		}
		pieces = append(pieces[:k], append(parts, pieces[k+1:]...)...)
	}
	return pieces
}

// nextStart picks where the chunk after [prevStart, end) begins. following is
// the end of the first piece after end; the next chunk must be able to hold it.
func nextStart(text string, pieces []span, prevStart, end, following, targetSize, overlap int) int {
	if overlap == 0 {
		return end
	}
	lo := max(end-overlap, following-targetSize, prevStart+1)
	if lo >= end {
		return end
	}

	k := sort.Search(len(pieces), func(i int) bool { return pieces[i].start >= lo })
	if k < len(pieces) && pieces[k].start < end {
		return pieces[k].start
	}
	if idx := strings.IndexByte(text[lo:end], ' '); idx >= 0 && lo+idx+1 < end {
		return lo + idx + 1
	}
	for lo < end && !utf8.RuneStart(text[lo]) {
		lo++
	}
	return lo
}
