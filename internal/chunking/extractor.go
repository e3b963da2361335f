// Package chunking turns a parsed document tree into embeddable chunks that
// remember which structural nodes they came from.
package chunking

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// separator is written between the texts of two consecutive nodes.
const separator = " "

// Normalize collapses every run of whitespace (newlines included) to a single
// space and trims the result.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Extract walks the tree depth-first in document order and builds the flat
// text stream together with one boundary per text-bearing leaf.
//
// Containers are traversed but never bounded. Blocks without an ID and leaves
// whose normalized text is empty contribute nothing to the stream. The tree is
// validated before traversal: a container reachable from itself is rejected
// with domain.ErrCyclicTree, nil nodes with domain.ErrMalformedTree.
func Extract(root domain.Node) (domain.FlatTextStream, []domain.NodeBoundary, error) {
	if err := Validate(root); err != nil {
		return domain.FlatTextStream{}, nil, err
	}

	e := &extractor{}
	e.walk(root)
	return domain.FlatTextStream{Text: e.buf.String()}, e.boundaries, nil
}

// Validate checks that the tree is finite and well formed.
// Shared subtrees are allowed; a container that is its own ancestor is not.
func Validate(root domain.Node) error {
	return validate(root, make(map[*domain.Container]bool), nil)
}

func validate(n domain.Node, onPath map[*domain.Container]bool, path []int) error {
	switch v := n.(type) {
	case nil:
		return fmt.Errorf("%w: nil node at %v", domain.ErrMalformedTree, path)
	case *domain.Container:
		if v == nil {
			return fmt.Errorf("%w: nil container at %v", domain.ErrMalformedTree, path)
		}
		if onPath[v] {
			return fmt.Errorf("%w: container at %v is its own ancestor", domain.ErrCyclicTree, path)
		}
		onPath[v] = true
		for i, child := range v.Children {
			if err := validate(child, onPath, append(path, i)); err != nil {
				return err
			}
		}
		delete(onPath, v)
	case *domain.Block:
		if v == nil {
			return fmt.Errorf("%w: nil block at %v", domain.ErrMalformedTree, path)
		}
		if !v.Kind.IsValid() || v.Kind == domain.NodeKindImage {
			return fmt.Errorf("%w: block %q has kind %q", domain.ErrMalformedTree, v.ID, v.Kind)
		}
	case *domain.Image:
		if v == nil {
			return fmt.Errorf("%w: nil image at %v", domain.ErrMalformedTree, path)
		}
	}
	return nil
}

type extractor struct {
	buf        strings.Builder
	boundaries []domain.NodeBoundary
}

func (e *extractor) walk(n domain.Node) {
	switch v := n.(type) {
	case *domain.Container:
		for _, child := range v.Children {
			e.walk(child)
		}
	case *domain.Block:
		if v.ID == "" {
			return
		}
		e.emit(v.ID, v.Kind, Normalize(v.Text))
	case *domain.Image:
		if v.ID == "" {
			return
		}
		e.emit(v.ID, domain.NodeKindImage, Normalize(v.Alt+" "+v.Src))
	}
}

func (e *extractor) emit(id string, kind domain.NodeKind, text string) {
	if text == "" {
		return
	}
	if e.buf.Len() > 0 {
		e.buf.WriteString(separator)
	}
	start := e.buf.Len()
	e.buf.WriteString(text)
	e.boundaries = append(e.boundaries, domain.NodeBoundary{
		NodeID:     id,
		Kind:       kind,
		StartIndex: start,
		EndIndex:   e.buf.Len(),
	})
}

// Paragraphs returns the normalized texts of the given boundaries in order.
// Headings are included; they read as the first paragraph of a note.
func Paragraphs(stream domain.FlatTextStream, boundaries []domain.NodeBoundary) []string {
	out := make([]string, 0, len(boundaries))
	for _, b := range boundaries {
		if b.Kind == domain.NodeKindImage {
			continue
		}
		out = append(out, stream.Slice(b.StartIndex, b.EndIndex))
	}
	return out
}

// Excerpt returns the first k non-empty normalized paragraphs of content,
// joined by a single space. Paragraphs are separated by blank lines.
func Excerpt(content string, k int) string {
	if k <= 0 {
		return ""
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	parts := make([]string, 0, k)
	for _, raw := range strings.Split(content, "\n\n") {
		p := Normalize(raw)
		if p == "" {
			continue
		}
		parts = append(parts, p)
		if len(parts) == k {
			break
		}
	}
	return strings.Join(parts, " ")
}
