// Package parsers turns raw editor output into typed node trees.
package parsers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry implements ParserRegistry with priority-based selection.
// When multiple parsers match a MIME type, the highest priority one is used.
type Registry struct {
	mu      sync.RWMutex
	parsers []driven.DocumentParser
}

// NewRegistry creates a new parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make([]driven.DocumentParser, 0),
	}
}

// Register registers a parser.
func (r *Registry) Register(parser driven.DocumentParser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parsers = append(r.parsers, parser)
}

// Get retrieves the best-matching parser for a MIME type.
// Returns nil if no parser is registered for the type.
func (r *Registry) Get(mimeType string) driven.DocumentParser {
	matches := r.GetAll(mimeType)
	if len(matches) == 0 {
		return nil
	}
	return matches[0] // Already sorted by priority (highest first)
}

// GetAll retrieves all parsers that match a MIME type, sorted by priority (highest first).
// Parsers of equal priority keep their registration order.
func (r *Registry) GetAll(mimeType string) []driven.DocumentParser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []driven.DocumentParser
	for _, p := range r.parsers {
		if matchesMIMEType(p.SupportedTypes(), mimeType) {
			matches = append(matches, p)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority() > matches[j].Priority()
	})

	return matches
}

// List returns all registered MIME types.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeSet := make(map[string]struct{})
	for _, p := range r.parsers {
		for _, t := range p.SupportedTypes() {
			typeSet[t] = struct{}{}
		}
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Parse parses content with the best parser for mimeType.
func (r *Registry) Parse(content, mimeType string) (*domain.Container, error) {
	p := r.Get(mimeType)
	if p == nil {
		return nil, fmt.Errorf("%q: %w", mimeType, domain.ErrUnsupportedMimeType)
	}
	return p.Parse(content, mimeType)
}

// normalizeMIMEType lowercases a MIME type and strips its parameters.
func normalizeMIMEType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}

// matchesMIMEType checks if any of the supported types match the given MIME type.
// Supports wildcard matching (e.g., "text/*" matches "text/plain").
func matchesMIMEType(supportedTypes []string, mimeType string) bool {
	mimeType = normalizeMIMEType(mimeType)

	for _, supported := range supportedTypes {
		supported = strings.ToLower(strings.TrimSpace(supported))

		if supported == mimeType || supported == "*/*" {
			return true
		}

		// Wildcard match (e.g., "text/*" matches "text/plain")
		if strings.HasSuffix(supported, "/*") {
			prefix := supported[:len(supported)-1]
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}
		}
	}

	return false
}

// DefaultRegistry creates a registry with the built-in parsers registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(&PlainTextParser{})
	r.Register(&MarkdownParser{})
	r.Register(&HTMLParser{})
	r.Register(&EditorJSONParser{})

	return r
}
