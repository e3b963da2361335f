package driven

import (
	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// DocumentParser turns raw editor output into a typed node tree.
type DocumentParser interface {
	// Parse converts raw content into a node tree rooted at a root container.
	// The mimeType helps determine the appropriate processing.
	Parse(content string, mimeType string) (*domain.Container, error)

	// SupportedTypes returns MIME types this parser handles.
	// Can include wildcards like "text/*" or specific types like "text/html".
	SupportedTypes() []string

	// Priority returns the parser priority (higher = more specific).
	// Priority ranges:
	//   90-100: Editor-specific (e.g., editor JSON)
	//   50-89:  Format-specific (HTML, Markdown)
	//   1-9:    Fallback (plain text)
	Priority() int
}

// ParserRegistry manages document parsers.
// When multiple parsers match a MIME type, the highest priority one is used.
type ParserRegistry interface {
	// Get retrieves the best-matching parser for a MIME type.
	// Returns nil if no parser is registered for the type.
	Get(mimeType string) DocumentParser

	// GetAll retrieves all parsers that match a MIME type, sorted by priority (highest first).
	GetAll(mimeType string) []DocumentParser

	// Register registers a parser.
	Register(parser DocumentParser)

	// List returns all registered MIME types.
	List() []string
}
