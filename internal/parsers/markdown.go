package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

var (
	_ driven.DocumentParser = (*MarkdownParser)(nil)
	_ driven.DocumentParser = (*PlainTextParser)(nil)
)

var (
	mdHeading  = regexp.MustCompile(`^#{1,6}\s+(.*?)\s*#*\s*$`)
	mdListItem = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.*)$`)
	mdImage    = regexp.MustCompile(`^!\[([^\]]*)\]\(\s*([^)\s]*)[^)]*\)$`)
	mdLink     = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	mdEmphasis = regexp.MustCompile("(\\*\\*|__|~~|`)")
)

// positionalIDs numbers nodes in document order.
type positionalIDs struct{ n int }

func (p *positionalIDs) next() string {
	p.n++
	return fmt.Sprintf("md-%d", p.n)
}

// MarkdownParser parses Markdown notes. Markdown carries no node identifiers,
// so nodes are numbered md-1, md-2, ... in document order.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(content string, mimeType string) (*domain.Container, error) {
	b := &markdownBuilder{root: domain.NewRoot()}
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			b.flush()

		case strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~"):
			b.flush()
			fence := trimmed[:3]
			var code []string
			for i++; i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), fence); i++ {
				code = append(code, lines[i])
			}
			b.block(domain.NodeKindCode, strings.Join(code, "\n"))

		case mdHeading.MatchString(trimmed):
			b.flush()
			b.block(domain.NodeKindHeading, mdHeading.FindStringSubmatch(trimmed)[1])

		case mdImage.MatchString(trimmed):
			b.flush()
			m := mdImage.FindStringSubmatch(trimmed)
			b.image(m[1], m[2])

		case mdListItem.MatchString(line):
			b.flushParagraph()
			b.listItem(mdListItem.FindStringSubmatch(line)[1])

		case strings.HasPrefix(trimmed, ">"):
			if b.kind != domain.NodeKindBlockquote {
				b.flush()
				b.kind = domain.NodeKindBlockquote
			}
			b.lines = append(b.lines, strings.TrimSpace(strings.TrimPrefix(trimmed, ">")))

		case b.kind == domain.NodeKindListItem && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")):
			// Continuation of the current list item
			b.lines = append(b.lines, trimmed)

		default:
			if b.kind != domain.NodeKindParagraph {
				b.flush()
				b.kind = domain.NodeKindParagraph
			}
			b.lines = append(b.lines, trimmed)
		}
	}
	b.flush()

	return b.root, nil
}

func (p *MarkdownParser) SupportedTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (p *MarkdownParser) Priority() int {
	return 50 // Format-specific
}

// markdownBuilder accumulates the lines of the block being read.
type markdownBuilder struct {
	root  *domain.Container
	list  *domain.Container
	ids   positionalIDs
	kind  domain.NodeKind
	lines []string
}

func (b *markdownBuilder) parent() *domain.Container {
	if b.list != nil {
		return b.list
	}
	return b.root
}

// flushParagraph emits the open block, keeping the current list open.
func (b *markdownBuilder) flushParagraph() {
	if b.kind != "" && len(b.lines) > 0 {
		text := strings.Join(b.lines, "\n")
		if b.kind != domain.NodeKindCode {
			text = stripInline(text)
		}
		b.parent().Append(&domain.Block{ID: b.ids.next(), Kind: b.kind, Text: text})
	}
	b.kind = ""
	b.lines = nil
}

// flush emits the open block and closes the current list.
func (b *markdownBuilder) flush() {
	b.flushParagraph()
	b.list = nil
}

func (b *markdownBuilder) block(kind domain.NodeKind, text string) {
	b.kind = kind
	b.lines = []string{text}
	b.flushParagraph()
}

func (b *markdownBuilder) image(alt, src string) {
	b.root.Append(&domain.Image{ID: b.ids.next(), Alt: alt, Src: src})
}

func (b *markdownBuilder) listItem(text string) {
	if b.list == nil {
		b.list = &domain.Container{Kind: domain.ContainerList}
		b.root.Append(b.list)
	}
	b.kind = domain.NodeKindListItem
	b.lines = []string{text}
}

// stripInline removes link targets and emphasis markers.
func stripInline(text string) string {
	text = mdLink.ReplaceAllString(text, "$1")
	return mdEmphasis.ReplaceAllString(text, "")
}

// PlainTextParser treats blank-line separated runs of text as paragraphs.
// It is the fallback for any content type.
type PlainTextParser struct{}

func (p *PlainTextParser) Parse(content string, mimeType string) (*domain.Container, error) {
	root := domain.NewRoot()
	var ids positionalIDs

	content = strings.ReplaceAll(content, "\r\n", "\n")
	for _, para := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		root.Append(domain.Paragraph(ids.next(), para))
	}
	return root, nil
}

func (p *PlainTextParser) SupportedTypes() []string {
	return []string{"text/plain", "*/*"} // Fallback for any type
}

func (p *PlainTextParser) Priority() int {
	return 1 // Lowest priority - fallback
}
