package parsers

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

var _ driven.DocumentParser = (*HTMLParser)(nil)

// nodeIDAttr carries node identifiers in editor HTML output.
const nodeIDAttr = "data-node-id"

// HTMLParser parses editor HTML. Identifiers are read from data-node-id.
type HTMLParser struct{}

var htmlBlockKinds = map[string]domain.NodeKind{
	"h1":         domain.NodeKindHeading,
	"h2":         domain.NodeKindHeading,
	"h3":         domain.NodeKindHeading,
	"h4":         domain.NodeKindHeading,
	"h5":         domain.NodeKindHeading,
	"h6":         domain.NodeKindHeading,
	"p":          domain.NodeKindParagraph,
	"li":         domain.NodeKindListItem,
	"blockquote": domain.NodeKindBlockquote,
	"pre":        domain.NodeKindCode,
}

var htmlContainerKinds = map[string]domain.ContainerKind{
	"ul":    domain.ContainerList,
	"ol":    domain.ContainerList,
	"table": domain.ContainerTable,
	"thead": domain.ContainerTable,
	"tbody": domain.ContainerTable,
	"tfoot": domain.ContainerTable,
	"tr":    domain.ContainerTable,
	"td":    domain.ContainerTable,
	"th":    domain.ContainerTable,
}

// htmlSkipped elements never contribute text.
var htmlSkipped = map[string]struct{}{
	"script":   {},
	"style":    {},
	"template": {},
	"noscript": {},
	"head":     {},
}

// htmlBreaking elements separate the text around them when flattened.
var htmlBreaking = map[string]struct{}{
	"br": {}, "p": {}, "div": {}, "li": {}, "pre": {}, "blockquote": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"tr": {}, "td": {}, "th": {}, "ul": {}, "ol": {}, "section": {}, "article": {},
}

func (p *HTMLParser) Parse(content string, mimeType string) (*domain.Container, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w: %v", domain.ErrInvalidInput, err)
	}

	root := domain.NewRoot()
	doc.Find("body").Children().Each(func(_ int, s *goquery.Selection) {
		if child := p.convert(s); child != nil {
			root.Append(child)
		}
	})
	return root, nil
}

// convert maps one element onto the typed tree. An eligible element with an
// identifier becomes one leaf; without one it is traversed like a container.
func (p *HTMLParser) convert(s *goquery.Selection) domain.Node {
	name := goquery.NodeName(s)
	if _, skip := htmlSkipped[name]; skip {
		return nil
	}
	id := strings.TrimSpace(s.AttrOr(nodeIDAttr, ""))

	if name == "img" {
		if id == "" {
			return nil
		}
		return &domain.Image{ID: id, Alt: s.AttrOr("alt", ""), Src: s.AttrOr("src", "")}
	}

	if kind, ok := htmlBlockKinds[name]; ok && id != "" {
		var sb strings.Builder
		flattenHTML(s, &sb)
		return &domain.Block{ID: id, Kind: kind, Text: sb.String()}
	}

	kind, ok := htmlContainerKinds[name]
	if !ok {
		kind = domain.ContainerOther
	}
	c := &domain.Container{Kind: kind}
	s.Children().Each(func(_ int, child *goquery.Selection) {
		if n := p.convert(child); n != nil {
			c.Append(n)
		}
	})
	if len(c.Children) == 0 {
		return nil
	}
	return c
}

// flattenHTML writes the text content of s, putting a newline around
// block-level descendants so their words do not run together.
func flattenHTML(s *goquery.Selection, sb *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			sb.WriteString(c.Text())
			return
		case name == "#comment":
			return
		}
		if _, skip := htmlSkipped[name]; skip {
			return
		}
		if _, brk := htmlBreaking[name]; brk {
			sb.WriteByte('\n')
			flattenHTML(c, sb)
			sb.WriteByte('\n')
			return
		}
		flattenHTML(c, sb)
	})
}

func (p *HTMLParser) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (p *HTMLParser) Priority() int {
	return 50 // Format-specific
}
