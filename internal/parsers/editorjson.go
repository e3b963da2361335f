package parsers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

var _ driven.DocumentParser = (*EditorJSONParser)(nil)

// EditorMIMEType is the MIME type of rich-text editor JSON documents.
const EditorMIMEType = "application/vnd.editor+json"

// EditorJSONParser parses the JSON document model of ProseMirror-style editors
// (TipTap node names). Node identifiers live in attrs.dataNodeId.
type EditorJSONParser struct{}

type editorNode struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []editorNode   `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// id returns the node identifier, if any.
func (n *editorNode) id() string {
	for _, key := range []string{"dataNodeId", "id"} {
		if v, ok := n.Attrs[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (n *editorNode) attr(key string) string {
	v, _ := n.Attrs[key].(string)
	return v
}

var editorBlockKinds = map[string]domain.NodeKind{
	"heading":    domain.NodeKindHeading,
	"paragraph":  domain.NodeKindParagraph,
	"listItem":   domain.NodeKindListItem,
	"taskItem":   domain.NodeKindListItem,
	"blockquote": domain.NodeKindBlockquote,
	"codeBlock":  domain.NodeKindCode,
	"text":       domain.NodeKindText,
}

var editorContainerKinds = map[string]domain.ContainerKind{
	"doc":         domain.ContainerRoot,
	"bulletList":  domain.ContainerList,
	"orderedList": domain.ContainerList,
	"taskList":    domain.ContainerList,
	"table":       domain.ContainerTable,
	"tableRow":    domain.ContainerTable,
	"tableCell":   domain.ContainerTable,
	"tableHeader": domain.ContainerTable,
}

func (p *EditorJSONParser) Parse(content string, mimeType string) (*domain.Container, error) {
	var doc editorNode
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode editor document: %w: %v", domain.ErrInvalidInput, err)
	}

	node := p.convert(&doc)
	if root, ok := node.(*domain.Container); ok && root.Kind == domain.ContainerRoot {
		return root, nil
	}
	if node == nil {
		return domain.NewRoot(), nil
	}
	return domain.NewRoot(node), nil
}

// convert maps an editor node onto the typed tree. An eligible node with an
// identifier becomes one leaf; without one it is traversed like a container.
func (p *EditorJSONParser) convert(n *editorNode) domain.Node {
	if n.Type == "image" {
		id := n.id()
		if id == "" {
			return nil
		}
		return &domain.Image{ID: id, Alt: n.attr("alt"), Src: n.attr("src")}
	}

	if kind, ok := editorBlockKinds[n.Type]; ok {
		if id := n.id(); id != "" {
			var sb strings.Builder
			flattenEditor(n, &sb)
			return &domain.Block{ID: id, Kind: kind, Text: sb.String()}
		}
	}

	kind, ok := editorContainerKinds[n.Type]
	if !ok {
		kind = domain.ContainerOther
	}
	c := &domain.Container{Kind: kind}
	for i := range n.Content {
		if child := p.convert(&n.Content[i]); child != nil {
			c.Append(child)
		}
	}
	if len(c.Children) == 0 && kind != domain.ContainerRoot {
		return nil
	}
	return c
}

// flattenEditor writes the inline text of n. Block-level children are
// separated by a newline; whitespace is normalized later by the extractor.
func flattenEditor(n *editorNode, sb *strings.Builder) {
	switch n.Type {
	case "text":
		sb.WriteString(n.Text)
		return
	case "hardBreak":
		sb.WriteByte('\n')
		return
	case "mention":
		sb.WriteString("@" + n.attr("label"))
		return
	case "image":
		return
	}
	for i := range n.Content {
		child := &n.Content[i]
		if _, inline := editorInline[child.Type]; !inline && sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		flattenEditor(child, sb)
	}
}

var editorInline = map[string]struct{}{
	"text":      {},
	"hardBreak": {},
	"mention":   {},
}

func (p *EditorJSONParser) SupportedTypes() []string {
	return []string{EditorMIMEType, "application/json"}
}

func (p *EditorJSONParser) Priority() int {
	return 90 // Editor-specific
}
