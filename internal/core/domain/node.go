package domain

// NodeKind identifies the structural role of a boundary-bearing node
type NodeKind string

const (
	NodeKindHeading    NodeKind = "heading"
	NodeKindParagraph  NodeKind = "paragraph"
	NodeKindListItem   NodeKind = "list_item"
	NodeKindBlockquote NodeKind = "blockquote"
	NodeKindCode       NodeKind = "code"
	NodeKindImage      NodeKind = "image"
	NodeKindText       NodeKind = "text"
)

// IsValid returns true if the kind is a known node kind
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeKindHeading, NodeKindParagraph, NodeKindListItem,
		NodeKindBlockquote, NodeKindCode, NodeKindImage, NodeKindText:
		return true
	}
	return false
}

// ContainerKind identifies a structural node that only groups children
type ContainerKind string

const (
	ContainerRoot  ContainerKind = "root"
	ContainerList  ContainerKind = "list"
	ContainerTable ContainerKind = "table"
	ContainerOther ContainerKind = "other"
)

// Node is a node of a parsed document tree.
// The set of implementations is closed: *Container, *Block and *Image.
type Node interface {
	node()
}

// Container groups child nodes. Containers never produce a boundary.
type Container struct {
	Kind     ContainerKind `json:"kind"`
	Children []Node        `json:"children"`
}

// Block is a text-bearing leaf (heading, paragraph, list item, blockquote, code block).
// Text holds the flattened inline content of the source node.
type Block struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`
	Text string   `json:"text"`
}

// Image is an image leaf; its payload is alt text followed by source.
type Image struct {
	ID  string `json:"id"`
	Alt string `json:"alt"`
	Src string `json:"src"`
}

func (*Container) node() {}
func (*Block) node()     {}
func (*Image) node()     {}

// NewRoot creates a root container holding the given children
func NewRoot(children ...Node) *Container {
	return &Container{Kind: ContainerRoot, Children: children}
}

// Append adds children to the container and returns it
func (c *Container) Append(children ...Node) *Container {
	c.Children = append(c.Children, children...)
	return c
}

// Paragraph creates a paragraph block
func Paragraph(id, text string) *Block {
	return &Block{ID: id, Kind: NodeKindParagraph, Text: text}
}

// Heading creates a heading block
func Heading(id, text string) *Block {
	return &Block{ID: id, Kind: NodeKindHeading, Text: text}
}
