package storage

import "strings"

// NodeType identifies the kind of a parsed storage node
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
	CDATANode
	CommentNode
)

// IdentifierKeys are the attributes that carry a stable node identifier,
// in lookup order
var IdentifierKeys = []string{"local-id", "ac:local-id", "ac:macro-id"}

// Attr is a single element attribute
type Attr struct {
	Key string
	Val string
}

// Node is one node of a storage document.
// Start and End are byte offsets into the parsed source.
type Node struct {
	Type        NodeType
	Name        string
	Attrs       []Attr
	Data        string
	Children    []*Node
	Parent      *Node
	SelfClosing bool
	Start       int
	End         int
}

// Document is a parsed storage body
type Document struct {
	Source string
	Nodes  []*Node
}

// Raw returns the exact source bytes of a node
func (d *Document) Raw(n *Node) string {
	return d.Source[n.Start:n.End]
}

// Attr returns the value of an attribute, or "" if absent
func (n *Node) Attr(key string) string {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the attribute is present
func (n *Node) HasAttr(key string) bool {
	for _, a := range n.Attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets or replaces an attribute
func (n *Node) SetAttr(key, val string) {
	for i := range n.Attrs {
		if n.Attrs[i].Key == key {
			n.Attrs[i].Val = val
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Key: key, Val: val})
}

// Identifier returns the node identifier attribute and its key.
// Both are empty when the node carries none.
func (n *Node) Identifier() (key, id string) {
	if n.Type != ElementNode {
		return "", ""
	}
	for _, k := range IdentifierKeys {
		if v := n.Attr(k); v != "" {
			return k, v
		}
	}
	return "", ""
}

// Child returns the first direct child element with the given name
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Type == ElementNode && c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all direct child elements with the given name
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Type == ElementNode && c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Text returns the concatenated text and CDATA content below the node
func (n *Node) Text() string {
	var b strings.Builder
	n.collectText(&b)
	return b.String()
}

func (n *Node) collectText(b *strings.Builder) {
	switch n.Type {
	case TextNode, CDATANode:
		b.WriteString(n.Data)
	case ElementNode:
		for _, c := range n.Children {
			c.collectText(b)
		}
	}
}

// IsBlank reports whether the node is a whitespace-only text node or a comment
func (n *Node) IsBlank() bool {
	switch n.Type {
	case CommentNode:
		return true
	case TextNode:
		return strings.TrimSpace(n.Data) == ""
	}
	return false
}

// Walk visits the node and its descendants in document order.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
