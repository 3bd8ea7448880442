package storage

import "strings"

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// EscapeText escapes character data for storage markup
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// EscapeAttr escapes an attribute value for storage markup
func EscapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// Render serializes nodes back to storage markup
func Render(nodes ...*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		n.render(&b)
	}
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	switch n.Type {
	case TextNode:
		b.WriteString(EscapeText(n.Data))
	case CDATANode:
		b.WriteString(cdataOpen)
		b.WriteString(n.Data)
		b.WriteString(cdataClose)
	case CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Data)
		b.WriteString("-->")
	case ElementNode:
		b.WriteByte('<')
		b.WriteString(n.Name)
		for _, a := range n.Attrs {
			b.WriteByte(' ')
			b.WriteString(a.Key)
			b.WriteString(`="`)
			b.WriteString(EscapeAttr(a.Val))
			b.WriteByte('"')
		}
		if len(n.Children) == 0 && (n.SelfClosing || voidElements[n.Name]) {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			c.render(b)
		}
		b.WriteString("</")
		b.WriteString(n.Name)
		b.WriteByte('>')
	}
}
