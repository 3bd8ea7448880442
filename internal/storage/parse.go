package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

const (
	cdataOpen  = "<![CDATA["
	cdataClose = "]]>"
)

// voidElements never have children, with or without a self-closing slash
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// ParseError reports structurally invalid storage markup
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("storage parse error at offset %d: %s", e.Offset, e.Msg)
}

// Parse reads storage markup into a node tree.
// Every node records its byte range in src so callers can splice the
// source without re-serializing untouched nodes.
func Parse(src string) (*Document, error) {
	z := html.NewTokenizer(strings.NewReader(src))
	z.AllowCDATA(true)

	doc := &Document{Source: src}
	var stack []*Node
	offset := 0

	appendNode := func(n *Node) {
		if len(stack) == 0 {
			doc.Nodes = append(doc.Nodes, n)
			return
		}
		parent := stack[len(stack)-1]
		n.Parent = parent
		parent.Children = append(parent.Children, n)
	}

	for {
		tt := z.Next()
		raw := z.Raw()
		start := offset
		offset += len(raw)

		switch tt {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return nil, &ParseError{Offset: start, Msg: z.Err().Error()}
			}
			if len(stack) > 0 {
				open := stack[len(stack)-1]
				return nil, &ParseError{Offset: open.Start, Msg: fmt.Sprintf("unclosed element <%s>", open.Name)}
			}
			return doc, nil

		case html.TextToken:
			if rawStr := string(raw); strings.HasPrefix(rawStr, cdataOpen) {
				data := strings.TrimSuffix(strings.TrimPrefix(rawStr, cdataOpen), cdataClose)
				appendNode(&Node{Type: CDATANode, Data: data, Start: start, End: offset})
				continue
			}
			appendNode(&Node{Type: TextNode, Data: string(z.Text()), Start: start, End: offset})

		case html.CommentToken:
			appendNode(&Node{Type: CommentNode, Data: string(z.Text()), Start: start, End: offset})

		case html.StartTagToken, html.SelfClosingTagToken:
			// Storage markup is XHTML: <title> or <iframe> content is markup, not raw text.
			z.NextIsNotRawText()
			name, hasAttr := z.TagName()
			n := &Node{
				Type:        ElementNode,
				Name:        string(name),
				SelfClosing: tt == html.SelfClosingTagToken,
				Start:       start,
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				n.Attrs = append(n.Attrs, Attr{Key: string(key), Val: string(val)})
			}
			appendNode(n)
			if n.SelfClosing || voidElements[n.Name] {
				n.End = offset
				continue
			}
			stack = append(stack, n)

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			if len(stack) == 0 {
				return nil, &ParseError{Offset: start, Msg: fmt.Sprintf("unexpected closing tag </%s>", tag)}
			}
			top := stack[len(stack)-1]
			if top.Name != tag {
				return nil, &ParseError{Offset: start, Msg: fmt.Sprintf("closing tag </%s> does not match <%s>", tag, top.Name)}
			}
			top.End = offset
			stack = stack[:len(stack)-1]
		}
	}
}
