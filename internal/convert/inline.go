package convert

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/gerunddev/wikibridge/internal/storage"
)

type inlineKind int

const (
	inlineText inlineKind = iota
	inlineCode
	inlineStrong
	inlineEmphasis
	inlineStrike
	inlineLink
	inlineImage
	inlineMention
	inlineStatus
	inlineWidget
	inlineCommentStart
	inlineCommentEnd
	inlineComment
	inlineBreak
)

// inlineNode is one node of a parsed text run
type inlineNode struct {
	kind     inlineKind
	text     string
	target   string
	marker   Marker
	children []inlineNode
}

// inlineParser lexes a text run into inline nodes. Structured markers are
// lexed whole, so emphasis and link rules never look inside them.
type inlineParser struct {
	s      string
	pos    int
	failed map[string]bool
}

func parseInline(s string) []inlineNode {
	p := &inlineParser{s: s, failed: make(map[string]bool)}
	nodes, _ := p.parse("")
	return resolveComments(nodes)
}

// parse consumes nodes until closer. With an empty closer it runs to the
// end of input; otherwise it reports whether the closer was found.
func (p *inlineParser) parse(closer string) ([]inlineNode, bool) {
	var nodes []inlineNode
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, inlineNode{kind: inlineText, text: text.String()})
			text.Reset()
		}
	}
	push := func(n inlineNode) {
		flush()
		nodes = append(nodes, n)
	}

	for p.pos < len(p.s) {
		if closer != "" && p.atCloser(closer) {
			flush()
			p.pos += len(closer)
			return nodes, true
		}

		c := p.s[p.pos]
		rest := p.s[p.pos:]
		switch {
		case c == '\\' && p.pos+1 < len(p.s) && isASCIIPunct(p.s[p.pos+1]):
			text.WriteByte(p.s[p.pos+1])
			p.pos += 2
			continue
		case c == '\n':
			push(inlineNode{kind: inlineBreak})
			p.pos++
			continue
		case c == '`':
			if n, ok := p.codeSpan(); ok {
				push(n)
				continue
			}
			run := countLeadingChars(rest, '`')
			text.WriteString(rest[:run])
			p.pos += run
			continue
		case strings.HasPrefix(rest, markerOpen):
			if m, n, ok := ParseMarker(rest); ok {
				if node, keep := markerNode(m); keep {
					push(node)
				}
				p.pos += n
				continue
			}
		case c == '!' && strings.HasPrefix(rest, "!["):
			if n, ok := p.link(true); ok {
				push(n)
				continue
			}
		case c == '[':
			if n, ok := p.link(false); ok {
				push(n)
				continue
			}
		case strings.HasPrefix(rest, "**"):
			if n, ok := p.delimited("**", inlineStrong); ok {
				push(n)
				continue
			}
			text.WriteString("**")
			p.pos += 2
			continue
		case strings.HasPrefix(rest, "~~"):
			if n, ok := p.delimited("~~", inlineStrike); ok {
				push(n)
				continue
			}
			text.WriteString("~~")
			p.pos += 2
			continue
		case c == '*':
			if n, ok := p.delimited("*", inlineEmphasis); ok {
				push(n)
				continue
			}
		}

		text.WriteByte(c)
		p.pos++
	}

	flush()
	return nodes, closer == ""
}

// atCloser reports whether the closing delimiter starts at the current
// position. A closer must follow non-space text.
func (p *inlineParser) atCloser(closer string) bool {
	if !strings.HasPrefix(p.s[p.pos:], closer) {
		return false
	}
	if closer == "*" && strings.HasPrefix(p.s[p.pos:], "**") {
		return false
	}
	return p.pos > 0 && p.s[p.pos-1] != ' ' && p.s[p.pos-1] != '\n'
}

func (p *inlineParser) delimited(delim string, kind inlineKind) (inlineNode, bool) {
	start := p.pos
	key := delim + ":" + strconv.Itoa(start)
	if p.failed[key] {
		return inlineNode{}, false
	}

	p.pos += len(delim)
	if p.pos >= len(p.s) || p.s[p.pos] == ' ' || p.s[p.pos] == '\n' {
		p.pos = start
		return inlineNode{}, false
	}

	children, ok := p.parse(delim)
	if !ok || len(children) == 0 {
		p.failed[key] = true
		p.pos = start
		return inlineNode{}, false
	}
	return inlineNode{kind: kind, children: children}, true
}

func (p *inlineParser) codeSpan() (inlineNode, bool) {
	n := countLeadingChars(p.s[p.pos:], '`')
	end := closingBackticks(p.s, p.pos+n, n)
	if end < 0 {
		return inlineNode{}, false
	}
	content := strings.ReplaceAll(p.s[p.pos+n:end-n], "\n", " ")
	if len(content) >= 2 && content[0] == ' ' && content[len(content)-1] == ' ' && strings.TrimSpace(content) != "" {
		content = content[1 : len(content)-1]
	}
	p.pos = end
	return inlineNode{kind: inlineCode, text: content}, true
}

// link parses [label](target) or, for images, ![alt](target)
func (p *inlineParser) link(image bool) (inlineNode, bool) {
	start := p.pos
	i := start + 1
	if image {
		i++
	}
	labelStart := i

	depth := 1
	for i < len(p.s) {
		switch p.s[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			depth--
		}
		if depth == 0 {
			break
		}
		i++
	}
	if i+1 >= len(p.s) || p.s[i+1] != '(' {
		return inlineNode{}, false
	}
	labelEnd := i

	j := i + 2
	parens := 0
	for ; j < len(p.s); j++ {
		c := p.s[j]
		if c == ' ' || c == '\n' {
			return inlineNode{}, false
		}
		if c == '(' {
			parens++
		}
		if c == ')' {
			if parens == 0 {
				break
			}
			parens--
		}
	}
	if j >= len(p.s) {
		return inlineNode{}, false
	}

	label := p.s[labelStart:labelEnd]
	target := p.s[i+2 : j]
	p.pos = j + 1

	if image {
		return inlineNode{kind: inlineImage, text: unescapeMarkdown(label), target: target}, true
	}
	return inlineNode{
		kind:     inlineLink,
		text:     unescapeMarkdown(label),
		target:   target,
		children: parseInline(label),
	}, true
}

// markerNode maps an inline marker onto a node. Markers that only make
// sense at block level are dropped.
func markerNode(m Marker) (inlineNode, bool) {
	switch m.Kind {
	case KindMention:
		return inlineNode{kind: inlineMention, marker: m}, true
	case KindStatus:
		return inlineNode{kind: inlineStatus, marker: m}, true
	case KindWidget:
		return inlineNode{kind: inlineWidget, marker: m}, true
	case KindCommentStart:
		return inlineNode{kind: inlineCommentStart, marker: m}, true
	case KindCommentEnd:
		return inlineNode{kind: inlineCommentEnd, marker: m}, true
	}
	return inlineNode{}, false
}

// resolveComments pairs comment-range markers into wrapping nodes,
// innermost first. Markers without a partner at the same nesting level
// are dropped.
func resolveComments(nodes []inlineNode) []inlineNode {
	for i := range nodes {
		if len(nodes[i].children) > 0 {
			nodes[i].children = resolveComments(nodes[i].children)
		}
	}

	type frame struct {
		id    string
		nodes []inlineNode
	}
	stack := []frame{{}}
	collapse := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack[len(stack)-1].nodes = append(stack[len(stack)-1].nodes, top.nodes...)
	}

	for _, n := range nodes {
		switch n.kind {
		case inlineCommentStart:
			stack = append(stack, frame{id: n.marker.Get("id")})
		case inlineCommentEnd:
			id := n.marker.Get("id")
			k := -1
			for j := len(stack) - 1; j >= 1; j-- {
				if stack[j].id == id {
					k = j
					break
				}
			}
			if k < 0 {
				continue
			}
			for len(stack)-1 > k {
				collapse()
			}
			top := stack[k]
			stack = stack[:k]
			stack[k-1].nodes = append(stack[k-1].nodes, inlineNode{kind: inlineComment, text: id, children: top.nodes})
		default:
			stack[len(stack)-1].nodes = append(stack[len(stack)-1].nodes, n)
		}
	}
	for len(stack) > 1 {
		collapse()
	}
	return stack[0].nodes
}

// inlineStorage converts a text run to storage markup
func inlineStorage(s string) string {
	var b strings.Builder
	emitInline(&b, parseInline(s))
	return b.String()
}

func emitInline(b *strings.Builder, nodes []inlineNode) {
	for _, n := range nodes {
		switch n.kind {
		case inlineText:
			b.WriteString(storage.EscapeText(n.text))
		case inlineCode:
			b.WriteString("<code>" + storage.EscapeText(n.text) + "</code>")
		case inlineStrong:
			wrapInline(b, "strong", n.children)
		case inlineEmphasis:
			wrapInline(b, "em", n.children)
		case inlineStrike:
			wrapInline(b, "s", n.children)
		case inlineBreak:
			b.WriteString("<br/>")
		case inlineLink:
			emitLink(b, n)
		case inlineImage:
			b.WriteString(imageMarkup(n.target, n.text, "", nil))
		case inlineMention:
			b.WriteString(mentionMarkup(n.marker.Get("id"), n.marker.Get("label")))
		case inlineStatus:
			b.WriteString(statusMarkup(n.marker.Get("color"), n.marker.Get("title")))
		case inlineWidget:
			b.WriteString(widgetMarkup(n.marker))
		case inlineComment:
			b.WriteString(`<ac:inline-comment-marker ac:ref="` + storage.EscapeAttr(n.text) + `">`)
			emitInline(b, n.children)
			b.WriteString("</ac:inline-comment-marker>")
		}
	}
}

func wrapInline(b *strings.Builder, tag string, children []inlineNode) {
	b.WriteString("<" + tag + ">")
	emitInline(b, children)
	b.WriteString("</" + tag + ">")
}

// plainText returns the visible text of nodes
func plainText(nodes []inlineNode) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.kind {
		case inlineText, inlineCode, inlineImage:
			b.WriteString(n.text)
		case inlineBreak:
			b.WriteString("\n")
		default:
			b.WriteString(plainText(n.children))
		}
	}
	return b.String()
}

func isPlain(nodes []inlineNode) bool {
	for _, n := range nodes {
		if n.kind != inlineText {
			return false
		}
	}
	return true
}

func emitLink(b *strings.Builder, n inlineNode) {
	target := n.target
	switch {
	case strings.HasPrefix(target, "page:"):
		ref := strings.TrimPrefix(target, "page:")
		ref, anchor, _ := strings.Cut(ref, "#")
		space, title, ok := strings.Cut(ref, "/")
		if !ok {
			space, title = "", ref
		}
		title = pathUnescape(title)

		b.WriteString("<ac:link")
		if anchor != "" {
			b.WriteString(` ac:anchor="` + storage.EscapeAttr(pathUnescape(anchor)) + `"`)
		}
		b.WriteString("><ri:page")
		if space != "" {
			b.WriteString(` ri:space-key="` + storage.EscapeAttr(pathUnescape(space)) + `"`)
		}
		b.WriteString(` ri:content-title="` + storage.EscapeAttr(title) + `"/>`)
		linkBody(b, n, title)
		b.WriteString("</ac:link>")
	case strings.HasPrefix(target, "attachment:"):
		name := pathUnescape(strings.TrimPrefix(target, "attachment:"))
		b.WriteString(`<ac:link><ri:attachment ri:filename="` + storage.EscapeAttr(name) + `"/>`)
		linkBody(b, n, name)
		b.WriteString("</ac:link>")
	case strings.HasPrefix(target, "#"):
		anchor := pathUnescape(strings.TrimPrefix(target, "#"))
		b.WriteString(`<ac:link ac:anchor="` + storage.EscapeAttr(anchor) + `">`)
		linkBody(b, n, anchor)
		b.WriteString("</ac:link>")
	default:
		b.WriteString(`<a href="` + storage.EscapeAttr(target) + `">`)
		emitInline(b, n.children)
		b.WriteString("</a>")
	}
}

// linkBody writes the link text unless it is the same as the text the
// wiki would show by default
func linkBody(b *strings.Builder, n inlineNode, defaultLabel string) {
	if n.text == "" || n.text == defaultLabel {
		return
	}
	if isPlain(n.children) {
		b.WriteString("<ac:plain-text-link-body>" + cdata(n.text) + "</ac:plain-text-link-body>")
		return
	}
	b.WriteString("<ac:link-body>")
	emitInline(b, n.children)
	b.WriteString("</ac:link-body>")
}

func mentionMarkup(id, label string) string {
	var b strings.Builder
	b.WriteString(`<ac:link><ri:user ri:account-id="` + storage.EscapeAttr(id) + `"/>`)
	if label != "" && label != id {
		b.WriteString("<ac:plain-text-link-body>" + cdata(label) + "</ac:plain-text-link-body>")
	}
	b.WriteString("</ac:link>")
	return b.String()
}

func statusMarkup(color, title string) string {
	var b strings.Builder
	b.WriteString(`<ac:structured-macro ac:name="status">`)
	writeParam(&b, "colour", color)
	writeParam(&b, "title", title)
	b.WriteString("</ac:structured-macro>")
	return b.String()
}

func widgetMarkup(m Marker) string {
	var b strings.Builder
	b.WriteString(`<ac:structured-macro ac:name="` + storage.EscapeAttr(m.Get("name")) + `">`)
	params := make([]MarkerAttr, 0, len(m.Attrs))
	for _, a := range m.Attrs {
		if a.Key != "name" {
			params = append(params, a)
		}
	}
	sort.SliceStable(params, func(i, j int) bool { return params[i].Key < params[j].Key })
	for _, a := range params {
		writeParam(&b, a.Key, a.Val)
	}
	b.WriteString("</ac:structured-macro>")
	return b.String()
}

// imageMarkup builds an ac:image. Block images pass display attributes.
func imageMarkup(target, alt, caption string, display []storage.Attr) string {
	var b strings.Builder
	b.WriteString("<ac:image")
	for _, a := range display {
		b.WriteString(" " + a.Key + `="` + storage.EscapeAttr(a.Val) + `"`)
	}
	if alt != "" {
		b.WriteString(` ac:alt="` + storage.EscapeAttr(alt) + `"`)
	}
	b.WriteString(">")
	if strings.HasPrefix(target, "attachment:") {
		name := pathUnescape(strings.TrimPrefix(target, "attachment:"))
		b.WriteString(`<ri:attachment ri:filename="` + storage.EscapeAttr(name) + `"/>`)
	} else {
		b.WriteString(`<ri:url ri:value="` + storage.EscapeAttr(target) + `"/>`)
	}
	if caption != "" {
		b.WriteString("<ac:caption><p>" + inlineStorage(caption) + "</p></ac:caption>")
	}
	b.WriteString("</ac:image>")
	return b.String()
}

func writeParam(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(`<ac:parameter ac:name="` + storage.EscapeAttr(name) + `">` + storage.EscapeText(value) + "</ac:parameter>")
}

// cdata wraps s in CDATA, splitting any terminator sequence it contains
func cdata(s string) string {
	return "<![CDATA[" + strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>") + "]]>"
}

func pathUnescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// unescapeMarkdown removes backslash escapes from ASCII punctuation
func unescapeMarkdown(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && isASCIIPunct(s[i+1]) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
