package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gerunddev/wikibridge/internal/storage"
	"github.com/google/uuid"
)

const placeholderPrefix = "WBTOK"

// keptAttrs are the only attributes passed on to the generic converter
var keptAttrs = map[string]bool{
	"href":  true,
	"src":   true,
	"alt":   true,
	"title": true,
	"start": true,
}

// cellBreakers start a new visual line inside a table cell
var cellBreakers = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "pre": true,
	"blockquote": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "ac:task-list": true, "ac:task": true, "ac:task-body": true,
	"ac:rich-text-body": true, "ac:layout-cell": true,
}

// normalizer rewrites storage nodes into blocks whose storage-specific
// constructs are swapped for placeholder-referenced tokens
type normalizer struct {
	out  *Normalized
	code int
}

func newNormalizer() *normalizer {
	return &normalizer{out: &Normalized{
		Report: NewFidelityReport(),
		nonce:  uuid.New().String()[:8],
	}}
}

// Normalize converts a whole storage document into its typed
// intermediate form
func Normalize(doc *storage.Document) *Normalized {
	n := newNormalizer()
	for _, node := range doc.Nodes {
		n.out.Blocks = append(n.out.Blocks, n.nodeBlocks(node)...)
	}
	return n.out
}

func (n *normalizer) placeholder(t Token) string {
	idx := len(n.out.Tokens)
	n.out.Tokens = append(n.out.Tokens, t)
	return fmt.Sprintf("%s%sN%dE", placeholderPrefix, n.out.nonce, idx)
}

// text escapes character data. Outside code, a literal "&lt;" or "&gt;" is
// swapped for a token so it cannot be read back as an escaped < or >.
func (n *normalizer) text(data string) string {
	if n.code > 0 {
		return storage.EscapeText(data)
	}
	var b strings.Builder
	for {
		i := literalEntity(data)
		if i < 0 {
			break
		}
		b.WriteString(storage.EscapeText(data[:i]))
		b.WriteString(n.placeholder(LiteralToken{Text: data[i : i+4]}))
		data = data[i+4:]
	}
	b.WriteString(storage.EscapeText(data))
	return b.String()
}

func literalEntity(s string) int {
	lt, gt := strings.Index(s, "&lt;"), strings.Index(s, "&gt;")
	if lt < 0 || (gt >= 0 && gt < lt) {
		return gt
	}
	return lt
}

// blockPlaceholder keeps a block token on a line of its own
func (n *normalizer) blockPlaceholder(t Token) string {
	return "<p>" + n.placeholder(t) + "</p>"
}

func (n *normalizer) tokenBlock(kind BlockKind, t Token) Block {
	idx := len(n.out.Tokens)
	n.out.Tokens = append(n.out.Tokens, t)
	return Block{Kind: kind, Ref: idx}
}

func (n *normalizer) genericBlock(markup string) Block {
	return Block{Kind: BlockGeneric, Markup: markup}
}

// nodeBlocks turns one storage node into zero or more blocks
func (n *normalizer) nodeBlocks(node *storage.Node) []Block {
	switch node.Type {
	case storage.CommentNode:
		return nil
	case storage.TextNode, storage.CDATANode:
		if strings.TrimSpace(node.Data) == "" {
			return nil
		}
		return []Block{n.genericBlock("<p>" + n.text(node.Data) + "</p>")}
	}

	switch node.Name {
	case "table":
		return []Block{{Kind: BlockTable, Ref: n.addTable(node)}}
	case "hr":
		return []Block{n.tokenBlock(BlockRule, RuleToken{})}
	case "ac:structured-macro":
		return n.macroBlocks(node)
	case "ac:task-list":
		return []Block{n.tokenBlock(BlockTaskList, n.taskList(node))}
	case "ac:image":
		return []Block{n.tokenBlock(BlockImage, imageToken(node))}
	case "ac:layout":
		n.out.Report.Add(FeaturePageLayout)
		return n.childBlocks(node)
	case "ac:layout-section", "ac:layout-cell":
		return n.childBlocks(node)
	}

	var b strings.Builder
	n.markup(&b, node)
	return []Block{n.genericBlock(b.String())}
}

func (n *normalizer) childBlocks(parent *storage.Node) []Block {
	var blocks []Block
	for _, c := range parent.Children {
		blocks = append(blocks, n.nodeBlocks(c)...)
	}
	return blocks
}

func (n *normalizer) macroBlocks(node *storage.Node) []Block {
	m := readMacro(node)
	kind, feature := ClassifyMacro(m.Name)

	switch kind {
	case MacroCode:
		return []Block{n.tokenBlock(BlockCode, m.codeToken())}
	case MacroPanel:
		return []Block{n.tokenBlock(BlockPanel, n.panelToken(m))}
	case MacroWidget:
		return []Block{n.tokenBlock(BlockWidget, m.widgetToken())}
	case MacroStatus:
		return []Block{n.genericBlock("<p>" + n.placeholder(statusToken(m)) + "</p>")}
	case MacroUnsupported:
		n.out.Report.Add(feature)
	}

	// Unsupported and unrecognized macros keep their literal content
	switch {
	case m.RichBody != nil:
		return n.childBlocks(m.RichBody)
	case m.PlainBody != nil:
		text := m.PlainBody.Text()
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []Block{n.genericBlock("<p>" + n.plainBodyMarkup(text) + "</p>")}
	default:
		return []Block{n.tokenBlock(BlockWidget, m.widgetToken())}
	}
}

func (n *normalizer) panelToken(m macro) PanelToken {
	color, icon, title := m.panelHeader()
	p := PanelToken{Color: color, Icon: icon, Title: title}
	if m.RichBody != nil {
		p.Blocks = n.childBlocks(m.RichBody)
	} else if m.PlainBody != nil {
		p.Blocks = []Block{n.genericBlock("<p>" + n.plainBodyMarkup(m.PlainBody.Text()) + "</p>")}
	}
	return p
}

func statusToken(m macro) StatusToken {
	return StatusToken{Color: m.Params["colour"], Title: m.Params["title"]}
}

func (n *normalizer) plainBodyMarkup(text string) string {
	lines := strings.Split(strings.Trim(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = n.text(l)
	}
	return strings.Join(lines, "<br/>")
}

// markup serializes a node for the generic converter, swapping storage
// constructs for placeholders
func (n *normalizer) markup(b *strings.Builder, node *storage.Node) {
	switch node.Type {
	case storage.TextNode, storage.CDATANode:
		b.WriteString(n.text(node.Data))
		return
	case storage.CommentNode:
		return
	}

	switch node.Name {
	case "ac:structured-macro":
		n.macroMarkup(b, node)
		return
	case "ac:link":
		if t := linkToken(node); t != nil {
			b.WriteString(n.placeholder(t))
		} else {
			b.WriteString(n.text(linkLabel(node)))
		}
		return
	case "a":
		if href := node.Attr("href"); href != "" {
			b.WriteString(n.placeholder(LinkToken{Kind: LinkURL, Target: href, Label: node.Text()}))
			return
		}
	case "ac:image":
		b.WriteString(n.placeholder(imageToken(node)))
		return
	case "ac:inline-comment-marker":
		ref := node.Attr("ac:ref")
		if ref == "" {
			n.markupChildren(b, node)
			return
		}
		b.WriteString(n.placeholder(CommentStartToken{ID: ref}))
		n.markupChildren(b, node)
		b.WriteString(n.placeholder(CommentEndToken{ID: ref}))
		return
	case "ac:emoticon":
		b.WriteString(storage.EscapeText(emoticonText(node)))
		return
	case "ac:placeholder":
		return
	case "ac:task-list":
		b.WriteString(n.blockPlaceholder(n.taskList(node)))
		return
	case "table":
		b.WriteString(n.blockPlaceholder(TableToken{Index: n.addTable(node)}))
		return
	case "time":
		b.WriteString(storage.EscapeText(node.Attr("datetime")))
		return
	case "ac:layout":
		n.out.Report.Add(FeaturePageLayout)
	}

	if strings.HasPrefix(node.Name, "ac:") || strings.HasPrefix(node.Name, "ri:") {
		n.markupChildren(b, node)
		return
	}

	b.WriteByte('<')
	b.WriteString(node.Name)
	for _, a := range node.Attrs {
		if !keptAttrs[a.Key] {
			continue
		}
		fmt.Fprintf(b, ` %s="%s"`, a.Key, storage.EscapeAttr(a.Val))
	}
	if node.Name == "br" || node.Name == "hr" || node.Name == "img" {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	if node.Name == "code" || node.Name == "pre" {
		n.code++
		defer func() { n.code-- }()
	}
	n.markupChildren(b, node)
	b.WriteString("</" + node.Name + ">")
}

func (n *normalizer) markupChildren(b *strings.Builder, node *storage.Node) {
	for _, c := range node.Children {
		n.markup(b, c)
	}
}

func (n *normalizer) macroMarkup(b *strings.Builder, node *storage.Node) {
	m := readMacro(node)
	kind, feature := ClassifyMacro(m.Name)

	switch kind {
	case MacroCode:
		b.WriteString(n.blockPlaceholder(m.codeToken()))
		return
	case MacroStatus:
		b.WriteString(n.placeholder(statusToken(m)))
		return
	case MacroPanel:
		b.WriteString(n.blockPlaceholder(n.panelToken(m)))
		return
	case MacroWidget:
		b.WriteString(n.placeholder(m.widgetToken()))
		return
	case MacroUnsupported:
		n.out.Report.Add(feature)
	}

	switch {
	case m.RichBody != nil:
		n.markupChildren(b, m.RichBody)
	case m.PlainBody != nil:
		b.WriteString(n.plainBodyMarkup(m.PlainBody.Text()))
	default:
		b.WriteString(n.placeholder(m.widgetToken()))
	}
}

func (n *normalizer) taskList(node *storage.Node) TaskListToken {
	var t TaskListToken
	for _, task := range node.ChildrenNamed("ac:task") {
		item := Task{}
		if status := task.Child("ac:task-status"); status != nil {
			item.Done = strings.TrimSpace(status.Text()) == "complete"
		}
		if body := task.Child("ac:task-body"); body != nil {
			var b strings.Builder
			n.markupChildren(&b, body)
			item.Markup = b.String()
		}
		t.Tasks = append(t.Tasks, item)
	}
	return t
}

// addTable flattens a table into the side table and returns its index
func (n *normalizer) addTable(node *storage.Node) int {
	var t Table
	node.Walk(func(c *storage.Node) bool {
		if c == node {
			return true
		}
		switch c.Name {
		case "table":
			return false
		case "tr":
			t.Rows = append(t.Rows, n.tableRow(c))
			return false
		}
		return true
	})
	n.out.Tables = append(n.out.Tables, t)
	return len(n.out.Tables) - 1
}

func (n *normalizer) tableRow(tr *storage.Node) []Cell {
	var row []Cell
	for _, c := range tr.Children {
		if c.Type != storage.ElementNode || (c.Name != "td" && c.Name != "th") {
			continue
		}
		if spans(c.Attr("rowspan")) || spans(c.Attr("colspan")) {
			n.out.Report.Add(FeatureMergedCells)
		}
		lb := &lineBuilder{}
		n.collectCell(lb, c.Children)
		lb.flush()
		row = append(row, Cell{Lines: lb.lines, Background: cellBackground(c)})
	}
	return row
}

func spans(v string) bool {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	return err == nil && i > 1
}

// cellBackground reads the highlight colour of a cell
func cellBackground(c *storage.Node) string {
	if v := c.Attr("data-highlight-colour"); v != "" {
		return v
	}
	for _, decl := range strings.Split(c.Attr("style"), ";") {
		key, val, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(strings.ToLower(key)) == "background-color" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// lineBuilder accumulates the visual lines of a table cell
type lineBuilder struct {
	lines []string
	cur   strings.Builder
}

func (lb *lineBuilder) flush() {
	if s := strings.TrimSpace(lb.cur.String()); s != "" {
		lb.lines = append(lb.lines, s)
	}
	lb.cur.Reset()
}

// collectCell flattens cell content into single-line inline markup
func (n *normalizer) collectCell(lb *lineBuilder, nodes []*storage.Node) {
	for _, c := range nodes {
		switch c.Type {
		case storage.TextNode, storage.CDATANode:
			lb.cur.WriteString(n.text(strings.ReplaceAll(c.Data, "\n", " ")))
			continue
		case storage.CommentNode:
			continue
		}

		switch {
		case c.Name == "br":
			lb.flush()
		case c.Name == "ac:task-status" || c.Name == "ac:task-id":
			continue
		case cellBreakers[c.Name]:
			lb.flush()
			n.collectCell(lb, c.Children)
			lb.flush()
		case c.Name == "table":
			c.Walk(func(d *storage.Node) bool {
				if d.Name == "td" || d.Name == "th" {
					lb.flush()
					n.collectCell(lb, d.Children)
					lb.flush()
					return false
				}
				return true
			})
		case c.Name == "ac:structured-macro":
			n.collectCellMacro(lb, c)
		default:
			n.markup(&lb.cur, c)
		}
	}
}

func (n *normalizer) collectCellMacro(lb *lineBuilder, node *storage.Node) {
	m := readMacro(node)
	kind, feature := ClassifyMacro(m.Name)

	switch kind {
	case MacroCode:
		lb.flush()
		for _, line := range strings.Split(m.codeToken().Body, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			lb.cur.WriteString("<code>" + storage.EscapeText(line) + "</code>")
			lb.flush()
		}
		return
	case MacroStatus, MacroWidget:
		n.macroMarkup(&lb.cur, node)
		return
	case MacroUnsupported:
		n.out.Report.Add(feature)
	}

	switch {
	case m.RichBody != nil:
		lb.flush()
		n.collectCell(lb, m.RichBody.Children)
		lb.flush()
	case m.PlainBody != nil:
		for _, line := range strings.Split(m.PlainBody.Text(), "\n") {
			lb.cur.WriteString(n.text(line))
			lb.flush()
		}
	default:
		lb.cur.WriteString(n.placeholder(m.widgetToken()))
	}
}

// linkToken reads an ac:link. It returns nil for links whose target is
// not representable, which then degrade to their label.
func linkToken(node *storage.Node) Token {
	label := linkLabel(node)
	anchor := node.Attr("ac:anchor")

	if user := node.Child("ri:user"); user != nil {
		id := user.Attr("ri:account-id")
		if id == "" {
			id = user.Attr("ri:userkey")
		}
		return MentionToken{AccountID: id, Label: label}
	}
	if page := node.Child("ri:page"); page != nil {
		return LinkToken{
			Kind:   LinkPage,
			Target: page.Attr("ri:content-title"),
			Space:  page.Attr("ri:space-key"),
			Anchor: anchor,
			Label:  label,
		}
	}
	if att := node.Child("ri:attachment"); att != nil {
		return LinkToken{Kind: LinkAttachment, Target: att.Attr("ri:filename"), Label: label}
	}
	if u := node.Child("ri:url"); u != nil {
		return LinkToken{Kind: LinkURL, Target: u.Attr("ri:value"), Label: label}
	}
	if anchor != "" {
		return LinkToken{Kind: LinkAnchor, Anchor: anchor, Label: label}
	}
	return nil
}

func linkLabel(node *storage.Node) string {
	if body := node.Child("ac:plain-text-link-body"); body != nil {
		return body.Text()
	}
	if body := node.Child("ac:link-body"); body != nil {
		return body.Text()
	}
	return ""
}

func imageToken(node *storage.Node) ImageToken {
	t := ImageToken{Alt: node.Attr("ac:alt")}
	if att := node.Child("ri:attachment"); att != nil {
		t.Attachment = att.Attr("ri:filename")
	} else if u := node.Child("ri:url"); u != nil {
		t.URL = u.Attr("ri:value")
	}
	if caption := node.Child("ac:caption"); caption != nil {
		t.Caption = strings.TrimSpace(caption.Text())
	}
	return t
}

func emoticonText(node *storage.Node) string {
	if fb := node.Attr("ac:emoji-fallback"); fb != "" {
		return fb
	}
	if name := node.Attr("ac:name"); name != "" {
		return ":" + name + ":"
	}
	return ""
}
