package convert

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gerunddev/wikibridge/internal/storage"
)

// DefaultImageWidth is the display width given to block images
const DefaultImageWidth = 600

var (
	listItemPattern  = regexp.MustCompile(`^( *)([-*+]|\d{1,9}[.)])( +|$)(.*)$`)
	taskItemPattern  = regexp.MustCompile(`^\[([ xX])\](?: (.*))?$`)
	headingPattern   = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?(?:[ \t]+#+)?[ \t]*$`)
	rulePattern      = regexp.MustCompile(`^ {0,3}(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	tableSepPattern  = regexp.MustCompile(`^\|?[ \t]*:?-+:?[ \t]*(?:\|[ \t]*:?-+:?[ \t]*)*\|?$`)
	imageLinePattern = regexp.MustCompile(`^!\[((?:[^\]\\]|\\.)*)\]\(([^)\s]*)\)$`)
	captionPattern   = regexp.MustCompile(`^\*([^*\s](?:.*[^\s\\])?)\*$`)
)

// blockParser turns portable text back into storage markup, one block
// at a time. Constructs it does not recognize become paragraphs.
type blockParser struct {
	lines      []string
	pos        int
	hardBreaks bool
	imageWidth int
	out        strings.Builder
}

func parseBlocks(lines []string, hardBreaks bool, imageWidth int) string {
	p := &blockParser{lines: lines, hardBreaks: hardBreaks, imageWidth: imageWidth}
	for p.pos < len(p.lines) {
		p.next()
	}
	return p.out.String()
}

func (p *blockParser) sub(lines []string, hardBreaks bool) string {
	return parseBlocks(lines, hardBreaks, p.imageWidth)
}

func (p *blockParser) next() {
	line := p.lines[p.pos]
	if strings.TrimSpace(line) == "" {
		p.pos++
		return
	}

	if m, ok := ParseMarkerLine(line); ok {
		switch m.Kind {
		case KindStatus:
			p.out.WriteString("<p>" + statusMarkup(m.Get("color"), m.Get("title")) + "</p>")
			p.pos++
			return
		case KindNode, KindPanel, KindStyle:
			p.pos++
			return
		}
	}

	switch {
	case p.fencedCode():
	case p.indentedCode():
	case p.widget():
	case p.rule():
	case p.table():
	case p.heading():
	case p.list():
	case p.image():
	case p.panel():
	case p.quote():
	default:
		p.paragraph()
	}
}

func (p *blockParser) fencedCode() bool {
	line := p.lines[p.pos]
	indent := leadingSpaces(line)
	if indent > 3 {
		return false
	}
	fence := openingFence(line[indent:])
	if fence == "" {
		return false
	}
	info := strings.TrimSpace(line[indent+len(fence):])
	lang, _, _ := strings.Cut(info, " ")

	var body []string
	p.pos++
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		p.pos++
		if leadingSpaces(l) <= 3 && closesFence(strings.TrimLeft(l, " "), fence) {
			break
		}
		body = append(body, dedent(l, indent))
	}
	p.out.WriteString(codeMarkup(lang, strings.Join(body, "\n")))
	return true
}

func (p *blockParser) indentedCode() bool {
	if !isIndentedCode(p.lines[p.pos]) {
		return false
	}

	var body []string
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if strings.TrimSpace(l) != "" && !isIndentedCode(l) {
			break
		}
		if strings.HasPrefix(l, "\t") {
			body = append(body, l[1:])
		} else {
			body = append(body, dedent(l, 4))
		}
		p.pos++
	}
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	p.out.WriteString(codeMarkup("", strings.Join(body, "\n")))
	return true
}

func isIndentedCode(line string) bool {
	return strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")
}

// codeMarkup builds a code macro. Bodies that contain the CDATA
// terminator are embedded as escaped text instead.
func codeMarkup(lang, body string) string {
	var b strings.Builder
	b.WriteString(`<ac:structured-macro ac:name="code">`)
	writeParam(&b, "language", lang)
	if strings.Contains(body, "]]>") {
		b.WriteString("<ac:plain-text-body>" + storage.EscapeText(body) + "</ac:plain-text-body>")
	} else {
		b.WriteString("<ac:plain-text-body><![CDATA[" + body + "]]></ac:plain-text-body>")
	}
	b.WriteString("</ac:structured-macro>")
	return b.String()
}

func (p *blockParser) widget() bool {
	m, ok := ParseMarkerLine(p.lines[p.pos])
	if !ok || m.Kind != KindWidget {
		return false
	}
	p.out.WriteString(widgetMarkup(m))
	p.pos++
	return true
}

func (p *blockParser) rule() bool {
	if !rulePattern.MatchString(p.lines[p.pos]) {
		return false
	}
	p.out.WriteString("<hr/>")
	p.pos++
	return true
}

func isTableStart(lines []string, i int) bool {
	return strings.HasPrefix(strings.TrimSpace(lines[i]), "|") &&
		i+1 < len(lines) &&
		strings.Contains(lines[i+1], "-") &&
		tableSepPattern.MatchString(strings.TrimSpace(lines[i+1]))
}

func (p *blockParser) table() bool {
	if !isTableStart(p.lines, p.pos) {
		return false
	}

	rows := [][]string{splitRow(p.lines[p.pos])}
	p.pos += 2
	for p.pos < len(p.lines) && strings.HasPrefix(strings.TrimSpace(p.lines[p.pos]), "|") {
		rows = append(rows, splitRow(p.lines[p.pos]))
		p.pos++
	}

	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}

	p.out.WriteString("<table><tbody>")
	for i, r := range rows {
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		p.out.WriteString("<tr>")
		for j := 0; j < cols; j++ {
			raw := ""
			if j < len(r) {
				raw = r[j]
			}
			content, bg := cellMarkup(raw)
			p.out.WriteString("<" + tag)
			if bg != "" {
				p.out.WriteString(` data-highlight-colour="` + storage.EscapeAttr(bg) + `"`)
			}
			p.out.WriteString(">" + content + "</" + tag + ">")
		}
		p.out.WriteString("</tr>")
	}
	p.out.WriteString("</tbody></table>")
	return true
}

// splitRow splits a table row on pipes that are neither escaped nor
// inside a code span or comment
func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")

	var cells []string
	var cur strings.Builder
	closed := false
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line):
			cur.WriteString(line[i : i+2])
			i += 2
			continue
		case c == '`':
			n := countLeadingChars(line[i:], '`')
			if end := closingBackticks(line, i+n, n); end >= 0 {
				cur.WriteString(line[i:end])
				i = end
				continue
			}
			cur.WriteString(line[i : i+n])
			i += n
			continue
		case strings.HasPrefix(line[i:], "<!--"):
			if end := strings.Index(line[i:], "-->"); end >= 0 {
				cur.WriteString(line[i : i+end+3])
				i += end + 3
				continue
			}
		case c == '|':
			cells = append(cells, cur.String())
			cur.Reset()
			closed = true
			i++
			continue
		}
		cur.WriteByte(c)
		closed = false
		i++
	}
	if !closed || strings.TrimSpace(cur.String()) != "" {
		cells = append(cells, cur.String())
	}
	return cells
}

// cellMarkup converts one table cell. A trailing style marker becomes the
// cell background and literal \n sequences become line breaks.
func cellMarkup(raw string) (content, bg string) {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, markerOpen+KindStyle); i >= 0 {
		if m, n, ok := ParseMarker(raw[i:]); ok && i+n == len(raw) {
			bg = m.Get("bg")
			raw = strings.TrimSpace(raw[:i])
		}
	}

	var parts []string
	for _, line := range splitCellLines(raw) {
		parts = append(parts, inlineStorage(strings.TrimSpace(line)))
	}
	return strings.Join(parts, "<br/>"), bg
}

// splitCellLines unescapes pipes and splits on literal \n. An escaped
// backslash never starts a break.
func splitCellLines(raw string) []string {
	var lines []string
	var cur strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			cur.WriteByte(c)
			continue
		}
		switch raw[i+1] {
		case '|':
			cur.WriteByte('|')
		case 'n':
			lines = append(lines, cur.String())
			cur.Reset()
		default:
			cur.WriteString(raw[i : i+2])
		}
		i++
	}
	return append(lines, cur.String())
}

func (p *blockParser) heading() bool {
	m := headingPattern.FindStringSubmatch(p.lines[p.pos])
	if m == nil {
		return false
	}
	level := strconv.Itoa(len(m[1]))
	p.out.WriteString("<h" + level + ">" + inlineStorage(strings.TrimSpace(m[2])) + "</h" + level + ">")
	p.pos++
	return true
}

type listItem struct {
	marker string
	lines  []string
}

func (p *blockParser) list() bool {
	first := listItemPattern.FindStringSubmatch(p.lines[p.pos])
	if first == nil || len(first[1]) > 3 {
		return false
	}
	indent := len(first[1])
	ordered := isDigit(first[2][0])

	var items []listItem
	for p.pos < len(p.lines) {
		m := listItemPattern.FindStringSubmatch(p.lines[p.pos])
		if m == nil || len(m[1]) != indent || isDigit(m[2][0]) != ordered {
			break
		}
		if rulePattern.MatchString(p.lines[p.pos]) {
			break
		}

		contentIndent := len(m[1]) + len(m[2]) + len(m[3])
		if m[3] == "" || len(m[3]) > 4 {
			contentIndent = len(m[1]) + len(m[2]) + 1
		}
		content := []string{m[4]}
		if len(m[3]) > 4 {
			content[0] = strings.Repeat(" ", len(m[3])-1) + m[4]
		}
		p.pos++

		for p.pos < len(p.lines) {
			l := p.lines[p.pos]
			if strings.TrimSpace(l) == "" {
				j := p.nextNonBlank(p.pos)
				if j < len(p.lines) && leadingSpaces(p.lines[j]) >= contentIndent {
					for ; p.pos < j; p.pos++ {
						content = append(content, "")
					}
					continue
				}
				break
			}
			if leadingSpaces(l) >= contentIndent {
				content = append(content, l[contentIndent:])
				p.pos++
				continue
			}
			if listItemPattern.MatchString(l) || startsBlock(p.lines, p.pos) {
				break
			}
			content = append(content, strings.TrimLeft(l, " "))
			p.pos++
		}
		items = append(items, listItem{marker: m[2], lines: content})

		j := p.nextNonBlank(p.pos)
		if j > p.pos && j < len(p.lines) {
			if n := listItemPattern.FindStringSubmatch(p.lines[j]); n != nil && len(n[1]) == indent && isDigit(n[2][0]) == ordered {
				p.pos = j
			}
		}
	}

	if tasks, ok := p.taskList(items); ok {
		p.out.WriteString(tasks)
		return true
	}

	tag := "ul"
	open := "<ul>"
	if ordered {
		tag = "ol"
		open = "<ol>"
		if start, err := strconv.Atoi(strings.TrimRight(items[0].marker, ".)")); err == nil && start != 1 {
			open = `<ol start="` + strconv.Itoa(start) + `">`
		}
	}
	p.out.WriteString(open)
	for _, it := range items {
		p.out.WriteString("<li>" + unwrapParagraph(p.sub(it.lines, false)) + "</li>")
	}
	p.out.WriteString("</" + tag + ">")
	return true
}

// taskList renders items as a task list when every item starts with a
// checkbox
func (p *blockParser) taskList(items []listItem) (string, bool) {
	if items[0].marker != "-" && items[0].marker != "*" && items[0].marker != "+" {
		return "", false
	}
	bodies := make([][]string, len(items))
	done := make([]bool, len(items))
	for i, it := range items {
		m := taskItemPattern.FindStringSubmatch(it.lines[0])
		if m == nil {
			return "", false
		}
		done[i] = m[1] != " "
		bodies[i] = append([]string{m[2]}, it.lines[1:]...)
	}

	var b strings.Builder
	b.WriteString("<ac:task-list>")
	for i := range items {
		status := "incomplete"
		if done[i] {
			status = "complete"
		}
		b.WriteString("<ac:task><ac:task-status>" + status + "</ac:task-status><ac:task-body>")
		b.WriteString(unwrapParagraph(p.sub(bodies[i], false)))
		b.WriteString("</ac:task-body></ac:task>")
	}
	b.WriteString("</ac:task-list>")
	return b.String(), true
}

// unwrapParagraph drops the paragraph wrapper of a leading paragraph
func unwrapParagraph(s string) string {
	if !strings.HasPrefix(s, "<p>") {
		return s
	}
	end := strings.Index(s, "</p>")
	if end < 0 {
		return s
	}
	return s[3:end] + s[end+4:]
}

func (p *blockParser) image() bool {
	m := imageLinePattern.FindStringSubmatch(strings.TrimSpace(p.lines[p.pos]))
	if m == nil {
		return false
	}
	p.pos++

	caption := ""
	if p.pos < len(p.lines) {
		if c := captionPattern.FindStringSubmatch(strings.TrimSpace(p.lines[p.pos])); c != nil && !strings.HasPrefix(c[1], "*") {
			caption = c[1]
			p.pos++
		}
	}

	display := []storage.Attr{
		{Key: "ac:align", Val: "center"},
		{Key: "ac:width", Val: strconv.Itoa(p.imageWidth)},
	}
	p.out.WriteString(imageMarkup(m[2], unescapeMarkdown(m[1]), caption, display))
	return true
}

// quoteLines consumes the run of quoted lines at the current position and
// returns them without their quote prefix
func (p *blockParser) quoteLines() []string {
	var body []string
	for p.pos < len(p.lines) {
		l := strings.TrimLeft(p.lines[p.pos], " ")
		if !strings.HasPrefix(l, ">") {
			break
		}
		l = strings.TrimPrefix(l[1:], " ")
		body = append(body, l)
		p.pos++
	}
	return body
}

func (p *blockParser) panel() bool {
	l := strings.TrimLeft(p.lines[p.pos], " ")
	if !strings.HasPrefix(l, ">") {
		return false
	}
	m, ok := ParseMarkerLine(l[1:])
	if !ok || m.Kind != KindPanel {
		return false
	}

	body := p.quoteLines()[1:]
	color, icon, title := m.Get("color"), m.Get("icon"), m.Get("title")

	var b strings.Builder
	if namedPanels[color] {
		b.WriteString(`<ac:structured-macro ac:name="` + color + `">`)
		writeParam(&b, "title", title)
		writeParam(&b, "icon", icon)
	} else {
		b.WriteString(`<ac:structured-macro ac:name="panel">`)
		writeParam(&b, "bgColor", color)
		writeParam(&b, "title", title)
		writeParam(&b, "panelIcon", icon)
	}
	b.WriteString("<ac:rich-text-body>" + p.sub(body, true) + "</ac:rich-text-body></ac:structured-macro>")
	p.out.WriteString(b.String())
	return true
}

func (p *blockParser) quote() bool {
	if !strings.HasPrefix(strings.TrimLeft(p.lines[p.pos], " "), ">") {
		return false
	}
	p.out.WriteString("<blockquote>" + p.sub(p.quoteLines(), false) + "</blockquote>")
	return true
}

func (p *blockParser) paragraph() {
	var b strings.Builder
	start := p.pos
	for p.pos < len(p.lines) {
		if p.pos > start && startsBlock(p.lines, p.pos) {
			break
		}
		line := strings.TrimLeft(p.lines[p.pos], " \t")
		p.pos++
		last := p.pos >= len(p.lines) || startsBlock(p.lines, p.pos)

		switch {
		case last:
			b.WriteString(strings.TrimRight(line, " \t"))
		case strings.HasSuffix(line, "  "):
			b.WriteString(strings.TrimRight(line, " \t") + "\n")
		case hasTrailingBackslash(line):
			b.WriteString(line[:len(line)-1] + "\n")
		case p.hardBreaks:
			b.WriteString(strings.TrimRight(line, " \t") + "\n")
		default:
			b.WriteString(strings.TrimRight(line, " \t") + " ")
		}
	}

	if content := inlineStorage(b.String()); content != "" {
		p.out.WriteString("<p>" + content + "</p>")
	}
}

// blockMarkers are the marker kinds that stand on a line of their own
var blockMarkers = map[string]bool{
	KindNode:   true,
	KindWidget: true,
	KindStatus: true,
	KindPanel:  true,
	KindStyle:  true,
}

// startsBlock reports whether lines[i] ends a running paragraph
func startsBlock(lines []string, i int) bool {
	line := lines[i]
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	if m, ok := ParseMarkerLine(trimmed); ok && blockMarkers[m.Kind] {
		return true
	}
	indent := leadingSpaces(line)
	if indent > 3 {
		return false
	}
	rest := line[indent:]
	return openingFence(rest) != "" ||
		headingPattern.MatchString(line) ||
		rulePattern.MatchString(line) ||
		strings.HasPrefix(rest, ">") ||
		listItemPattern.MatchString(line) && strings.TrimSpace(line) != strings.TrimSpace(listItemPattern.FindStringSubmatch(line)[2]) ||
		isTableStart(lines, i)
}

func hasTrailingBackslash(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func (p *blockParser) nextNonBlank(i int) int {
	for i < len(p.lines) && strings.TrimSpace(p.lines[i]) == "" {
		i++
	}
	return i
}

func leadingSpaces(s string) int {
	return countLeadingChars(s, ' ')
}

// dedent removes up to n leading spaces
func dedent(s string, n int) string {
	i := 0
	for i < n && i < len(s) && s[i] == ' ' {
		i++
	}
	return s[i:]
}
