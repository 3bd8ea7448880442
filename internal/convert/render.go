package convert

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
)

// RuleLine is the canonical horizontal rule of the portable dialect
const RuleLine = "----"

// BlockRenderer turns ordinary block markup into portable text
type BlockRenderer interface {
	Render(markup string) (string, error)
}

// MarkdownRenderer renders block markup with html-to-markdown
type MarkdownRenderer struct {
	conv *htmltomarkdown.Converter
}

// NewMarkdownRenderer creates the default generic block renderer
func NewMarkdownRenderer() *MarkdownRenderer {
	conv := htmltomarkdown.NewConverter(
		htmltomarkdown.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithBulletListMarker("-"),
				commonmark.WithEmDelimiter("*"),
				commonmark.WithStrongDelimiter("**"),
				commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				commonmark.WithCodeBlockFence("```"),
				commonmark.WithHorizontalRule(RuleLine),
				commonmark.WithListEndComment(false),
			),
			strikethrough.NewStrikethroughPlugin(),
		),
	)
	return &MarkdownRenderer{conv: conv}
}

// Render converts markup to markdown without surrounding blank lines
func (r *MarkdownRenderer) Render(markup string) (string, error) {
	out, err := r.conv.ConvertString(markup)
	if err != nil {
		return "", fmt.Errorf("failed to convert block markup: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

// renderer turns normalized blocks into portable text
type renderer struct {
	generic BlockRenderer
	norm    *Normalized
	pattern *regexp.Regexp
}

func newRenderer(generic BlockRenderer, norm *Normalized) *renderer {
	return &renderer{
		generic: generic,
		norm:    norm,
		pattern: placeholderPattern(norm.nonce),
	}
}

func (r *renderer) blocks(blocks []Block) (string, error) {
	var parts []string
	for _, b := range blocks {
		text, err := r.block(b)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func (r *renderer) block(b Block) (string, error) {
	switch b.Kind {
	case BlockGeneric:
		return r.markup(b.Markup)
	case BlockTable:
		return r.table(r.norm.Tables[b.Ref])
	default:
		return r.blockToken(r.norm.Tokens[b.Ref])
	}
}

// markup renders generic markup: convert, normalize escapes, then
// expand placeholders
func (r *renderer) markup(markup string) (string, error) {
	text, err := r.generic.Render(markup)
	if err != nil {
		return "", err
	}
	return r.decode(NormalizeEscapes(text))
}

// table renders a side-table entry as a GFM table
func (r *renderer) table(t Table) (string, error) {
	cols := t.Columns()
	if cols == 0 {
		return "", nil
	}

	var lines []string
	for i, row := range t.Rows {
		cells := make([]string, cols)
		for j := 0; j < cols && j < len(row); j++ {
			text, err := r.cellText(row[j])
			if err != nil {
				return "", err
			}
			cells[j] = text
		}
		lines = append(lines, tableRow(cells))

		if i == 0 {
			sep := make([]string, cols)
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, tableRow(sep))
		}
	}
	return r.decode(strings.Join(lines, "\n"))
}

func tableRow(cells []string) string {
	var b strings.Builder
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(c)
		b.WriteString(" |")
	}
	return b.String()
}

// cellText flattens a cell to a single line, joining its visual lines
// with a literal \n and appending any background annotation
func (r *renderer) cellText(c Cell) (string, error) {
	var parts []string
	for _, line := range c.Lines {
		text, err := r.generic.Render("<p>" + line + "</p>")
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(strings.ReplaceAll(NormalizeEscapes(text), "\n", " "))
		if text != "" {
			parts = append(parts, strings.ReplaceAll(text, "|", `\|`))
		}
	}

	text := strings.Join(parts, `\n`)
	if c.Background != "" {
		style := NewMarker(KindStyle, "bg", c.Background).String()
		if text == "" {
			return style, nil
		}
		text += " " + style
	}
	return text, nil
}
