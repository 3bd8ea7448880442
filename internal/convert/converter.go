package convert

import (
	"fmt"
	"strings"

	"github.com/gerunddev/wikibridge/internal/storage"
)

// Converter converts between storage markup and portable text
type Converter struct {
	generic    BlockRenderer
	imageWidth int
}

// Option configures a Converter
type Option func(*Converter)

// WithRenderer replaces the generic block renderer
func WithRenderer(r BlockRenderer) Option {
	return func(c *Converter) {
		c.generic = r
	}
}

// WithImageWidth sets the display width of block images written back
func WithImageWidth(width int) Option {
	return func(c *Converter) {
		if width > 0 {
			c.imageWidth = width
		}
	}
}

// New creates a converter
func New(opts ...Option) *Converter {
	c := &Converter{imageWidth: DefaultImageWidth}
	for _, opt := range opts {
		opt(c)
	}
	if c.generic == nil {
		c.generic = NewMarkdownRenderer()
	}
	return c
}

// Result is the portable text of a document plus what was lost
type Result struct {
	Text   string
	Report *FidelityReport
}

// Segment is the portable text of one top-level storage node
type Segment struct {
	Node *storage.Node
	Text string
}

// ToText converts storage markup to portable text
func (c *Converter) ToText(src string) (*Result, error) {
	doc, err := storage.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse storage markup: %w", err)
	}

	segs, report, err := c.Segments(doc)
	if err != nil {
		return nil, err
	}

	var parts []string
	for _, s := range segs {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return &Result{Text: strings.Join(parts, "\n\n"), Report: report}, nil
}

// Segments converts each top-level node of doc on its own. Nodes that
// produce no text are still returned, with empty Text.
func (c *Converter) Segments(doc *storage.Document) ([]Segment, *FidelityReport, error) {
	n := newNormalizer()
	r := newRenderer(c.generic, n.out)

	segs := make([]Segment, 0, len(doc.Nodes))
	for _, node := range doc.Nodes {
		text, err := r.blocks(n.nodeBlocks(node))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to convert node at offset %d: %w", node.Start, err)
		}
		segs = append(segs, Segment{Node: node, Text: text})
	}
	return segs, n.out.Report, nil
}

// ToStorage converts portable text to storage markup. It always
// succeeds: anything it does not recognize is kept as paragraph text.
func (c *Converter) ToStorage(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return parseBlocks(strings.Split(text, "\n"), false, c.imageWidth)
}

// Render converts a normalized document to portable text
func (c *Converter) Render(norm *Normalized) (string, error) {
	return newRenderer(c.generic, norm).blocks(norm.Blocks)
}
