package diff

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// Side is one version of the content being compared
type Side struct {
	Name    string
	Content string
}

// Generate creates a unified diff from one version to another. It returns
// an empty string when both sides are equal.
func Generate(from, to Side) string {
	before := withNewline(from.Content)
	after := withNewline(to.Content)

	edits := myers.ComputeEdits(span.URIFromPath(from.Name), before, after)
	return fmt.Sprint(gotextdiff.ToUnified(from.Name, to.Name, before, edits))
}

// Storage diffs two storage documents. Storage is usually a single line,
// so each block-level element is put on its own line first.
func Storage(from, to Side) string {
	from.Content = splitElements(from.Content)
	to.Content = splitElements(to.Content)
	return Generate(from, to)
}

var blockBoundaries = strings.NewReplacer(
	"><p", ">\n<p",
	"><h", ">\n<h",
	"><ul", ">\n<ul",
	"><ol", ">\n<ol",
	"><li", ">\n<li",
	"><table", ">\n<table",
	"><tr", ">\n<tr",
	"><hr", ">\n<hr",
	"><blockquote", ">\n<blockquote",
	"><ac:", ">\n<ac:",
	"><pre", ">\n<pre",
)

func splitElements(src string) string {
	return blockBoundaries.Replace(src)
}

func withNewline(s string) string {
	if s != "" && !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}

// Render wraps a unified diff in a diff code fence and renders it for the
// terminal. The fenced text is returned as is if rendering fails.
func Render(unified string, width int) string {
	if unified == "" {
		return ""
	}

	// Wrap in diff code fence for syntax highlighting (+ in green, - in red)
	diffMarkdown := fmt.Sprintf("```diff\n%s```\n", unified)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return diffMarkdown
	}

	rendered, err := renderer.Render(diffMarkdown)
	if err != nil {
		return diffMarkdown
	}

	return rendered
}

// Preview renders portable text for the terminal
func Preview(text string, width int) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	return renderer.Render(text)
}
