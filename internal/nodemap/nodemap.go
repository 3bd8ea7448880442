// Package nodemap ties blocks of portable text to the storage nodes they
// came from, so an edited block can be written back in place.
package nodemap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gerunddev/wikibridge/internal/convert"
	"github.com/gerunddev/wikibridge/internal/storage"
)

// MappedBlock is the portable text of one top-level storage node.
// An empty NodeID means the block cannot be targeted.
type MappedBlock struct {
	NodeID string
	Text   string
}

// Replacement is the outcome of a targeted update
type Replacement struct {
	Document string
	Missing  []string
}

// Segment renders each top-level node of doc on its own. Nodes that render
// to nothing are left out.
func Segment(conv *convert.Converter, doc *storage.Document) ([]MappedBlock, *convert.FidelityReport, error) {
	segs, report, err := conv.Segments(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to segment document: %w", err)
	}

	var blocks []MappedBlock
	for _, s := range segs {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		_, id := s.Node.Identifier()
		blocks = append(blocks, MappedBlock{NodeID: id, Text: s.Text})
	}
	return blocks, report, nil
}

type target struct {
	node *storage.Node
	key  string
	id   string
}

// ReplaceByIdentifiers swaps the elements carrying the given identifiers
// for new storage fragments. Everything outside the replaced elements is
// kept byte for byte. A fragment of several nodes is spliced in whole, with
// the identifier carried on its first element. Identifiers that cannot be
// found, or that sit inside another replaced element, are reported as
// missing.
func ReplaceByIdentifiers(doc *storage.Document, edits map[string]string) (*Replacement, error) {
	index := make(map[string]target)
	for _, n := range doc.Nodes {
		n.Walk(func(c *storage.Node) bool {
			key, id := c.Identifier()
			if id != "" {
				if _, seen := index[id]; !seen {
					index[id] = target{node: c, key: key, id: id}
				}
			}
			return true
		})
	}

	var found []target
	var missing []string
	for id := range edits {
		t, ok := index[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		found = append(found, t)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].node.Start < found[j].node.Start })

	var b strings.Builder
	pos := 0
	for _, t := range found {
		if t.node.Start < pos {
			missing = append(missing, t.id)
			continue
		}
		fragment, err := withIdentifier(edits[t.id], t.key, t.id)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare fragment for node %s: %w", t.id, err)
		}
		b.WriteString(doc.Source[pos:t.node.Start])
		b.WriteString(fragment)
		pos = t.node.End
	}
	b.WriteString(doc.Source[pos:])

	sort.Strings(missing)
	return &Replacement{Document: b.String(), Missing: missing}, nil
}

// withIdentifier gives the first element of fragment the identifier of
// the node it replaces, unless it already has one
func withIdentifier(fragment, key, id string) (string, error) {
	doc, err := storage.Parse(fragment)
	if err != nil {
		return "", err
	}

	for _, n := range doc.Nodes {
		if n.Type != storage.ElementNode {
			continue
		}
		if _, existing := n.Identifier(); existing != "" {
			return fragment, nil
		}
		n.SetAttr(key, id)
		return fragment[:n.Start] + storage.Render(n) + fragment[n.End:], nil
	}
	return fragment, nil
}

// RenderTagged writes blocks as portable text, each preceded by its node
// tag line. Blocks without an identifier get a bare tag so they stay
// separate from the block before them.
func RenderTagged(blocks []MappedBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, convert.NodeTag(b.NodeID)+"\n"+b.Text)
	}
	return strings.Join(parts, "\n\n")
}

// SplitTagged splits tagged portable text back into blocks. Text before
// the first tag forms a block without an identifier. Tag lines inside
// fenced code are content.
func SplitTagged(text string) []MappedBlock {
	var blocks []MappedBlock
	var cur []string
	id := ""
	started := false

	flush := func() {
		body := strings.Trim(strings.Join(cur, "\n"), "\n")
		if started || strings.TrimSpace(body) != "" {
			blocks = append(blocks, MappedBlock{NodeID: id, Text: body})
		}
		cur = nil
	}

	fence := ""
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if fence == "" {
			if m, ok := convert.ParseMarkerLine(line); ok && m.Kind == convert.KindNode {
				flush()
				id = m.Get("id")
				started = true
				continue
			}
		}
		fence = trackFence(fence, line)
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// StripTags returns tagged text without its node tag lines
func StripTags(text string) string {
	var parts []string
	for _, b := range SplitTagged(text) {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// trackFence returns the open code fence after line, or "" outside code
func trackFence(open, line string) string {
	trimmed := strings.TrimLeft(line, " >")
	run := fenceRun(trimmed)
	if open == "" {
		if run != "" && !(run[0] == '`' && strings.Contains(trimmed[len(run):], "`")) {
			return run
		}
		return ""
	}
	if run != "" && run[0] == open[0] && len(run) >= len(open) && strings.TrimSpace(trimmed[len(run):]) == "" {
		return ""
	}
	return open
}

func fenceRun(s string) string {
	if s == "" || (s[0] != '`' && s[0] != '~') {
		return ""
	}
	n := 0
	for n < len(s) && s[n] == s[0] {
		n++
	}
	if n < 3 {
		return ""
	}
	return s[:n]
}
