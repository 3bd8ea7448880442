package nodemap

import (
	"testing"

	"github.com/gerunddev/wikibridge/internal/convert"
	"github.com/gerunddev/wikibridge/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<h1 local-id="h1">Title</h1>` + "\n" +
	`<p local-id="p1">One</p>` + "\n" +
	`<p>Two</p>` + "\n" +
	`<p local-id="p3">Three</p>`

func parse(t *testing.T, src string) *storage.Document {
	t.Helper()
	doc, err := storage.Parse(src)
	require.NoError(t, err)
	return doc
}

func TestSegment(t *testing.T) {
	blocks, report, err := Segment(convert.New(), parse(t, page))
	require.NoError(t, err)
	assert.True(t, report.Empty())

	expected := []MappedBlock{
		{NodeID: "h1", Text: "# Title"},
		{NodeID: "p1", Text: "One"},
		{NodeID: "", Text: "Two"},
		{NodeID: "p3", Text: "Three"},
	}
	assert.Equal(t, expected, blocks)
}

func TestTaggedRoundTrip(t *testing.T) {
	blocks := []MappedBlock{
		{NodeID: "h1", Text: "# Title"},
		{NodeID: "", Text: "Untagged\n\nwith a blank line"},
		{NodeID: "c1", Text: "```\n" + convert.NodeTag("fake") + "\n```"},
		{NodeID: "p3", Text: "Three"},
	}

	text := RenderTagged(blocks)
	assert.Equal(t, blocks, SplitTagged(text))
}

func TestRenderTagged(t *testing.T) {
	text := RenderTagged([]MappedBlock{{NodeID: "a", Text: "x"}, {Text: "y"}})
	assert.Equal(t, `<!-- wiki:node id="a" -->`+"\nx\n\n<!-- wiki:node -->\ny", text)
}

func TestSplitTaggedLeadingText(t *testing.T) {
	text := "intro text\n\n" + convert.NodeTag("p1") + "\nOne\n"
	blocks := SplitTagged(text)

	expected := []MappedBlock{
		{NodeID: "", Text: "intro text"},
		{NodeID: "p1", Text: "One"},
	}
	assert.Equal(t, expected, blocks)
}

func TestSplitTaggedEmptyBlockKept(t *testing.T) {
	text := convert.NodeTag("p1") + "\n\n" + convert.NodeTag("p2") + "\nTwo"
	blocks := SplitTagged(text)

	expected := []MappedBlock{
		{NodeID: "p1", Text: ""},
		{NodeID: "p2", Text: "Two"},
	}
	assert.Equal(t, expected, blocks)
}

func TestReplaceByIdentifiers(t *testing.T) {
	tests := []struct {
		name     string
		edits    map[string]string
		expected string
		missing  []string
	}{
		{
			name:  "single node keeps siblings",
			edits: map[string]string{"p1": "<p>Uno</p>"},
			expected: `<h1 local-id="h1">Title</h1>` + "\n" +
				`<p local-id="p1">Uno</p>` + "\n" +
				`<p>Two</p>` + "\n" +
				`<p local-id="p3">Three</p>`,
		},
		{
			name:  "fragment identifier wins",
			edits: map[string]string{"p3": `<p local-id="other">Tres</p>`},
			expected: `<h1 local-id="h1">Title</h1>` + "\n" +
				`<p local-id="p1">One</p>` + "\n" +
				`<p>Two</p>` + "\n" +
				`<p local-id="other">Tres</p>`,
		},
		{
			name:  "multi node fragment spliced whole",
			edits: map[string]string{"h1": "<h1>New</h1><p>added</p>"},
			expected: `<h1 local-id="h1">New</h1><p>added</p>` + "\n" +
				`<p local-id="p1">One</p>` + "\n" +
				`<p>Two</p>` + "\n" +
				`<p local-id="p3">Three</p>`,
		},
		{
			name:  "several edits with a missing id",
			edits: map[string]string{"p3": "<p>3</p>", "zz": "<p>x</p>", "h1": "<h2>T</h2>", "aa": ""},
			expected: `<h2 local-id="h1">T</h2>` + "\n" +
				`<p local-id="p1">One</p>` + "\n" +
				`<p>Two</p>` + "\n" +
				`<p local-id="p3">3</p>`,
			missing: []string{"aa", "zz"},
		},
		{
			name:     "all missing leaves document untouched",
			edits:    map[string]string{"nope": "<p>x</p>"},
			expected: page,
			missing:  []string{"nope"},
		},
		{
			name:  "empty fragment removes node",
			edits: map[string]string{"p1": ""},
			expected: `<h1 local-id="h1">Title</h1>` + "\n\n" +
				`<p>Two</p>` + "\n" +
				`<p local-id="p3">Three</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ReplaceByIdentifiers(parse(t, page), tt.edits)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Document)
			assert.Equal(t, tt.missing, result.Missing)
		})
	}
}

func TestReplaceNestedIdentifierIsMissing(t *testing.T) {
	src := `<ac:structured-macro ac:name="info" ac:macro-id="m1">` +
		`<ac:rich-text-body><p local-id="in">x</p></ac:rich-text-body>` +
		`</ac:structured-macro><p local-id="after">y</p>`

	edits := map[string]string{
		"m1": `<ac:structured-macro ac:name="note"><ac:rich-text-body><p>z</p></ac:rich-text-body></ac:structured-macro>`,
		"in": "<p>ignored</p>",
	}
	result, err := ReplaceByIdentifiers(parse(t, src), edits)
	require.NoError(t, err)

	assert.Equal(t, []string{"in"}, result.Missing)
	assert.Equal(t,
		`<ac:structured-macro ac:name="note" ac:macro-id="m1"><ac:rich-text-body><p>z</p></ac:rich-text-body></ac:structured-macro>`+
			`<p local-id="after">y</p>`,
		result.Document)
}

func TestReplaceInnerIdentifier(t *testing.T) {
	src := `<ac:layout><ac:layout-section><ac:layout-cell><p local-id="in">x</p></ac:layout-cell></ac:layout-section></ac:layout>`

	result, err := ReplaceByIdentifiers(parse(t, src), map[string]string{"in": "<p>y</p>"})
	require.NoError(t, err)
	assert.Empty(t, result.Missing)
	assert.Equal(t, `<ac:layout><ac:layout-section><ac:layout-cell><p local-id="in">y</p></ac:layout-cell></ac:layout-section></ac:layout>`, result.Document)
}

func TestReplaceRejectsMalformedFragment(t *testing.T) {
	_, err := ReplaceByIdentifiers(parse(t, page), map[string]string{"p1": "<p>broken"})
	require.Error(t, err)
}

func TestStripTags(t *testing.T) {
	text := convert.NodeTag("h1") + "\n# Title\n\n" +
		convert.NodeTag("") + "\n\n" +
		convert.NodeTag("c1") + "\n```\n" + convert.NodeTag("kept") + "\n```"

	assert.Equal(t, "# Title\n\n```\n"+convert.NodeTag("kept")+"\n```", StripTags(text))
}
