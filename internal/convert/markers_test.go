package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerString(t *testing.T) {
	tests := []struct {
		name     string
		marker   Marker
		expected string
	}{
		{
			name:     "status",
			marker:   NewMarker(KindStatus, "color", "Green", "title", "DONE"),
			expected: `<!-- wiki:status color="Green" title="DONE" -->`,
		},
		{
			name:     "empty values skipped",
			marker:   NewMarker(KindPanel, "color", "info", "icon", "", "title", "Heads up"),
			expected: `<!-- wiki:panel color="info" title="Heads up" -->`,
		},
		{
			name:     "no attributes",
			marker:   NewMarker(KindStyle),
			expected: `<!-- wiki:style -->`,
		},
		{
			name:     "node tag",
			marker:   NewMarker(KindNode, "id", "abc-1"),
			expected: NodeTag("abc-1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.marker.String())
		})
	}
}

func TestMarkerValueCannotCloseComment(t *testing.T) {
	m := NewMarker(KindMention, "id", "u1", "label", `Ann "the --> lead"`)
	s := m.String()

	assert.Equal(t, 1, strings.Count(s, "-->"), "only the closing delimiter may appear")

	parsed, n, ok := ParseMarker(s)
	require.True(t, ok)
	assert.Equal(t, len(s), n)
	assert.Equal(t, m, parsed)
}

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		ok       bool
		kind     string
		consumed int
	}{
		{name: "marker then text", input: `<!-- wiki:mention id="x" -->rest`, ok: true, kind: KindMention, consumed: 28},
		{name: "ordinary comment", input: `<!-- note -->`},
		{name: "unterminated", input: `<!-- wiki:status color="Green"`},
		{name: "unquoted value", input: `<!-- wiki:status color=Green -->`},
		{name: "missing kind", input: `<!-- wiki: -->`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, n, ok := ParseMarker(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.kind, m.Kind)
				assert.Equal(t, tt.consumed, n)
			}
		})
	}
}

func TestParseMarkerLine(t *testing.T) {
	m, ok := ParseMarkerLine(`  <!-- wiki:widget name="toc" maxLevel="2" -->  `)
	require.True(t, ok)
	assert.Equal(t, KindWidget, m.Kind)
	assert.Equal(t, "toc", m.Get("name"))
	assert.Equal(t, "2", m.Get("maxLevel"))
	assert.Equal(t, "", m.Get("missing"))

	_, ok = ParseMarkerLine(`<!-- wiki:widget name="toc" --> trailing`)
	assert.False(t, ok)
}

func TestWidgetMarkerSortsParams(t *testing.T) {
	m := widgetMarker(WidgetToken{Name: "toc", Params: map[string]string{"minLevel": "1", "maxLevel": "3"}})
	assert.Equal(t, `<!-- wiki:widget name="toc" maxLevel="3" minLevel="1" -->`, m.String())
}
