package pagefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	p := &Page{
		Meta: Meta{
			PageID:      "12345",
			Title:       "Design: v2",
			Space:       "ENG",
			Version:     7,
			Unsupported: []string{"expand section"},
		},
		Body: "<!-- wiki:node id=\"a\" -->\n# Title\n\n---\n\nbody",
	}

	data, err := Encode(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "page_id: \"12345\"")

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "no front matter", input: "# just text\n"},
		{name: "missing page id", input: "---\ntitle: x\n---\n\nbody\n"},
		{name: "bad yaml", input: "---\npage_id: [\n---\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := Decode([]byte("plain"))
	assert.ErrorIs(t, err, ErrNoFrontMatter)
}

func TestReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space", "page.md")
	p := &Page{Meta: Meta{PageID: "1", Title: "T", Version: 1}, Body: "hello"}

	require.NoError(t, Write(path, p))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "---\npage_id: \"1\"\ntitle: T\nversion: 1\n---\n\nhello\n", string(data))

	read, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, p, read)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		title    string
		pageID   string
		expected string
	}{
		{title: "Release Plan", pageID: "1", expected: "Release Plan.md"},
		{title: "a/b: c?", pageID: "1", expected: "a-b- c-.md"},
		{title: "  ", pageID: "42", expected: "42.md"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileName(tt.title, tt.pageID))
		})
	}
}
