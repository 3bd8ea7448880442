// Package pagefile reads and writes the local file of a pulled page: YAML
// front matter describing the page, followed by its tagged portable text.
package pagefile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Meta is the front matter of a page file
type Meta struct {
	PageID      string   `yaml:"page_id"`
	Title       string   `yaml:"title"`
	Space       string   `yaml:"space,omitempty"`
	Version     int      `yaml:"version"`
	Unsupported []string `yaml:"unsupported,omitempty"`
}

// Page is a decoded page file
type Page struct {
	Meta Meta
	Body string
}

// ErrNoFrontMatter is returned for files that do not start with front matter
var ErrNoFrontMatter = errors.New("page file has no front matter")

// Encode serializes a page
func Encode(p *Page) ([]byte, error) {
	meta, err := yaml.Marshal(&p.Meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")
	if body := strings.Trim(p.Body, "\n"); body != "" {
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// Decode parses a page file
func Decode(data []byte) (*Page, error) {
	var meta Meta
	rest, err := frontmatter.MustParse(bytes.NewReader(data), &meta)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, ErrNoFrontMatter
		}
		return nil, fmt.Errorf("failed to decode front matter: %w", err)
	}
	if meta.PageID == "" {
		return nil, fmt.Errorf("front matter is missing page_id")
	}
	return &Page{Meta: meta, Body: strings.Trim(string(rest), "\n")}, nil
}

// Read loads and decodes a page file
func Read(path string) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page file: %w", err)
	}
	p, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Write encodes a page and writes it, creating parent directories
func Write(path string, p *Page) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create page directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write page file: %w", err)
	}
	return nil
}

// FileName returns a file name for a page title
func FileName(title, pageID string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('-')
		case r < 0x20:
		default:
			b.WriteRune(r)
		}
	}
	name := strings.Trim(b.String(), ". ")
	if name == "" {
		name = pageID
	}
	return name + ".md"
}
