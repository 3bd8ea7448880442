package convert

import (
	"sort"
	"strconv"
	"strings"
)

// Structured comment markers carry constructs that plain markdown cannot
// express, e.g. <!-- wiki:status color="Green" title="DONE" -->
const (
	markerOpen  = "<!-- wiki:"
	markerClose = "-->"
)

const (
	KindNode         = "node"
	KindWidget       = "widget"
	KindStatus       = "status"
	KindMention      = "mention"
	KindPanel        = "panel"
	KindStyle        = "style"
	KindCommentStart = "comment-start"
	KindCommentEnd   = "comment-end"
)

// MarkerAttr is one key/value pair of a marker
type MarkerAttr struct {
	Key string
	Val string
}

// Marker is a parsed structured comment
type Marker struct {
	Kind  string
	Attrs []MarkerAttr
}

// NewMarker builds a marker from key/value pairs. Pairs with an empty
// value are left out.
func NewMarker(kind string, kv ...string) Marker {
	m := Marker{Kind: kind}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		m.Attrs = append(m.Attrs, MarkerAttr{Key: kv[i], Val: kv[i+1]})
	}
	return m
}

// Get returns the value for key, or ""
func (m Marker) Get(key string) string {
	for _, a := range m.Attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// String renders the marker as a single-line comment
func (m Marker) String() string {
	var b strings.Builder
	b.WriteString(markerOpen)
	b.WriteString(m.Kind)
	for _, a := range m.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(quoteMarkerValue(a.Val))
	}
	b.WriteString(" ")
	b.WriteString(markerClose)
	return b.String()
}

// NodeTag returns the marker line that ties a block to its storage node
func NodeTag(id string) string {
	return NewMarker(KindNode, "id", id).String()
}

func widgetMarker(t WidgetToken) Marker {
	m := Marker{Kind: KindWidget, Attrs: []MarkerAttr{{Key: "name", Val: t.Name}}}
	keys := make([]string, 0, len(t.Params))
	for k := range t.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Attrs = append(m.Attrs, MarkerAttr{Key: k, Val: t.Params[k]})
	}
	return m
}

// quoteMarkerValue quotes a value so it can never terminate the comment
func quoteMarkerValue(v string) string {
	return strings.ReplaceAll(strconv.Quote(v), ">", `\u003e`)
}

// ParseMarker reads a marker at the start of s. It returns the marker and
// the number of bytes consumed.
func ParseMarker(s string) (Marker, int, bool) {
	if !strings.HasPrefix(s, markerOpen) {
		return Marker{}, 0, false
	}
	i := len(markerOpen)
	start := i
	for i < len(s) && (isLowerAlpha(s[i]) || s[i] == '-') {
		i++
	}
	if i == start {
		return Marker{}, 0, false
	}
	m := Marker{Kind: s[start:i]}

	for {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if strings.HasPrefix(s[i:], markerClose) {
			return m, i + len(markerClose), true
		}

		keyStart := i
		for i < len(s) && isKeyChar(s[i]) {
			i++
		}
		if i == keyStart || i >= len(s) || s[i] != '=' {
			return Marker{}, 0, false
		}
		key := s[keyStart:i]
		i++

		end, ok := quotedEnd(s, i)
		if !ok {
			return Marker{}, 0, false
		}
		val, err := strconv.Unquote(s[i:end])
		if err != nil {
			return Marker{}, 0, false
		}
		m.Attrs = append(m.Attrs, MarkerAttr{Key: key, Val: val})
		i = end
	}
}

// ParseMarkerLine parses a line that consists of exactly one marker
func ParseMarkerLine(line string) (Marker, bool) {
	line = strings.TrimSpace(line)
	m, n, ok := ParseMarker(line)
	if !ok || n != len(line) {
		return Marker{}, false
	}
	return m, true
}

// quotedEnd returns the index just past the Go string literal at s[i:]
func quotedEnd(s string, i int) (int, bool) {
	if i >= len(s) || s[i] != '"' {
		return 0, false
	}
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1, true
		case '\n':
			return 0, false
		}
	}
	return 0, false
}

func isLowerAlpha(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}
