package convert

import "strings"

// NormalizeEscapes strips escapes the generic converter adds that mean
// nothing in this dialect: escaped underscores, escaped list-numeral dots
// outside list position, and doubled backslashes that precede a plain
// character. The converter writes < and > in text as &lt; and &gt;; those
// become \< and \>. Fenced code, inline code spans and comments are left
// alone. Applying it twice gives the same result as applying it once.
func NormalizeEscapes(text string) string {
	lines := strings.Split(text, "\n")
	fence := ""
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " >")
		if fence != "" {
			if closesFence(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if f := openingFence(trimmed); f != "" {
			fence = f
			continue
		}
		lines[i] = normalizeLineEscapes(line)
	}
	return strings.Join(lines, "\n")
}

// openingFence returns the fence run that opens a code block, or ""
func openingFence(line string) string {
	if len(line) < 3 || (line[0] != '`' && line[0] != '~') {
		return ""
	}
	n := countLeadingChars(line, line[0])
	if n < 3 {
		return ""
	}
	if line[0] == '`' && strings.Contains(line[n:], "`") {
		return ""
	}
	return line[:n]
}

func closesFence(line, fence string) bool {
	n := countLeadingChars(line, fence[0])
	return n >= len(fence) && strings.TrimSpace(line[n:]) == ""
}

func normalizeLineEscapes(line string) string {
	if !strings.Contains(line, `\`) && !strings.Contains(line, "&") {
		return line
	}

	var b strings.Builder
	i := 0
	for i < len(line) {
		c := line[i]

		if c == '`' {
			n := countLeadingChars(line[i:], '`')
			if end := closingBackticks(line, i+n, n); end >= 0 {
				b.WriteString(line[i:end])
				i = end
				continue
			}
			b.WriteString(line[i : i+n])
			i += n
			continue
		}

		if strings.HasPrefix(line[i:], "<!--") {
			end := strings.Index(line[i:], "-->")
			if end < 0 {
				b.WriteString(line[i:])
				break
			}
			b.WriteString(line[i : i+end+3])
			i += end + 3
			continue
		}

		if c == '&' {
			if strings.HasPrefix(line[i:], "&lt;") {
				b.WriteString(`\<`)
				i += 4
				continue
			}
			if strings.HasPrefix(line[i:], "&gt;") {
				b.WriteString(`\>`)
				i += 4
				continue
			}
		}

		if c != '\\' || i+1 >= len(line) {
			b.WriteByte(c)
			i++
			continue
		}

		next := line[i+1]
		switch {
		case next == '\\':
			if i+2 < len(line) && !isASCIIPunct(line[i+2]) && line[i+2] != 'n' {
				b.WriteByte('\\')
			} else {
				b.WriteString(`\\`)
			}
		case next == '_':
			b.WriteByte('_')
		case (next == '.' || next == ')') && i > 0 && isDigit(line[i-1]) && !wouldStartOrderedList(line, i):
			b.WriteByte(next)
		default:
			b.WriteByte(c)
			b.WriteByte(next)
		}
		i += 2
	}
	return b.String()
}

// wouldStartOrderedList reports whether unescaping the delimiter at
// line[i+1] turns the line into an ordered list item
func wouldStartOrderedList(line string, i int) bool {
	prefix := strings.TrimLeft(line[:i], " ")
	if prefix == "" || strings.TrimLeft(prefix, "0123456789") != "" {
		return false
	}
	return i+2 >= len(line) || line[i+2] == ' ' || line[i+2] == '\t'
}

// closingBackticks finds the end of a code span whose opening run of n
// backticks ends at from. It returns -1 when the span is unterminated.
func closingBackticks(s string, from, n int) int {
	for i := from; i < len(s); {
		if s[i] != '`' {
			i++
			continue
		}
		run := countLeadingChars(s[i:], '`')
		if run == n {
			return i + run
		}
		i += run
	}
	return -1
}

// countLeadingChars counts leading occurrences of ch in s
func countLeadingChars(s string, ch byte) int {
	count := 0
	for i := 0; i < len(s) && s[i] == ch; i++ {
		count++
	}
	return count
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isASCIIPunct(c byte) bool {
	return c >= '!' && c <= '/' || c >= ':' && c <= '@' || c >= '[' && c <= '`' || c >= '{' && c <= '~'
}
