package convert

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var listPrefixPattern = regexp.MustCompile(`^[\s>]*(?:[-*+]|\d+[.)])\s+$`)

var urlEscaper = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "|", "%7C", "<", "%3C", ">", "%3E")

var labelEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	"|", `\|`,
	"~", `\~`,
)

func placeholderPattern(nonce string) *regexp.Regexp {
	return regexp.MustCompile(placeholderPrefix + regexp.QuoteMeta(nonce) + `N(\d+)E`)
}

// decode expands every placeholder in text. A block token that is the
// only thing on its line is expanded as a block, indented to match the
// line it replaces.
func (r *renderer) decode(text string) (string, error) {
	if !strings.Contains(text, placeholderPrefix+r.norm.nonce) {
		return text, nil
	}
	pattern := r.pattern

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		loc := pattern.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}

		if loc[1] == len(strings.TrimRight(line, " ")) {
			prefix := line[:loc[0]]
			if strings.TrimSpace(prefix) == "" || listPrefixPattern.MatchString(prefix) {
				tok := r.token(line[loc[2]:loc[3]])
				if isBlockToken(tok) {
					block, err := r.blockToken(tok)
					if err != nil {
						return "", err
					}
					lines[i] = indentBlock(block, prefix)
					continue
				}
			}
		}

		var expandErr error
		lines[i] = pattern.ReplaceAllStringFunc(line, func(ph string) string {
			m := pattern.FindStringSubmatch(ph)
			s, err := r.inlineToken(r.token(m[1]))
			if err != nil && expandErr == nil {
				expandErr = err
			}
			return s
		})
		if expandErr != nil {
			return "", expandErr
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (r *renderer) token(idx string) Token {
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(r.norm.Tokens) {
		return nil
	}
	return r.norm.Tokens[i]
}

func isBlockToken(t Token) bool {
	switch t.(type) {
	case CodeToken, PanelToken, TableToken, TaskListToken, RuleToken, ImageToken, WidgetToken:
		return true
	}
	return false
}

// indentBlock places a multi-line block behind prefix. Continuation lines
// keep any quote markers of the prefix and pad the rest with spaces.
func indentBlock(block, prefix string) string {
	var cont strings.Builder
	for _, c := range prefix {
		if c == '>' {
			cont.WriteRune('>')
		} else {
			cont.WriteByte(' ')
		}
	}
	contPrefix := cont.String()

	lines := strings.Split(block, "\n")
	for i, line := range lines {
		switch {
		case i == 0:
			lines[i] = prefix + line
		case line == "":
			lines[i] = strings.TrimRight(contPrefix, " ")
		default:
			lines[i] = contPrefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// blockToken renders a token that stands on its own lines
func (r *renderer) blockToken(t Token) (string, error) {
	switch t := t.(type) {
	case CodeToken:
		return codeFence(t), nil
	case PanelToken:
		return r.panel(t)
	case TableToken:
		return r.table(r.norm.Tables[t.Index])
	case TaskListToken:
		return r.taskList(t)
	case RuleToken:
		return RuleLine, nil
	case ImageToken:
		text := imageRef(t)
		if t.Caption != "" {
			text += "\n*" + labelEscaper.Replace(t.Caption) + "*"
		}
		return text, nil
	case WidgetToken:
		return widgetMarker(t).String(), nil
	}
	return r.inlineToken(t)
}

// inlineToken renders a token in running text
func (r *renderer) inlineToken(t Token) (string, error) {
	switch t := t.(type) {
	case nil:
		return "", nil
	case MentionToken:
		return NewMarker(KindMention, "id", t.AccountID, "label", t.Label).String(), nil
	case StatusToken:
		return NewMarker(KindStatus, "color", t.Color, "title", t.Title).String(), nil
	case CommentStartToken:
		return NewMarker(KindCommentStart, "id", t.ID).String(), nil
	case CommentEndToken:
		return NewMarker(KindCommentEnd, "id", t.ID).String(), nil
	case LinkToken:
		return linkText(t), nil
	case ImageToken:
		return imageRef(t), nil
	case WidgetToken:
		return widgetMarker(t).String(), nil
	case CodeToken:
		if !strings.Contains(strings.TrimRight(t.Body, "\n"), "\n") {
			return codeSpan(strings.TrimRight(t.Body, "\n")), nil
		}
		return codeFence(t), nil
	case RuleToken:
		return RuleLine, nil
	case LiteralToken:
		return `\` + t.Text, nil
	default:
		return r.blockToken(t)
	}
}

// LinkTarget returns the scheme-prefixed target of a link
func LinkTarget(t LinkToken) string {
	switch t.Kind {
	case LinkPage:
		target := "page:"
		if t.Space != "" {
			target += url.PathEscape(t.Space) + "/"
		}
		target += url.PathEscape(t.Target)
		if t.Anchor != "" {
			target += "#" + url.PathEscape(t.Anchor)
		}
		return target
	case LinkAttachment:
		return "attachment:" + url.PathEscape(t.Target)
	case LinkAnchor:
		return "#" + url.PathEscape(t.Anchor)
	default:
		return urlEscaper.Replace(t.Target)
	}
}

// defaultLabel is the text a link shows when it has no body of its own
func defaultLabel(t LinkToken) string {
	switch t.Kind {
	case LinkAnchor:
		return t.Anchor
	default:
		return t.Target
	}
}

func linkText(t LinkToken) string {
	label := t.Label
	if label == "" {
		label = defaultLabel(t)
	}
	return "[" + labelEscaper.Replace(label) + "](" + LinkTarget(t) + ")"
}

func imageRef(t ImageToken) string {
	target := urlEscaper.Replace(t.URL)
	if t.Attachment != "" {
		target = "attachment:" + url.PathEscape(t.Attachment)
	}
	return "![" + labelEscaper.Replace(t.Alt) + "](" + target + ")"
}

func codeSpan(body string) string {
	fence := strings.Repeat("`", longestRun(body, '`')+1)
	if strings.HasPrefix(body, "`") || strings.HasSuffix(body, "`") {
		return fence + " " + body + " " + fence
	}
	return fence + body + fence
}

func codeFence(t CodeToken) string {
	n := longestRun(t.Body, '`') + 1
	if n < 3 {
		n = 3
	}
	fence := strings.Repeat("`", n)
	body := strings.TrimRight(t.Body, "\n")
	if body == "" {
		return fence + t.Language + "\n" + fence
	}
	return fence + t.Language + "\n" + body + "\n" + fence
}

func longestRun(s string, ch byte) int {
	longest := 0
	for i := 0; i < len(s); {
		if s[i] != ch {
			i++
			continue
		}
		n := countLeadingChars(s[i:], ch)
		if n > longest {
			longest = n
		}
		i += n
	}
	return longest
}

func (r *renderer) panel(t PanelToken) (string, error) {
	body, err := r.blocks(t.Blocks)
	if err != nil {
		return "", fmt.Errorf("failed to render panel body: %w", err)
	}

	header := NewMarker(KindPanel, "color", t.Color, "icon", t.Icon, "title", t.Title)
	lines := []string{"> " + header.String()}
	if body != "" {
		for _, line := range strings.Split(body, "\n") {
			if line == "" {
				lines = append(lines, ">")
				continue
			}
			lines = append(lines, "> "+line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (r *renderer) taskList(t TaskListToken) (string, error) {
	var lines []string
	for _, task := range t.Tasks {
		body, err := r.markup("<p>" + task.Markup + "</p>")
		if err != nil {
			return "", err
		}
		box := "[ ] "
		if task.Done {
			box = "[x] "
		}
		lines = append(lines, indentBlock("- "+box+body, "  ")[2:])
	}
	return strings.Join(lines, "\n"), nil
}
