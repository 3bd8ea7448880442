package convert

import (
	"strings"
	"testing"

	"github.com/gerunddev/wikibridge/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	headingStorage = `<h1>Title</h1>`
	strongStorage  = `<p>Hello <strong>world</strong></p>`
	statusStorage  = `<p>Build <ac:structured-macro ac:name="status"><ac:parameter ac:name="colour">Green</ac:parameter><ac:parameter ac:name="title">DONE</ac:parameter></ac:structured-macro></p>`
	codeStorage    = `<ac:structured-macro ac:name="code"><ac:parameter ac:name="language">go</ac:parameter><ac:plain-text-body><![CDATA[fmt.Println("hi")]]></ac:plain-text-body></ac:structured-macro>`
	panelStorage   = `<ac:structured-macro ac:name="info"><ac:parameter ac:name="title">Heads up</ac:parameter><ac:rich-text-body><p>Read this</p></ac:rich-text-body></ac:structured-macro>`
	tableStorage   = `<table><tbody><tr><th>A</th></tr><tr><td data-highlight-colour="red">x</td></tr></tbody></table>`
	imageStorage   = `<ac:image ac:align="center" ac:width="600"><ri:attachment ri:filename="diagram.png"/><ac:caption><p>Figure 1</p></ac:caption></ac:image>`
	mentionStorage = `<p>Ping <ac:link><ri:user ri:account-id="u42"/></ac:link></p>`
	linkStorage    = `<p>See <ac:link><ri:page ri:space-key="ENG" ri:content-title="Design Doc"/></ac:link></p>`
	commentStorage = `<p>a <ac:inline-comment-marker ac:ref="c1">b</ac:inline-comment-marker> c</p>`
	taskStorage    = `<ac:task-list><ac:task><ac:task-status>complete</ac:task-status><ac:task-body>Ship it</ac:task-body></ac:task></ac:task-list>`
)

func TestToText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "heading", input: headingStorage, expected: "# Title"},
		{name: "strong", input: strongStorage, expected: "Hello **world**"},
		{name: "status", input: statusStorage, expected: `Build <!-- wiki:status color="Green" title="DONE" -->`},
		{name: "code", input: codeStorage, expected: "```go\nfmt.Println(\"hi\")\n```"},
		{name: "panel", input: panelStorage, expected: "> <!-- wiki:panel color=\"info\" title=\"Heads up\" -->\n> Read this"},
		{name: "table with background", input: tableStorage, expected: "| A |\n| --- |\n| x <!-- wiki:style bg=\"red\" --> |"},
		{name: "captioned image", input: imageStorage, expected: "![](attachment:diagram.png)\n*Figure 1*"},
		{name: "mention", input: mentionStorage, expected: `Ping <!-- wiki:mention id="u42" -->`},
		{name: "page link", input: linkStorage, expected: "See [Design Doc](page:ENG/Design%20Doc)"},
		{name: "comment range", input: commentStorage, expected: `a <!-- wiki:comment-start id="c1" -->b<!-- wiki:comment-end id="c1" --> c`},
		{name: "task list", input: taskStorage, expected: "- [x] Ship it"},
		{name: "blocks joined", input: headingStorage + "\n" + strongStorage, expected: "# Title\n\nHello **world**"},
		{name: "placeholder lookalike text", input: `<p>WBTOK12345678N0E</p>`, expected: "WBTOK12345678N0E"},
		{name: "rule", input: `<hr/>`, expected: RuleLine},
		{name: "widget", input: `<ac:structured-macro ac:name="toc"><ac:parameter ac:name="maxLevel">2</ac:parameter></ac:structured-macro>`, expected: `<!-- wiki:widget name="toc" maxLevel="2" -->`},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := c.ToText(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Text)
			assert.True(t, result.Report.Empty())
		})
	}
}

func TestToTextRejectsMalformedStorage(t *testing.T) {
	_, err := New().ToText(`<p>unclosed`)
	require.Error(t, err)

	var perr *storage.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestFidelityReport(t *testing.T) {
	src := `<ac:structured-macro ac:name="expand"><ac:parameter ac:name="title">More</ac:parameter>` +
		`<ac:rich-text-body><p>Hidden detail</p></ac:rich-text-body></ac:structured-macro>` +
		`<table><tbody><tr><th colspan="2">H</th></tr><tr><td>a</td><td>b</td></tr></tbody></table>` +
		`<ac:structured-macro ac:name="jira"><ac:parameter ac:name="key">ENG-1</ac:parameter></ac:structured-macro>`

	result, err := New().ToText(src)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Report.Count(FeatureExpand))
	assert.Equal(t, 1, result.Report.Count(FeatureMergedCells))
	assert.Equal(t, 1, result.Report.Count(FeatureIssueTracker))
	assert.Equal(t, []Feature{FeatureExpand, FeatureMergedCells, FeatureIssueTracker}, result.Report.Features())

	assert.Contains(t, result.Text, "Hidden detail")
	assert.Contains(t, result.Text, "| H |  |\n| --- | --- |\n| a | b |")
	assert.Contains(t, result.Text, `<!-- wiki:widget name="jira" key="ENG-1" -->`)
}

func TestTablesAreRectangular(t *testing.T) {
	src := `<table><tbody>` +
		`<tr><th>a</th><th>b</th><th>c</th></tr>` +
		`<tr><td>1</td></tr>` +
		`<tr><td><p>x</p><p>y</p></td><td style="background-color: #ffeeee"></td></tr>` +
		`</tbody></table>`

	result, err := New().ToText(src)
	require.NoError(t, err)

	lines := strings.Split(result.Text, "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		cells := splitRow(line)
		assert.Len(t, cells, 3, "row %q", line)
	}
	assert.Equal(t, `| x\ny | <!-- wiki:style bg="#ffeeee" --> |  |`, lines[3])
}

func TestRoundTrip(t *testing.T) {
	src := headingStorage + strongStorage + statusStorage + codeStorage + panelStorage +
		tableStorage + imageStorage + mentionStorage + linkStorage + commentStorage + taskStorage

	c := New()
	first, err := c.ToText(src)
	require.NoError(t, err)

	back := c.ToStorage(first.Text)
	assert.Equal(t, src, back)

	second, err := c.ToText(back)
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
}

func TestRoundTripAngleBrackets(t *testing.T) {
	tests := []struct {
		name  string
		input string
		text  string
	}{
		{name: "less than", input: `<p>a &lt; b</p>`, text: `a \< b`},
		{name: "tag-like text", input: `<p>&lt;div&gt;</p>`, text: `\<div\>`},
		{name: "list item", input: `<ul><li>&lt;b&gt;</li></ul>`, text: `- \<b\>`},
		{
			name:  "table cell",
			input: `<table><tbody><tr><th>Tag</th></tr><tr><td>use &lt;div&gt;</td></tr></tbody></table>`,
			text:  "| Tag |\n| --- |\n| use \\<div\\> |",
		},
		{name: "literal entity text", input: `<p>a &amp;lt; b &amp;gt; c</p>`, text: `a \&lt; b \&gt; c`},
		{name: "other entity text", input: `<p>&amp;copy; 2024</p>`, text: `&copy; 2024`},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := c.ToText(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.text, first.Text)

			back := c.ToStorage(first.Text)
			assert.Equal(t, tt.input, back)

			second, err := c.ToText(back)
			require.NoError(t, err)
			assert.Equal(t, first.Text, second.Text)
		})
	}
}

func TestSegments(t *testing.T) {
	doc, err := storage.Parse(`<h2 local-id="h">Intro</h2>` + "\n" + `<p local-id="p">Body</p>`)
	require.NoError(t, err)

	segs, report, err := New().Segments(doc)
	require.NoError(t, err)
	assert.True(t, report.Empty())
	require.Len(t, segs, 3)

	assert.Equal(t, "## Intro", segs[0].Text)
	assert.Equal(t, "", segs[1].Text)
	assert.Equal(t, "Body", segs[2].Text)

	_, id := segs[2].Node.Identifier()
	assert.Equal(t, "p", id)
}

func TestWithImageWidth(t *testing.T) {
	out := New(WithImageWidth(400)).ToStorage("![](attachment:a.png)")
	assert.Equal(t, `<ac:image ac:align="center" ac:width="400"><ri:attachment ri:filename="a.png"/></ac:image>`, out)
}

type upperRenderer struct{}

func (upperRenderer) Render(markup string) (string, error) {
	return strings.ToUpper(strings.TrimSuffix(strings.TrimPrefix(markup, "<p>"), "</p>")), nil
}

func TestWithRenderer(t *testing.T) {
	result, err := New(WithRenderer(upperRenderer{})).ToText(`<p>quiet</p>`)
	require.NoError(t, err)
	assert.Equal(t, "QUIET", result.Text)
}
