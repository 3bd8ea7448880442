package convert

// BlockKind identifies a top-level block of a normalized document
type BlockKind int

const (
	// BlockGeneric is ordinary markup handed to the generic converter
	BlockGeneric BlockKind = iota
	BlockTable
	BlockCode
	BlockPanel
	BlockWidget
	BlockRule
	BlockImage
	BlockTaskList
)

// Block is one top-level unit of a normalized document.
// Generic blocks carry markup with token placeholders; every other kind
// refers to a token (or, for tables, to the side table).
type Block struct {
	Kind   BlockKind
	Markup string
	Ref    int
}

// Token is a storage construct that must survive the generic conversion
// step intact. Tokens are created by the normalizer and consumed by the
// decoder within a single conversion.
type Token interface {
	isToken()
}

// MentionToken is a user reference
type MentionToken struct {
	AccountID string
	Label     string
}

// StatusToken is a coloured status lozenge
type StatusToken struct {
	Color string
	Title string
}

// CodeToken is a code or noformat macro
type CodeToken struct {
	Language string
	Body     string
}

// PanelToken is an info/note/warning/tip or generic panel
type PanelToken struct {
	Color  string
	Icon   string
	Title  string
	Blocks []Block
}

// ImageToken is an attached or external image
type ImageToken struct {
	Attachment string
	URL        string
	Alt        string
	Caption    string
}

// CommentStartToken opens an inline comment range
type CommentStartToken struct{ ID string }

// CommentEndToken closes an inline comment range
type CommentEndToken struct{ ID string }

// TableToken refers to a nested table in the side table
type TableToken struct{ Index int }

// WidgetToken is a bodyless macro kept as a named placeholder
type WidgetToken struct {
	Name   string
	Params map[string]string
}

// LinkKind distinguishes link targets
type LinkKind int

const (
	LinkURL LinkKind = iota
	LinkPage
	LinkAttachment
	LinkAnchor
)

// LinkToken is a page, attachment or URL link
type LinkToken struct {
	Kind   LinkKind
	Target string
	Space  string
	Anchor string
	Label  string
}

// TaskListToken is a list of checkable tasks
type TaskListToken struct {
	Tasks []Task
}

// Task is one entry of a task list. Markup holds the task body with
// token placeholders.
type Task struct {
	Done   bool
	Markup string
}

// RuleToken is a horizontal rule
type RuleToken struct{}

// LiteralToken is text that would otherwise read as an escape of the
// generic converter, such as a literal "&lt;"
type LiteralToken struct {
	Text string
}

func (MentionToken) isToken()      {}
func (StatusToken) isToken()       {}
func (CodeToken) isToken()         {}
func (PanelToken) isToken()        {}
func (ImageToken) isToken()        {}
func (CommentStartToken) isToken() {}
func (CommentEndToken) isToken()   {}
func (TableToken) isToken()        {}
func (WidgetToken) isToken()       {}
func (LinkToken) isToken()         {}
func (TaskListToken) isToken()     {}
func (RuleToken) isToken()         {}
func (LiteralToken) isToken()      {}

// Table is a rectangular-on-render matrix of cells
type Table struct {
	Rows [][]Cell
}

// Cell is one table cell. Lines hold inline markup with token
// placeholders, one entry per visual line.
type Cell struct {
	Lines      []string
	Background string
}

// Columns returns the widest row length
func (t Table) Columns() int {
	cols := 0
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return cols
}

// Normalized is the typed intermediate form of a storage document
type Normalized struct {
	Blocks []Block
	Tokens []Token
	Tables []Table
	Report *FidelityReport

	nonce string
}
