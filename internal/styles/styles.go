package styles

import "github.com/charmbracelet/lipgloss"

// Palette
const (
	Foreground = "#FCFCFA"
	Red        = "#FF6188"
	Orange     = "#FC9867"
	Yellow     = "#FFD866"
	Green      = "#A9DC76"
	Cyan       = "#78DCE8"
	Purple     = "#AB9DF2"
	Comment    = "#727072"
	Border     = "#5B595C"
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Green))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(Red))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Orange))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(Comment))
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(Purple))
	PathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(Cyan))

	// Section box around reports such as the unsupported feature list
	ReportStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(Border)).
			Padding(0, 1)
)

// Mode styles, keyed by push mode
var modeStyles = map[string]lipgloss.Style{
	"unchanged": DimStyle,
	"targeted":  SuccessStyle,
	"full":      lipgloss.NewStyle().Foreground(lipgloss.Color(Yellow)).Bold(true),
}

// Mode renders a push mode name in its color
func Mode(mode string) string {
	style, ok := modeStyles[mode]
	if !ok {
		style = lipgloss.NewStyle().Foreground(lipgloss.Color(Foreground))
	}
	return style.Render(mode)
}

// Success renders a success line with a check mark
func Success(msg string) string {
	return SuccessStyle.Render("✓ " + msg)
}

// Error renders an error line with a cross
func Error(msg string) string {
	return ErrorStyle.Render("✗ " + msg)
}

// Warning renders a warning line
func Warning(msg string) string {
	return WarningStyle.Render("! " + msg)
}
