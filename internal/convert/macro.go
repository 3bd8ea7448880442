package convert

import (
	"strings"

	"github.com/gerunddev/wikibridge/internal/storage"
)

// MacroKind is the closed set of ways a structured macro is handled
type MacroKind int

const (
	// MacroUnrecognized covers any macro name not listed below. Its body
	// is promoted so literal content survives.
	MacroUnrecognized MacroKind = iota
	MacroCode
	MacroStatus
	MacroPanel
	MacroWidget
	MacroUnsupported
)

// namedPanels are panel macros with their own storage name
var namedPanels = map[string]bool{
	"info":    true,
	"note":    true,
	"warning": true,
	"tip":     true,
}

// unsupportedMacros maps macro names to the feature they are reported as
var unsupportedMacros = map[string]Feature{
	"section":              FeatureMultiColumn,
	"column":               FeatureMultiColumn,
	"expand":               FeatureExpand,
	"ui-expand":            FeatureExpand,
	"include":              FeatureInclude,
	"excerpt-include":      FeatureInclude,
	"excerpt":              FeatureExcerpt,
	"chart":                FeatureChart,
	"drawio":               FeatureChart,
	"gliffy":               FeatureChart,
	"plantuml":             FeatureChart,
	"mermaid-cloud":        FeatureChart,
	"children":             FeaturePageTree,
	"pagetree":             FeaturePageTree,
	"pagetreesearch":       FeaturePageTree,
	"roadmap":              FeatureRoadmap,
	"timeline":             FeatureRoadmap,
	"iframe":               FeatureEmbed,
	"widget":               FeatureEmbed,
	"html":                 FeatureEmbed,
	"multimedia":           FeatureEmbed,
	"contentbylabel":       FeatureDynamicContent,
	"recently-updated":     FeatureDynamicContent,
	"blog-posts":           FeatureDynamicContent,
	"content-report-table": FeatureDynamicContent,
	"listlabels":           FeatureDynamicContent,
	"jira":                 FeatureIssueTracker,
	"jiraissues":           FeatureIssueTracker,
}

// widgetMacros are bodyless macros that round-trip as placeholders
var widgetMacros = map[string]bool{
	"toc":       true,
	"anchor":    true,
	"pagebreak": true,
}

// ClassifyMacro maps a macro name onto its kind. The feature is set only
// for MacroUnsupported.
func ClassifyMacro(name string) (MacroKind, Feature) {
	name = strings.ToLower(name)
	switch {
	case name == "code" || name == "noformat":
		return MacroCode, ""
	case name == "status":
		return MacroStatus, ""
	case name == "panel" || namedPanels[name]:
		return MacroPanel, ""
	case widgetMacros[name]:
		return MacroWidget, ""
	}
	if f, ok := unsupportedMacros[name]; ok {
		return MacroUnsupported, f
	}
	return MacroUnrecognized, ""
}

// macro is a structured macro read from storage markup
type macro struct {
	Name      string
	Params    map[string]string
	RichBody  *storage.Node
	PlainBody *storage.Node
}

func readMacro(n *storage.Node) macro {
	m := macro{
		Name:   strings.ToLower(n.Attr("ac:name")),
		Params: make(map[string]string),
	}
	for _, c := range n.Children {
		if c.Type != storage.ElementNode {
			continue
		}
		switch c.Name {
		case "ac:parameter":
			m.Params[c.Attr("ac:name")] = c.Text()
		case "ac:rich-text-body":
			m.RichBody = c
		case "ac:plain-text-body":
			m.PlainBody = c
		}
	}
	return m
}

func (m macro) hasBody() bool {
	return m.RichBody != nil || m.PlainBody != nil
}

func (m macro) codeToken() CodeToken {
	body := ""
	if m.PlainBody != nil {
		body = m.PlainBody.Text()
	}
	return CodeToken{Language: m.Params["language"], Body: body}
}

func (m macro) widgetToken() WidgetToken {
	params := make(map[string]string, len(m.Params))
	for k, v := range m.Params {
		if k == "" {
			continue
		}
		params[k] = v
	}
	return WidgetToken{Name: m.Name, Params: params}
}

// panelHeader returns the colour, icon and title of a panel macro.
// Named panels use their own name as the colour.
func (m macro) panelHeader() (color, icon, title string) {
	title = m.Params["title"]
	if m.Name == "panel" {
		icon = m.Params["panelIcon"]
		if icon == "" {
			icon = m.Params["icon"]
		}
		return m.Params["bgColor"], icon, title
	}
	return m.Name, m.Params["icon"], title
}
