package convert

import "strings"

// Feature is a category of storage construct that does not survive conversion
type Feature string

const (
	FeatureMultiColumn    Feature = "multi-column layout"
	FeaturePageLayout     Feature = "page layout"
	FeatureExpand         Feature = "expand section"
	FeatureInclude        Feature = "page include"
	FeatureExcerpt        Feature = "excerpt"
	FeatureChart          Feature = "chart or diagram"
	FeaturePageTree       Feature = "page tree"
	FeatureRoadmap        Feature = "roadmap or timeline"
	FeatureEmbed          Feature = "embedded iframe or widget"
	FeatureMergedCells    Feature = "merged table cells"
	FeatureDynamicContent Feature = "dynamic content listing"
	FeatureIssueTracker   Feature = "issue tracker integration"
)

// featureOrder fixes the order features are reported in
var featureOrder = []Feature{
	FeatureMultiColumn,
	FeaturePageLayout,
	FeatureExpand,
	FeatureInclude,
	FeatureExcerpt,
	FeatureChart,
	FeaturePageTree,
	FeatureRoadmap,
	FeatureEmbed,
	FeatureMergedCells,
	FeatureDynamicContent,
	FeatureIssueTracker,
}

// FidelityReport collects unsupported features seen during normalization.
// It is informational and never stops a conversion.
type FidelityReport struct {
	counts map[Feature]int
}

// NewFidelityReport returns an empty report
func NewFidelityReport() *FidelityReport {
	return &FidelityReport{counts: make(map[Feature]int)}
}

// Add records one occurrence of a feature
func (r *FidelityReport) Add(f Feature) {
	r.counts[f]++
}

// Merge adds every occurrence recorded in other
func (r *FidelityReport) Merge(other *FidelityReport) {
	if other == nil {
		return
	}
	for f, n := range other.counts {
		r.counts[f] += n
	}
}

// Count returns how many times a feature was seen
func (r *FidelityReport) Count(f Feature) int {
	return r.counts[f]
}

// Empty reports whether nothing unsupported was seen
func (r *FidelityReport) Empty() bool {
	return len(r.counts) == 0
}

// Features returns the distinct features seen, in a stable order
func (r *FidelityReport) Features() []Feature {
	var out []Feature
	for _, f := range featureOrder {
		if r.counts[f] > 0 {
			out = append(out, f)
		}
	}
	return out
}

// Strings returns the feature names, for front matter and log output
func (r *FidelityReport) Strings() []string {
	var out []string
	for _, f := range r.Features() {
		out = append(out, string(f))
	}
	return out
}

func (r *FidelityReport) String() string {
	if r.Empty() {
		return "no unsupported features"
	}
	return "unsupported: " + strings.Join(r.Strings(), ", ")
}
