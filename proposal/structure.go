package proposal

import (
	"strings"

	"artbiz_proposal/markdown"
	"artbiz_proposal/template"
)

// StructureReport is the outcome of CheckStructure.
type StructureReport struct {
	MissingSections []string `json:"missing_sections"`
	OrderOK         bool     `json:"order_ok"`
	TablesOK        bool     `json:"tables_ok"`
	SourcesOK       bool     `json:"sources_ok"`
	Score           float64  `json:"score"`
}

// HasEvidenceMarker reports whether s mentions SOURCE 1 or SOURCE 2.
func HasEvidenceMarker(s string) bool {
	return strings.Contains(s, "SOURCE 1") || strings.Contains(s, "SOURCE 2")
}

// CheckStructure reports missing canonical headings, whether the canonical
// headings that are present appear in order, and whether every table section
// of the template carries its table. Score is 1 only when nothing is missing,
// order holds and tables are present.
func CheckStructure(tpl *template.Template, md string) StructureReport {
	found := map[string]bool{}
	orderOK := true
	last := -1
	for _, h := range markdown.Headings(md) {
		found[h] = true
		idx := tpl.IndexOf(h)
		if idx < 0 {
			continue
		}
		if idx < last {
			orderOK = false
		}
		if idx > last {
			last = idx
		}
	}

	r := StructureReport{MissingSections: []string{}, OrderOK: orderOK, TablesOK: true}
	for _, s := range tpl.Sections() {
		if !found[s.Title] {
			r.MissingSections = append(r.MissingSections, s.Title)
		}
		if spec, ok := tableSpecs[s.Key]; ok && !strings.Contains(md, spec.marker) {
			r.TablesOK = false
		}
	}
	r.SourcesOK = HasEvidenceMarker(md)
	if r.OrderOK && r.TablesOK && len(r.MissingSections) == 0 {
		r.Score = 1
	}
	return r
}
