package proposal

import (
	"regexp"
	"strings"

	"artbiz_proposal/markdown"
	"artbiz_proposal/template"
)

const (
	// DefaultMinPerSection is the marker floor for each cited section.
	DefaultMinPerSection = 1
	// DefaultMinTotalMarkers is the document-wide floor checked after enforcement.
	DefaultMinTotalMarkers = 6
	// minNonAppendixMarkers keeps evidence from living only in the appendix.
	minNonAppendixMarkers = 3

	citationLine = "근거: SOURCE 1, SOURCE 2"
)

var sourceMarkerRe = regexp.MustCompile(`\bSOURCE\s*[12]\b`)

func countMarkers(s string) int {
	return len(sourceMarkerRe.FindAllStringIndex(s, -1))
}

// SectionMarkers is the marker count of one section.
type SectionMarkers struct {
	Title   string `json:"title"`
	Markers int    `json:"markers"`
	Cited   bool   `json:"cited"`
}

type CitationReport struct {
	Required         []string         `json:"required"`
	PerSection       []SectionMarkers `json:"per_section"`
	Inserted         []string         `json:"inserted_sections,omitempty"`
	TotalMarkers     int              `json:"total_markers"`
	MinPerSection    int              `json:"min_per_section"`
	SectionsAppended int              `json:"sections_appended"`
}

// EnforceSectionCitations guarantees every cited section holds at least
// minPerSection evidence markers. Cited sections missing from md are inserted
// at their canonical position; sections below the floor get a citation line.
func EnforceSectionCitations(tpl *template.Template, md string, minPerSection int) (string, CitationReport) {
	doc := markdown.Split(md)
	if doc.Header == "" {
		doc.Header = "# " + tpl.Title()
	}
	report := CitationReport{MinPerSection: minPerSection}
	for _, c := range tpl.Cited() {
		report.Required = append(report.Required, c.Title)
		if doc.Index(c.Title) >= 0 {
			continue
		}
		doc.Sections = insertSection(tpl, doc.Sections, markdown.Part{Title: c.Title, Lines: []string{Placeholder}})
		report.Inserted = append(report.Inserted, c.Title)
	}

	for i, s := range doc.Sections {
		cited := tpl.IsCited(s.Title)
		n := countMarkers(s.Body())
		if cited && n < minPerSection {
			body := strings.TrimSpace(s.Body())
			if body == "" {
				body = citationLine
			} else {
				body += "\n" + citationLine
			}
			doc.Sections[i].Lines = markdown.SplitLines(body)
			n = countMarkers(body)
			report.SectionsAppended++
		}
		report.PerSection = append(report.PerSection, SectionMarkers{Title: s.Title, Markers: n, Cited: cited})
	}

	out := doc.Join()
	report.TotalMarkers = countMarkers(out)
	return out, report
}

// insertSection places p after the last section whose canonical index precedes p's.
func insertSection(tpl *template.Template, sections []markdown.Part, p markdown.Part) []markdown.Part {
	target := tpl.IndexOf(p.Title)
	at := 0
	for j, s := range sections {
		if k := tpl.IndexOf(s.Title); k >= 0 && k < target {
			at = j + 1
		}
	}
	sections = append(sections, markdown.Part{})
	copy(sections[at+1:], sections[at:])
	sections[at] = p
	return sections
}

// PlacementReport is the outcome of CitationPlacementCheck.
type PlacementReport struct {
	TotalMarkers       int              `json:"total_markers"`
	MinTotalMarkers    int              `json:"min_total_markers"`
	NonAppendixMarkers int              `json:"non_appendix_markers"`
	RequiredSectionsOK bool             `json:"required_sections_ok"`
	MissingCitations   []string         `json:"missing_citations"`
	PerSection         []SectionMarkers `json:"per_section"`
	Score              float64          `json:"score"`
}

// CitationPlacementCheck scores md: every cited section needs a marker, the
// document needs at least minTotal markers and at least three of them must
// sit outside the appendix.
func CitationPlacementCheck(tpl *template.Template, md string, minTotal int) PlacementReport {
	doc := markdown.Split(md)
	r := PlacementReport{MinTotalMarkers: minTotal, MissingCitations: []string{}}
	perTitle := map[string]int{}
	appendix := tpl.Appendix().Title
	for _, s := range doc.Sections {
		n := countMarkers(s.Body())
		perTitle[s.Title] += n
		if s.Title != appendix {
			r.NonAppendixMarkers += n
		}
		r.PerSection = append(r.PerSection, SectionMarkers{Title: s.Title, Markers: n, Cited: tpl.IsCited(s.Title)})
	}
	r.TotalMarkers = countMarkers(md)
	for _, c := range tpl.Cited() {
		if perTitle[c.Title] < 1 {
			r.MissingCitations = append(r.MissingCitations, c.Title)
		}
	}
	r.RequiredSectionsOK = len(r.MissingCitations) == 0
	if r.RequiredSectionsOK && r.TotalMarkers >= minTotal && r.NonAppendixMarkers >= minNonAppendixMarkers {
		r.Score = 1
	}
	return r
}
