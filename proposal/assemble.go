// Package proposal builds and polices the fixed-template sponsorship proposal:
// table rendering, assembly, normalization, structure and consistency checks,
// per-section citations and footnote conversion. Every function is pure.
package proposal

import (
	"strings"

	"artbiz_proposal/markdown"
	"artbiz_proposal/template"
)

const (
	appendixSource1Placeholder = "- SOURCE 1: (문서/규정/노트 인용)"
	appendixSource2Placeholder = "- SOURCE 2: (문서/규정/노트 인용)"
)

// Skeleton renders the empty template: every heading with placeholder content,
// skeleton tables for the table sections and placeholder sources in the appendix.
func Skeleton(tpl *template.Template) string {
	lines := []string{"# " + tpl.Title(), ""}
	for _, s := range tpl.Sections() {
		lines = append(lines, "## "+s.Title, "")
		switch {
		case s.Key == template.KeyAppendixSources:
			lines = append(lines, appendixSource1Placeholder, appendixSource2Placeholder)
		case hasTable(s.Key):
			lines = append(lines, tableSpecs[s.Key].skeleton...)
		default:
			lines = append(lines, Placeholder)
		}
		lines = append(lines, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

// Assemble fills every template section, in canonical order, from tables for
// the table sections and from narratives (keyed by section key) for the rest.
// Headings inside narratives are demoted so they cannot break the section order.
func Assemble(tpl *template.Template, title string, narratives map[string]string, tables Tables) string {
	if strings.TrimSpace(title) == "" {
		title = tpl.Title()
	}
	lines := []string{"# " + title, ""}
	for _, s := range tpl.Sections() {
		var content string
		if table, ok := tables.ForKey(s.Key); ok {
			content = strings.TrimSpace(table)
			if content == "" {
				content = tableSpecs[s.Key].empty()
			}
		} else {
			content = demoteHeadings(strings.TrimSpace(narratives[s.Key]))
		}
		if content == "" {
			content = Placeholder
		}
		lines = append(lines, "## "+s.Title, content, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

func demoteHeadings(text string) string {
	if text == "" {
		return ""
	}
	blocks := markdown.Tokenize(text)
	out := make([]string, len(blocks))
	for i, b := range blocks {
		switch b.Kind {
		case markdown.Title, markdown.Heading:
			out[i] = "### " + b.Text
		default:
			out[i] = b.Line
		}
	}
	return strings.Join(out, "\n")
}

func hasTable(key string) bool {
	_, ok := tableSpecs[key]
	return ok
}
