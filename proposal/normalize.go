package proposal

import (
	"strings"

	"artbiz_proposal/markdown"
	"artbiz_proposal/template"
)

// NormalizeReport describes what the normalizer found and filled in.
type NormalizeReport struct {
	SectionsRequired int      `json:"sections_required"`
	SectionsFound    int      `json:"sections_found"`
	UsedTitles       []string `json:"used_titles"`
	Placeholders     []string `json:"placeholders,omitempty"`
	HasSources       bool     `json:"has_sources"`
}

type extracted struct {
	title string
	lines []string
}

// Normalize rebuilds md in canonical order. Existing sections are matched by
// the title core (see template.MatchKey), missing ones get placeholder content,
// table sections without their table get a skeleton and evidence lines found
// anywhere are collected into the appendix. Applying it twice is a no-op.
func Normalize(tpl *template.Template, md string) (string, NormalizeReport) {
	doc := markdown.Split(md)

	// 同名标题合并为一个条目，保持首次出现的顺序。
	var entries []extracted
	pos := map[string]int{}
	for _, s := range doc.Sections {
		if i, ok := pos[s.Title]; ok {
			entries[i].lines = append(entries[i].lines, s.Lines...)
			continue
		}
		pos[s.Title] = len(entries)
		entries = append(entries, extracted{title: s.Title, lines: append([]string(nil), s.Lines...)})
	}
	captured := captureSources(md)

	report := NormalizeReport{
		SectionsRequired: len(tpl.Sections()),
		SectionsFound:    len(entries),
		HasSources:       len(captured) > 0,
	}

	header := doc.Header
	if header == "" {
		header = "# " + tpl.Title()
	}
	out := []string{header, ""}
	used := make([]bool, len(entries))
	for _, s := range tpl.Sections() {
		needle := template.MatchKey(s.Title)
		if needle == "" {
			needle = s.Title
		}
		content := ""
		matched := false
		for i, e := range entries {
			if used[i] || !strings.Contains(e.title, needle) {
				continue
			}
			used[i] = true
			matched = true
			content = strings.TrimSpace(strings.Join(e.lines, "\n"))
			report.UsedTitles = append(report.UsedTitles, e.title)
			break
		}
		if !matched {
			report.Placeholders = append(report.Placeholders, s.Title)
		}
		if content == "" {
			content = Placeholder
		}
		out = append(out, "## "+s.Title, content, "")

		if spec, ok := tableSpecs[s.Key]; ok && !strings.Contains(content, spec.marker) {
			out = append(out, spec.skeleton...)
			out = append(out, "")
		}
		if s.Key == template.KeyAppendixSources {
			sources := captured
			if len(sources) == 0 {
				sources = []string{appendixSource1Placeholder, appendixSource2Placeholder}
			}
			if missing := missingLines(content, sources); len(missing) > 0 {
				out = append(out, missing...)
				out = append(out, "")
			}
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n")) + "\n", report
}

// captureSources returns the distinct trimmed body lines carrying an evidence
// marker. Heading lines stay where they are.
func captureSources(md string) []string {
	var out []string
	seen := map[string]bool{}
	for _, b := range markdown.Tokenize(md) {
		if b.Kind == markdown.Title || b.Kind == markdown.Heading || !HasEvidenceMarker(b.Line) {
			continue
		}
		line := strings.TrimSpace(b.Line)
		if seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out
}

func missingLines(content string, want []string) []string {
	have := map[string]bool{}
	for _, line := range markdown.SplitLines(content) {
		have[strings.TrimSpace(line)] = true
	}
	var out []string
	for _, w := range want {
		if !have[w] {
			out = append(out, w)
		}
	}
	return out
}
