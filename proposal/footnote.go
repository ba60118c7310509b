package proposal

import (
	"regexp"
	"strings"

	"artbiz_proposal/markdown"
	"artbiz_proposal/template"
)

const (
	snippetLimit    = 220
	defaultSnippet  = "(문서 인용)"
	footnoteNetLine = "근거: [1] [2]"
)

var (
	paren1Re   = regexp.MustCompile(`(?i)\(\s*SOURCE\s*1\s*\)`)
	paren2Re   = regexp.MustCompile(`(?i)\(\s*SOURCE\s*2\s*\)`)
	word1Re    = regexp.MustCompile(`(?i)\bSOURCE\s*1\b`)
	word2Re    = regexp.MustCompile(`(?i)\bSOURCE\s*2\b`)
	footnoteRe = regexp.MustCompile(`\[[12]\]`)
)

type FootnoteReport struct {
	ConvertedSource1   int      `json:"converted_src1"`
	ConvertedSource2   int      `json:"converted_src2"`
	HasAppendixMapping bool     `json:"has_appendix_mapping"`
	Mapping            []string `json:"mapping"`
	BodyMarkers        int      `json:"body_markers"`
	TotalMarkers       int      `json:"total_markers"`
	AppendixCreated    bool     `json:"appendix_created,omitempty"`
	SafetyNetInserted  bool     `json:"safety_net_inserted,omitempty"`
}

// ApplyFootnotes rewrites SOURCE markers outside the appendix as [1]/[2],
// makes sure the appendix maps both numbers to evidence text and, when the body
// ended up without any footnote, adds one line to the first body section.
// evidence supplies the texts for [1] and [2]; missing entries get a default.
func ApplyFootnotes(tpl *template.Template, md string, evidence []string) (string, FootnoteReport) {
	doc := markdown.Split(md)
	if doc.Header == "" {
		doc.Header = "# " + tpl.Title()
	}
	appendix := tpl.Appendix().Title
	var r FootnoteReport

	for i, s := range doc.Sections {
		if s.Title == appendix {
			continue
		}
		body := s.Body()
		n1 := len(word1Re.FindAllStringIndex(body, -1))
		n2 := len(word2Re.FindAllStringIndex(body, -1))
		if n1+n2 == 0 {
			continue
		}
		r.ConvertedSource1 += n1
		r.ConvertedSource2 += n2
		body = paren1Re.ReplaceAllString(body, "[1]")
		body = word1Re.ReplaceAllString(body, "[1]")
		body = paren2Re.ReplaceAllString(body, "[2]")
		body = word2Re.ReplaceAllString(body, "[2]")
		doc.Sections[i].Lines = markdown.SplitLines(body)
	}

	r.Mapping = []string{"[1] " + snippet(evidence, 0), "[2] " + snippet(evidence, 1)}
	ai := doc.Index(appendix)
	if ai < 0 {
		doc.Sections = append(doc.Sections, markdown.Part{Title: appendix, Lines: []string{"- (근거)", ""}})
		ai = len(doc.Sections) - 1
		r.AppendixCreated = true
	}
	if body := doc.Sections[ai].Body(); !strings.Contains(body, "[1]") || !strings.Contains(body, "[2]") {
		lines := trimTrailingBlank(doc.Sections[ai].Lines)
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		doc.Sections[ai].Lines = append(lines, r.Mapping...)
	}

	if bodyFootnotes(doc, appendix) == 0 {
		for i, s := range doc.Sections {
			if s.Title == appendix {
				continue
			}
			doc.Sections[i].Lines = append(trimTrailingBlank(s.Lines), footnoteNetLine)
			r.SafetyNetInserted = true
			break
		}
	}

	out := doc.Join()
	r.BodyMarkers = bodyFootnotes(doc, appendix)
	r.TotalMarkers = len(footnoteRe.FindAllStringIndex(out, -1))
	ab := doc.Sections[doc.Index(appendix)].Body()
	r.HasAppendixMapping = strings.Contains(ab, "[1]") && strings.Contains(ab, "[2]")
	return out, r
}

func bodyFootnotes(doc markdown.Doc, appendix string) int {
	n := 0
	for _, s := range doc.Sections {
		if s.Title != appendix {
			n += len(footnoteRe.FindAllStringIndex(s.Body(), -1))
		}
	}
	return n
}

// snippet flattens and truncates evidence[i] by runes.
func snippet(evidence []string, i int) string {
	if i >= len(evidence) {
		return defaultSnippet
	}
	s := strings.TrimSpace(strings.ReplaceAll(evidence[i], "\n", " "))
	if s == "" {
		return defaultSnippet
	}
	if r := []rune(s); len(r) > snippetLimit {
		s = string(r[:snippetLimit]) + "…"
	}
	return s
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return append([]string(nil), lines[:end]...)
}
