// Package template holds the canonical proposal section schema.
package template

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Canonical section keys.
const (
	KeyExecutiveSummary   = "executive_summary"
	KeyContextGoal        = "context_goal"
	KeyAudienceStrategy   = "audience_strategy"
	KeySponsorshipPackage = "sponsorship_package"
	KeyKPIMeasurement     = "kpi_measurement"
	KeyTimeline           = "timeline"
	KeyBudget             = "budget"
	KeyActivation         = "activation"
	KeyRiskCompliance     = "risk_compliance"
	KeyAppendixSources    = "appendix_sources"
)

const DefaultVersion = "v16"

// Section 是模板中的一个固定章节，运行期不可变。
type Section struct {
	Key      string `yaml:"key" json:"key"`
	Title    string `yaml:"title" json:"title"`
	Required bool   `yaml:"required" json:"required"`
	// Cited 标记该章节必须带有证据标记。
	Cited bool `yaml:"cited" json:"cited"`
}

// Template is an ordered, validated section list. Build it with Default or Load.
type Template struct {
	version  string
	title    string
	sections []Section
	cited    []Section
	appendix Section
	byKey    map[string]int
	byTitle  map[string]int
}

var defaultSections = []Section{
	{Key: KeyExecutiveSummary, Title: "1. 요약(Executive Summary)", Required: true, Cited: true},
	{Key: KeyContextGoal, Title: "2. 배경/목표(Why & Goals)", Required: true, Cited: true},
	{Key: KeyAudienceStrategy, Title: "3. 타깃/전략(Target & Strategy)", Required: true, Cited: true},
	{Key: KeySponsorshipPackage, Title: "4. 후원 패키지(티어/혜택)", Required: true},
	{Key: KeyKPIMeasurement, Title: "5. KPI/측정(Measurement)", Required: true, Cited: true},
	{Key: KeyTimeline, Title: "6. 일정/운영(Timeline & Ops)", Required: true},
	{Key: KeyBudget, Title: "7. 예산/집행(Budget)", Required: true},
	{Key: KeyActivation, Title: "8. 노출/활성화(Brand Activation)", Required: true, Cited: true},
	{Key: KeyRiskCompliance, Title: "9. 리스크/컴플라이언스(Risk)", Required: true, Cited: true},
	{Key: KeyAppendixSources, Title: "10. 부록/근거(Sources & Appendix)", Required: true, Cited: true},
}

var defaultTemplate = mustNew(DefaultVersion, "후원 제안서 (고정 템플릿 "+DefaultVersion+")", defaultSections)

// Default returns the process-wide ten-section template.
func Default() *Template {
	return defaultTemplate
}

func mustNew(version, title string, sections []Section) *Template {
	t, err := New(version, title, sections)
	if err != nil {
		panic(err)
	}
	return t
}

// New validates sections and derives the cited subset and lookups once.
func New(version, title string, sections []Section) (*Template, error) {
	if len(sections) == 0 {
		return nil, errors.New("template has no sections")
	}
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("template title is required")
	}
	t := &Template{
		version:  version,
		title:    title,
		sections: append([]Section(nil), sections...),
		byKey:    make(map[string]int, len(sections)),
		byTitle:  make(map[string]int, len(sections)),
	}
	hasAppendix := false
	for i, s := range t.sections {
		if s.Key == "" || strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("section %d: key and title are required", i+1)
		}
		if _, dup := t.byKey[s.Key]; dup {
			return nil, fmt.Errorf("duplicate section key %q", s.Key)
		}
		if _, dup := t.byTitle[s.Title]; dup {
			return nil, fmt.Errorf("duplicate section title %q", s.Title)
		}
		t.byKey[s.Key] = i
		t.byTitle[s.Title] = i
		if s.Cited {
			t.cited = append(t.cited, s)
		}
		if s.Key == KeyAppendixSources {
			t.appendix = s
			hasAppendix = true
		}
	}
	if !hasAppendix {
		return nil, fmt.Errorf("template must contain the %q section", KeyAppendixSources)
	}
	return t, nil
}

type fileTemplate struct {
	Version  string    `yaml:"version"`
	Title    string    `yaml:"title"`
	Sections []Section `yaml:"sections"`
}

// Load reads an alternate template from a YAML file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ft fileTemplate
	if err := yaml.Unmarshal(data, &ft); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	if ft.Version == "" {
		ft.Version = DefaultVersion
	}
	return New(ft.Version, ft.Title, ft.Sections)
}

func (t *Template) Version() string { return t.version }

// Title is the H1 text without the leading "# ".
func (t *Template) Title() string { return t.title }

// Sections returns a copy of the ordered sections.
func (t *Template) Sections() []Section {
	return append([]Section(nil), t.sections...)
}

// Cited returns the sections that must each carry an evidence marker.
func (t *Template) Cited() []Section {
	return append([]Section(nil), t.cited...)
}

func (t *Template) Appendix() Section { return t.appendix }

func (t *Template) Titles() []string {
	out := make([]string, len(t.sections))
	for i, s := range t.sections {
		out[i] = s.Title
	}
	return out
}

func (t *Template) ByKey(key string) (Section, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return Section{}, false
	}
	return t.sections[i], true
}

// IndexOf returns the canonical position of an exact title, or -1.
func (t *Template) IndexOf(title string) int {
	if i, ok := t.byTitle[title]; ok {
		return i
	}
	return -1
}

// IsCited reports whether the exact title belongs to a cited section.
func (t *Template) IsCited(title string) bool {
	i := t.IndexOf(title)
	return i >= 0 && t.sections[i].Cited
}

// MatchKey strips the enumeration prefix and the parenthetical suffix:
// "4. 후원 패키지(티어/혜택)" -> "후원 패키지".
func MatchKey(title string) string {
	s := strings.TrimSpace(title)
	if i := strings.Index(s, ". "); i >= 0 {
		s = s[i+2:]
	}
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
