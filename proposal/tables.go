package proposal

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"artbiz_proposal/template"
	"artbiz_proposal/tools"
)

// Placeholder marks content that still has to be written.
const Placeholder = "(작성)"

const (
	packageHeader   = "| 티어 | 금액(KRW) | 핵심 혜택 | KPI |"
	packageDivider  = "|---|---:|---|---|"
	timelineHeader  = "| 주차 | 목표 | 산출물 | 담당 |"
	timelineDivider = "|---:|---|---|---|"
	budgetHeader    = "| 항목 | 금액(KRW) | 비고 |"
	budgetDivider   = "|---|---:|---|"

	// Header keywords anchoring amount extraction in the consistency check.
	PackageKeyword = "티어"
	BudgetKeyword  = "항목"
)

// Tables holds the three rendered markdown tables.
type Tables struct {
	Package  string `json:"package_table"`
	Timeline string `json:"timeline_table"`
	Budget   string `json:"budget_table"`
}

type tableSpec struct {
	marker   string
	skeleton []string
	empty    func() string
}

// tableSpecs 以章节 key 索引；marker 用于判断章节内是否已有对应表格。
var tableSpecs = map[string]tableSpec{
	template.KeySponsorshipPackage: {
		marker: "| " + PackageKeyword,
		skeleton: []string{
			packageHeader,
			packageDivider,
			"| PLATINUM | 0 | (작성) | (작성) |",
			"| GOLD | 0 | (작성) | (작성) |",
			"| SILVER | 0 | (작성) | (작성) |",
		},
		empty: func() string { return RenderPackageTable(nil) },
	},
	template.KeyTimeline: {
		marker: "| 주차",
		skeleton: []string{
			timelineHeader,
			timelineDivider,
			"| 1 | (작성) | (작성) | (작성) |",
			"| 2 | (작성) | (작성) | (작성) |",
		},
		empty: func() string { return RenderTimelineTable(nil) },
	},
	template.KeyBudget: {
		marker: "| " + BudgetKeyword,
		skeleton: []string{
			budgetHeader,
			budgetDivider,
			"| 유료광고 | 0 | |",
			"| 콘텐츠 제작 | 0 | |",
			"| 커뮤니티/협업 | 0 | |",
			"| 예비비 | 0 | |",
		},
		empty: func() string { return RenderBudgetTable(nil) },
	},
}

// ForKey returns the rendered table for a table-bearing section key.
func (t Tables) ForKey(key string) (string, bool) {
	switch key {
	case template.KeySponsorshipPackage:
		return t.Package, true
	case template.KeyTimeline:
		return t.Timeline, true
	case template.KeyBudget:
		return t.Budget, true
	}
	return "", false
}

// RenderTables renders every ToolData entry; absent entries get a placeholder row.
func RenderTables(td tools.ToolData) Tables {
	return Tables{
		Package:  RenderPackageTable(td.SponsorshipPackage),
		Timeline: RenderTimelineTable(td.Timeline),
		Budget:   RenderBudgetTable(td.BudgetSplit),
	}
}

func RenderPackageTable(pkg *tools.SponsorshipPackage) string {
	lines := []string{packageHeader, packageDivider}
	if pkg == nil || len(pkg.Tiers) == 0 {
		lines = append(lines, row("TIER", "0", Placeholder, Placeholder))
		return strings.Join(lines, "\n")
	}
	for _, t := range pkg.Tiers {
		lines = append(lines, row(t.Name, FormatKRW(t.PriceKRW), joinOr(t.Benefits), joinOr(t.KPIs)))
	}
	return strings.Join(lines, "\n")
}

func RenderTimelineTable(tl *tools.Timeline) string {
	lines := []string{timelineHeader, timelineDivider}
	if tl == nil || len(tl.Items) == 0 {
		lines = append(lines, row("1", Placeholder, Placeholder, Placeholder))
		return strings.Join(lines, "\n")
	}
	for _, it := range tl.Items {
		owner := it.Owner
		if owner == "" {
			owner = Placeholder
		}
		lines = append(lines, row(fmt.Sprint(it.Week), orPlaceholder(it.Title), joinOr(it.Deliverables), owner))
	}
	return strings.Join(lines, "\n")
}

func RenderBudgetTable(bs *tools.BudgetSplit) string {
	lines := []string{budgetHeader, budgetDivider}
	if bs == nil {
		lines = append(lines, row("유료광고", "0", ""))
		return strings.Join(lines, "\n")
	}
	items := []struct {
		name   string
		amount int64
	}{
		{"유료광고", bs.AdsPaid},
		{"콘텐츠 제작", bs.ContentProd},
		{"커뮤니티/협업", bs.Community},
		{"예비비", bs.Contingency},
	}
	for _, it := range items {
		note := ""
		if bs.Total > 0 {
			note = fmt.Sprintf("%.1f%%", float64(it.amount)*100/float64(bs.Total))
		}
		lines = append(lines, row(it.name, FormatKRW(it.amount), note))
	}
	return strings.Join(lines, "\n")
}

// FormatKRW renders an amount with thousands separators: 30000000 -> "30,000,000".
func FormatKRW(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

func row(cells ...string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "\n", " ")
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return "| " + strings.Join(escaped, " | ") + " |"
}

func joinOr(items []string) string {
	if len(items) == 0 {
		return Placeholder
	}
	return strings.Join(items, ", ")
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
