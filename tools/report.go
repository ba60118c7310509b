package tools

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ReportRequest 是活动结束后成果报告的输入。
type ReportRequest struct {
	CampaignTitle string   `json:"campaign_title"`
	Period        string   `json:"period"`
	BudgetTotal   int64    `json:"budget_total_krw"`
	KPIs          []string `json:"kpis"`
	Highlights    []string `json:"highlights"`
}

type Report struct {
	Markdown string `json:"markdown"`
}

var reportNextActions = []string{
	"상위 퍼포먼스 콘텐츠 리패키징/재집행",
	"파트너/후원사 대상 성과 공유 및 후속 제안",
	"데이터 기반 타깃 세그먼트 정교화",
}

const reportFooter = "> 본 문서는 학습용 템플릿입니다. 조직/행사 특성에 맞게 수정하세요."

// MakeReport renders a campaign performance report as markdown.
func MakeReport(req ReportRequest) (Report, error) {
	title := strings.TrimSpace(req.CampaignTitle)
	if title == "" {
		return Report{}, fmt.Errorf("%w: campaign title is required", ErrInvalidInput)
	}
	if err := checkAmount("budget total", req.BudgetTotal); err != nil {
		return Report{}, err
	}
	p := message.NewPrinter(language.English)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s 성과 리포트\n\n", title)
	fmt.Fprintf(&b, "- 기간: %s\n", strings.TrimSpace(req.Period))
	b.WriteString(p.Sprintf("- 총예산: %d KRW\n\n", req.BudgetTotal))
	b.WriteString("## 핵심 KPI\n")
	writeBullets(&b, req.KPIs)
	b.WriteString("\n## 하이라이트\n")
	writeBullets(&b, req.Highlights)
	b.WriteString("\n## 다음 액션\n")
	writeBullets(&b, reportNextActions)
	b.WriteString("\n" + reportFooter + "\n")
	return Report{Markdown: b.String()}, nil
}

func writeBullets(b *strings.Builder, items []string) {
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			b.WriteString("- " + it + "\n")
		}
	}
}
