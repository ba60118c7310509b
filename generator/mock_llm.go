package generator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

var (
	mockSponsorRe  = regexp.MustCompile(`(?m)^SPONSOR[=:]\s*(.*)$`)
	mockCampaignRe = regexp.MustCompile(`(?m)^CAMPAIGN[=:]\s*(.*)$`)
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
// JSON 提示返回分章节叙述，否则返回一篇结构松散的 Markdown 草稿。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	sponsor := mockField(mockSponsorRe, prompt.User, "후원사")
	campaign := mockField(mockCampaignRe, prompt.User, "캠페인")
	if prompt.JSON {
		data, err := json.Marshal(Narratives{
			ExecutiveSummary: fmt.Sprintf("%s와 함께하는 %s 후원 제안입니다. (SOURCE 1)", sponsor, campaign),
			ContextGoal:      "관객 저변 확대와 재방문율 제고를 목표로 합니다. (SOURCE 2)",
			AudienceStrategy: "20~30대 신규 관객과 가족 관객을 우선 타깃으로 합니다. (SOURCE 1)",
			KPIMeasurement:   "노출, 참여, 전환 지표를 주 단위로 측정합니다. (SOURCE 2)",
			Activation:       "현장 부스와 SNS 공동 캠페인으로 브랜드를 노출합니다. (SOURCE 1)",
			RiskCompliance:   "개인정보는 최소 수집하고 후원 표기는 규정을 따릅니다. (SOURCE 2)",
			AppendixSources:  "- SOURCE 1: 후원 정책 문서\n- SOURCE 2: 관객개발 노트",
		})
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s 후원 제안서\n\n", campaign)
	fmt.Fprintf(&sb, "%s를 위한 자동 생성 초안입니다.\n\n", sponsor)
	sb.WriteString("## 요약\n캠페인 개요와 기대 효과를 정리합니다. (SOURCE 1)\n\n")
	sb.WriteString("## 목표와 배경\n관객개발이 핵심 과제입니다.\n\n")
	sb.WriteString("## 후원 패키지\n티어별 혜택은 표로 정리합니다.\n\n")
	sb.WriteString("## 예산/집행\n예산은 채널별로 배분합니다.\n\n")
	sb.WriteString("## 리스크/컴플라이언스\n- 일정 지연\n- 개인정보 처리 (SOURCE 2)\n\n")
	sb.WriteString("## 근거\n- SOURCE 1: 후원 정책 문서\n- SOURCE 2: 관객개발 노트\n")
	return sb.String(), nil
}

func mockField(re *regexp.Regexp, s, fallback string) string {
	if m := re.FindStringSubmatch(s); len(m) == 2 && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	return fallback
}
