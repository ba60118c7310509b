package generator

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System string
	User   string
	// JSON 为 true 时调用方期望模型只返回一个 JSON 对象。
	JSON bool
}

var sectionKeys = []string{
	"executive_summary", "context_goal", "audience_strategy", "kpi_measurement",
	"activation", "risk_compliance", "appendix_sources",
}

// BuildSectionsPrompt 生成分章节撰写提示词：模型只写叙述章节，表格由程序生成。
func BuildSectionsPrompt(b Brief) Prompt {
	var sb strings.Builder
	sb.WriteString("너는 예술경영 후원 제안서 작성자다.\n")
	sb.WriteString("규칙:\n")
	sb.WriteString("1) 숫자/금액/기간은 TOOL_DATA와 TABLES를 절대 벗어나지 말 것(추측 금지)\n")
	sb.WriteString("2) 서술 섹션만 작성한다(표는 작성하지 말 것)\n")
	sb.WriteString("3) 각 서술 섹션 마지막 문장에 (SOURCE 1) 또는 (SOURCE 2)를 1회 이상 넣는다. appendix_sources에는 SOURCE 1/2 목록을 남긴다\n")
	sb.WriteString("4) 한국어로, 간결하고 실행 가능한 문장\n")
	sb.WriteString("5) JSON 객체 하나만 출력한다. 키: " + strings.Join(sectionKeys, ", ") + "\n")

	var ub strings.Builder
	fmt.Fprintf(&ub, "SPONSOR=%s\nCAMPAIGN=%s\n\n", b.Sponsor, b.Campaign)
	fmt.Fprintf(&ub, "TOOL_DATA(JSON):\n%s\n\n", indentJSON(b.ToolData))
	fmt.Fprintf(&ub, "TABLES(결정론):\n%s\n\n", indentJSON(b.Tables))
	ub.WriteString("DOC_SNIPS:\n")
	for i, e := range b.Evidence {
		if i == 2 {
			break
		}
		fmt.Fprintf(&ub, "- %s\n", e)
	}
	fmt.Fprintf(&ub, "\nBASE_NOTES(있으면 참고):\n%s\n\n", b.Notes)
	ub.WriteString("출력 스키마 섹션별 본문만 생성: " + strings.Join(sectionKeys, ", "))

	return Prompt{System: sb.String(), User: ub.String(), JSON: true}
}

// BuildDraftPrompt 生成整篇自由稿提示词（legacy 模式），结构由后续规范化修复。
func BuildDraftPrompt(b Brief) Prompt {
	system := "너는 예술경영 후원 제안서 작성자다.\n" +
		"- TOOL_DATA의 숫자/구조를 그대로 활용해 제안서를 작성한다(추측 금지).\n" +
		"- CONTEXT에서 근거를 찾아 '근거' 섹션에 SOURCE 1~2를 반드시 인용한다.\n" +
		"- 마지막에 리스크 체크리스트 포함.\n" +
		"- Markdown만 출력하고 별도 설명은 하지 않는다."

	contexts := make([]string, 0, len(b.Evidence))
	for i, e := range b.Evidence {
		contexts = append(contexts, fmt.Sprintf("SOURCE %d: %s", i+1, e))
	}
	user := fmt.Sprintf("SPONSOR: %s\nCAMPAIGN: %s\n\nTOOL_DATA:\n%s\n\nCONTEXT:\n%s\n\n"+
		"요청: 후원사 맞춤 제안서(요약, 목표, 패키지, KPI, 일정, 예산, 리스크) 작성",
		b.Sponsor, b.Campaign, indentJSON(b.ToolData), strings.Join(contexts, "\n\n"))
	if notes := strings.TrimSpace(b.Notes); notes != "" {
		user += "\n\nNOTES:\n" + notes
	}

	return Prompt{System: system, User: user}
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
