package generator

import (
	"artbiz_proposal/proposal"
	"artbiz_proposal/template"
	"artbiz_proposal/tools"
)

// Brief 描述一次提案生成所需的全部输入。
type Brief struct {
	Sponsor  string
	Campaign string
	ToolData tools.ToolData
	Tables   proposal.Tables
	// Evidence 是检索到的证据正文，按 SOURCE 1、SOURCE 2 的顺序排列。
	Evidence []string
	Notes    string
}

// Narratives holds the model-written body of every non-table section.
type Narratives struct {
	ExecutiveSummary string `json:"executive_summary"`
	ContextGoal      string `json:"context_goal"`
	AudienceStrategy string `json:"audience_strategy"`
	KPIMeasurement   string `json:"kpi_measurement"`
	Activation       string `json:"activation"`
	RiskCompliance   string `json:"risk_compliance"`
	AppendixSources  string `json:"appendix_sources"`
}

// Map keys the narratives by template section key.
func (n Narratives) Map() map[string]string {
	return map[string]string{
		template.KeyExecutiveSummary: n.ExecutiveSummary,
		template.KeyContextGoal:      n.ContextGoal,
		template.KeyAudienceStrategy: n.AudienceStrategy,
		template.KeyKPIMeasurement:   n.KPIMeasurement,
		template.KeyActivation:       n.Activation,
		template.KeyRiskCompliance:   n.RiskCompliance,
		template.KeyAppendixSources:  n.AppendixSources,
	}
}

// Draft is a free-form markdown proposal from the legacy mode.
type Draft struct {
	Title    string
	Digest   string
	Markdown string
}
