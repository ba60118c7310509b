package tools

import "errors"

// ErrInvalidInput 表示计算器入参非法（总额非正、数量越界等），在计算前返回，不做静默截断。
var ErrInvalidInput = errors.New("invalid input")

// BudgetSplit 四项金额之和恒等于 Total，余数由 Contingency 吸收。
type BudgetSplit struct {
	AdsPaid     int64 `json:"ads_paid"`
	ContentProd int64 `json:"content_prod"`
	Community   int64 `json:"community"`
	Contingency int64 `json:"contingency"`
	Total       int64 `json:"total"`
}

// TimelineItem is one week of the execution plan.
type TimelineItem struct {
	Week         int      `json:"week"`
	Title        string   `json:"title"`
	Deliverables []string `json:"deliverables"`
	Owner        string   `json:"owner"`
	StartsOn     string   `json:"starts_on"`
}

// Timeline 周序号从 1 开始连续递增。
type Timeline struct {
	StartDate string         `json:"start_date"`
	Weeks     int            `json:"weeks"`
	Goal      string         `json:"goal"`
	Items     []TimelineItem `json:"items"`
}

// Tier is one sponsorship level.
type Tier struct {
	Name     string   `json:"name"`
	PriceKRW int64    `json:"price_krw"`
	Benefits []string `json:"benefits"`
	KPIs     []string `json:"kpis"`
}

// SponsorshipPackage 各档价格之和恒等于 TotalTarget。
type SponsorshipPackage struct {
	TotalTarget int64  `json:"total_target_krw"`
	OrgType     string `json:"org_type"`
	Tiers       []Tier `json:"tiers"`
}

// ToolData 是计算器的确定性输出，叙述与表格都不得与之矛盾。
type ToolData struct {
	BudgetSplit        *BudgetSplit        `json:"budget_split,omitempty"`
	Timeline           *Timeline           `json:"timeline,omitempty"`
	SponsorshipPackage *SponsorshipPackage `json:"sponsorship_package,omitempty"`
}
