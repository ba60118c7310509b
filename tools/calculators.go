package tools

import (
	"fmt"
	"time"
)

// Ratios 为预算四项的分配比例，求和不必为 1，计算时会归一化。
type Ratios struct {
	AdsPaid     float64 `json:"paid_ads_ratio"`
	ContentProd float64 `json:"content_ratio"`
	Community   float64 `json:"community_ratio"`
	Contingency float64 `json:"contingency_ratio"`
}

// DefaultRatios returns the 0.45/0.30/0.15/0.10 split.
func DefaultRatios() Ratios {
	return Ratios{AdsPaid: 0.45, ContentProd: 0.30, Community: 0.15, Contingency: 0.10}
}

const (
	MinWeeks     = 1
	MaxWeeks     = 12
	MinTierCount = 1
	MaxTierCount = 5

	// MaxAmountKRW 是金额上限（1000조 원），保证 float64 精确且乘以档位权重不溢出。
	MaxAmountKRW int64 = 1_000_000_000_000_000

	OrgGeneral = "general"
)

func checkAmount(name string, v int64) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidInput, name, v)
	}
	if v > MaxAmountKRW {
		return fmt.Errorf("%w: %s must not exceed %d, got %d", ErrInvalidInput, name, MaxAmountKRW, v)
	}
	return nil
}

// ComputeBudgetSplit 按比例拆分总预算，前三项向下取整，最后一项取余数。
func ComputeBudgetSplit(total int64, r Ratios) (BudgetSplit, error) {
	if err := checkAmount("total", total); err != nil {
		return BudgetSplit{}, err
	}
	ratios := []float64{r.AdsPaid, r.ContentProd, r.Community, r.Contingency}
	var sum float64
	for _, v := range ratios {
		if v < 0 || v > 1 {
			return BudgetSplit{}, fmt.Errorf("%w: ratio %v out of range [0,1]", ErrInvalidInput, v)
		}
		sum += v
	}
	if sum == 0 {
		sum = 1
	}
	for i := range ratios {
		ratios[i] = ratios[i] / sum
	}

	ads := int64(float64(total) * ratios[0])
	content := int64(float64(total) * ratios[1])
	community := int64(float64(total) * ratios[2])
	return BudgetSplit{
		AdsPaid:     ads,
		ContentProd: content,
		Community:   community,
		Contingency: total - ads - content - community,
		Total:       total,
	}, nil
}

type phase struct {
	title        string
	deliverables []string
	owner        string
}

var (
	phaseSetup = phase{
		title:        "전략/세팅",
		deliverables: []string{"타깃 페르소나 정의", "메시지 프레임", "채널/예산 배분", "콘텐츠 캘린더 초안"},
		owner:        "PM/마케팅",
	}
	phaseLaunch = phase{
		title:        "콘텐츠 제작/런칭",
		deliverables: []string{"키비주얼/카피 확정", "랜딩/예약/구매 동선 점검", "런칭 게시/광고 집행", "모니터링 대시보드"},
		owner:        "마케팅/디자인",
	}
	phaseOperate = phase{
		title:        "운영/최적화",
		deliverables: []string{"A/B 테스트", "커뮤니티 협업 이벤트", "리포트/회고", "후속 제안서"},
		owner:        "운영/분석",
	}
)

// ComputeTimeline 生成逐周计划：第 1 周策略/准备，第 2 周制作/上线，之后均为运营/优化。
func ComputeTimeline(startDate string, weeks int, goal string) (Timeline, error) {
	if weeks < MinWeeks || weeks > MaxWeeks {
		return Timeline{}, fmt.Errorf("%w: weeks must be in %d..%d, got %d", ErrInvalidInput, MinWeeks, MaxWeeks, weeks)
	}
	start, err := time.Parse(time.DateOnly, startDate)
	if err != nil {
		return Timeline{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidInput, startDate, err)
	}

	items := make([]TimelineItem, 0, weeks)
	for w := 1; w <= weeks; w++ {
		p := phaseOperate
		switch w {
		case 1:
			p = phaseSetup
		case 2:
			p = phaseLaunch
		}
		items = append(items, TimelineItem{
			Week:         w,
			Title:        p.title,
			Deliverables: append([]string(nil), p.deliverables...),
			Owner:        p.owner,
			StartsOn:     start.AddDate(0, 0, 7*(w-1)).Format(time.DateOnly),
		})
	}
	return Timeline{StartDate: startDate, Weeks: weeks, Goal: goal, Items: items}, nil
}

var tierNames = []string{"PLATINUM", "GOLD", "SILVER", "BRONZE", "SUPPORTER"}

var commonBenefits = []string{
	"로고 노출(웹/현장/인쇄물)",
	"초청권/네트워킹",
	"성과 리포트 제공",
}

const (
	bannerBenefit = "현장 배너 노출 확대"
	namingBenefit = "메인 타이틀 스폰서 네이밍(가능 시)"
)

var orgExtras = map[string][]string{
	"festival":   {"프로그램 북 광고", "VIP 라운지 네이밍"},
	"museum":     {"특별전 프리뷰 초청", "교육 프로그램 공동브랜딩"},
	"theatre":    {"커튼콜 스폰서 멘션", "로비 프로모션 부스"},
	"foundation": {"CSR 스토리 콘텐츠 제작", "임직원 참여 프로그램"},
	"gallery":    {"컬렉터 프리뷰", "작가 토크 후원"},
	OrgGeneral:   {"공식 파트너 표기", "SNS 공동 캠페인"},
}

var tierKPIs = []string{"노출(Impressions)", "참여(Clicks/Engagement)", "전환(Leads/Tickets)"}

// OrgTypes lists the organisation types with a dedicated benefit set.
func OrgTypes() []string {
	return []string{"museum", "theatre", "festival", "foundation", "gallery", OrgGeneral}
}

// ResolveOrgType maps unknown or empty org types to "general".
func ResolveOrgType(orgType string) string {
	if _, ok := orgExtras[orgType]; ok {
		return orgType
	}
	return OrgGeneral
}

// ComputeSponsorshipPackage 按权重 n..1 分配目标金额，最后一档吸收取整余数。
// 权益逐档累加：底档为通用权益+横幅，第二档起加机构专属权益，顶档再加冠名。
func ComputeSponsorshipPackage(tierCount int, totalTarget int64, orgType string) (SponsorshipPackage, error) {
	if tierCount < MinTierCount || tierCount > MaxTierCount {
		return SponsorshipPackage{}, fmt.Errorf("%w: tier count must be in %d..%d, got %d", ErrInvalidInput, MinTierCount, MaxTierCount, tierCount)
	}
	if err := checkAmount("total target", totalTarget); err != nil {
		return SponsorshipPackage{}, err
	}
	org := ResolveOrgType(orgType)

	var weightSum int64
	for w := 1; w <= tierCount; w++ {
		weightSum += int64(w)
	}
	prices := make([]int64, tierCount)
	var allocated int64
	for i := 0; i < tierCount; i++ {
		weight := int64(tierCount - i)
		prices[i] = totalTarget * weight / weightSum
		allocated += prices[i]
	}
	prices[tierCount-1] += totalTarget - allocated

	tiers := make([]Tier, 0, tierCount)
	for i := 0; i < tierCount; i++ {
		benefits := append([]string(nil), commonBenefits...)
		benefits = append(benefits, bannerBenefit)
		if i <= 1 {
			benefits = append(benefits, orgExtras[org]...)
		}
		if i == 0 {
			benefits = append(benefits, namingBenefit)
		}
		tiers = append(tiers, Tier{
			Name:     tierNames[i],
			PriceKRW: prices[i],
			Benefits: benefits,
			KPIs:     append([]string(nil), tierKPIs...),
		})
	}
	return SponsorshipPackage{TotalTarget: totalTarget, OrgType: org, Tiers: tiers}, nil
}
