package tools

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestComputeBudgetSplitDefaultRatios(t *testing.T) {
	bs, err := ComputeBudgetSplit(30_000_000, DefaultRatios())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bs.AdsPaid != 13_500_000 || bs.ContentProd != 9_000_000 || bs.Community != 4_500_000 || bs.Contingency != 3_000_000 {
		t.Fatalf("unexpected split: %+v", bs)
	}
	if bs.Total != 30_000_000 {
		t.Fatalf("expected total 30000000, got %d", bs.Total)
	}
}

func TestComputeBudgetSplitSumsExactly(t *testing.T) {
	totals := []int64{1, 3, 7, 99, 1001, 33_333_333, 123_456_789, 999_999_999_999}
	ratios := []Ratios{
		DefaultRatios(),
		{AdsPaid: 0.33, ContentProd: 0.33, Community: 0.33, Contingency: 0.01},
		{AdsPaid: 0.7, ContentProd: 0.7, Community: 0.7, Contingency: 0.7},
		{AdsPaid: 1, ContentProd: 0, Community: 0, Contingency: 0},
	}
	for _, total := range totals {
		for _, r := range ratios {
			bs, err := ComputeBudgetSplit(total, r)
			if err != nil {
				t.Fatalf("total=%d ratios=%+v: %v", total, r, err)
			}
			if sum := bs.AdsPaid + bs.ContentProd + bs.Community + bs.Contingency; sum != total {
				t.Fatalf("total=%d ratios=%+v: parts sum to %d", total, r, sum)
			}
			if bs.AdsPaid < 0 || bs.ContentProd < 0 || bs.Community < 0 || bs.Contingency < 0 {
				t.Fatalf("negative part: %+v", bs)
			}
		}
	}
}

func TestComputeBudgetSplitAllZeroRatios(t *testing.T) {
	bs, err := ComputeBudgetSplit(1000, Ratios{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bs.AdsPaid != 0 || bs.ContentProd != 0 || bs.Community != 0 {
		t.Fatalf("expected zero allocations, got %+v", bs)
	}
	if bs.Contingency != 1000 {
		t.Fatalf("expected remainder 1000 in contingency, got %d", bs.Contingency)
	}
}

func TestComputeBudgetSplitRejectsInvalidInput(t *testing.T) {
	if _, err := ComputeBudgetSplit(0, DefaultRatios()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero total, got %v", err)
	}
	if _, err := ComputeBudgetSplit(-5, DefaultRatios()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative total, got %v", err)
	}
	bad := DefaultRatios()
	bad.Community = 1.5
	if _, err := ComputeBudgetSplit(100, bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for ratio > 1, got %v", err)
	}
}

func TestComputeTimelineWeeks(t *testing.T) {
	for weeks := MinWeeks; weeks <= MaxWeeks; weeks++ {
		tl, err := ComputeTimeline("2026-02-17", weeks, "관객개발 캠페인")
		if err != nil {
			t.Fatalf("weeks=%d: %v", weeks, err)
		}
		if len(tl.Items) != weeks {
			t.Fatalf("weeks=%d: expected %d items, got %d", weeks, weeks, len(tl.Items))
		}
		for i, it := range tl.Items {
			if it.Week != i+1 {
				t.Fatalf("weeks=%d: item %d has week %d", weeks, i, it.Week)
			}
		}
	}
}

func TestComputeTimelinePhases(t *testing.T) {
	tl, err := ComputeTimeline("2026-02-17", 4, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tl.Items[0].Title != "전략/세팅" || tl.Items[1].Title != "콘텐츠 제작/런칭" {
		t.Fatalf("unexpected first phases: %q, %q", tl.Items[0].Title, tl.Items[1].Title)
	}
	if tl.Items[2].Title != "운영/최적화" || tl.Items[3].Title != "운영/최적화" {
		t.Fatalf("expected operate phase to repeat, got %q, %q", tl.Items[2].Title, tl.Items[3].Title)
	}
	if tl.Items[0].StartsOn != "2026-02-17" || tl.Items[2].StartsOn != "2026-03-03" {
		t.Fatalf("unexpected week starts: %q, %q", tl.Items[0].StartsOn, tl.Items[2].StartsOn)
	}
}

func TestComputeTimelineRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		start string
		weeks int
	}{
		{"2026-02-17", 0},
		{"2026-02-17", 13},
		{"", 2},
		{"17/02/2026", 2},
	}
	for _, c := range cases {
		if _, err := ComputeTimeline(c.start, c.weeks, ""); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("start=%q weeks=%d: expected ErrInvalidInput, got %v", c.start, c.weeks, err)
		}
	}
}

func TestComputeSponsorshipPackageScenario(t *testing.T) {
	pkg, err := ComputeSponsorshipPackage(3, 30_000_000, "general")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{15_000_000, 10_000_000, 5_000_000}
	if len(pkg.Tiers) != len(want) {
		t.Fatalf("expected %d tiers, got %d", len(want), len(pkg.Tiers))
	}
	for i, w := range want {
		if pkg.Tiers[i].PriceKRW != w {
			t.Fatalf("tier %d: expected %d, got %d", i, w, pkg.Tiers[i].PriceKRW)
		}
	}
	if pkg.Tiers[0].Name != "PLATINUM" || pkg.Tiers[2].Name != "SILVER" {
		t.Fatalf("unexpected tier names: %q, %q", pkg.Tiers[0].Name, pkg.Tiers[2].Name)
	}
}

func TestComputeSponsorshipPackageSumsExactly(t *testing.T) {
	for tiers := MinTierCount; tiers <= MaxTierCount; tiers++ {
		for _, total := range []int64{1, 7, 1_000_001, 29_999_999, 987_654_321} {
			pkg, err := ComputeSponsorshipPackage(tiers, total, "museum")
			if err != nil {
				t.Fatalf("tiers=%d total=%d: %v", tiers, total, err)
			}
			var sum int64
			for _, tier := range pkg.Tiers {
				sum += tier.PriceKRW
			}
			if sum != total {
				t.Fatalf("tiers=%d total=%d: prices sum to %d", tiers, total, sum)
			}
		}
	}
}

func TestComputeSponsorshipPackageBenefitStacking(t *testing.T) {
	pkg, err := ComputeSponsorshipPackage(3, 9_000_000, "theatre")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top, mid, low := pkg.Tiers[0].Benefits, pkg.Tiers[1].Benefits, pkg.Tiers[2].Benefits
	for _, b := range low {
		if !contains(mid, b) || !contains(top, b) {
			t.Fatalf("lower-tier benefit %q missing from higher tiers", b)
		}
	}
	for _, b := range mid {
		if !contains(top, b) {
			t.Fatalf("mid-tier benefit %q missing from top tier", b)
		}
	}
	if !contains(top, namingBenefit) || contains(mid, namingBenefit) {
		t.Fatalf("naming rights must be exclusive to the top tier")
	}
	if !contains(mid, "커튼콜 스폰서 멘션") {
		t.Fatalf("expected theatre extras in mid tier, got %v", mid)
	}
}

func TestComputeSponsorshipPackageUnknownOrgFallsBack(t *testing.T) {
	pkg, err := ComputeSponsorshipPackage(1, 100, "circus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pkg.OrgType != OrgGeneral {
		t.Fatalf("expected org type general, got %q", pkg.OrgType)
	}
	if !contains(pkg.Tiers[0].Benefits, "공식 파트너 표기") {
		t.Fatalf("expected general benefits, got %v", pkg.Tiers[0].Benefits)
	}
}

func TestComputeSponsorshipPackageRejectsInvalidInput(t *testing.T) {
	if _, err := ComputeSponsorshipPackage(0, 100, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero tiers, got %v", err)
	}
	if _, err := ComputeSponsorshipPackage(6, 100, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for six tiers, got %v", err)
	}
	if _, err := ComputeSponsorshipPackage(3, 0, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero target, got %v", err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCalculatorsRejectAmountsAboveBound(t *testing.T) {
	bs, err := ComputeBudgetSplit(MaxAmountKRW, Ratios{AdsPaid: 0.33, ContentProd: 0.33, Community: 0.33, Contingency: 0.01})
	if err != nil {
		t.Fatalf("bound itself must be accepted: %v", err)
	}
	if sum := bs.AdsPaid + bs.ContentProd + bs.Community + bs.Contingency; sum != MaxAmountKRW || bs.Contingency < 0 {
		t.Fatalf("split at bound broken: %+v", bs)
	}
	for _, total := range []int64{MaxAmountKRW + 1, 1<<53 + 3, math.MaxInt64} {
		if _, err := ComputeBudgetSplit(total, Ratios{AdsPaid: 1}); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("total=%d: expected ErrInvalidInput, got %v", total, err)
		}
	}

	pkg, err := ComputeSponsorshipPackage(MaxTierCount, MaxAmountKRW, "general")
	if err != nil {
		t.Fatalf("bound itself must be accepted: %v", err)
	}
	var sum int64
	for _, tier := range pkg.Tiers {
		if tier.PriceKRW <= 0 {
			t.Fatalf("non-positive tier price at bound: %+v", tier)
		}
		sum += tier.PriceKRW
	}
	if sum != MaxAmountKRW {
		t.Fatalf("tiers sum to %d, want %d", sum, MaxAmountKRW)
	}
	if _, err := ComputeSponsorshipPackage(5, math.MaxInt64/2, "general"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for huge target, got %v", err)
	}
}

func TestMakeReport(t *testing.T) {
	r, err := MakeReport(ReportRequest{
		CampaignTitle: "봄 축제",
		Period:        "2026-02-01~2026-02-14",
		BudgetTotal:   30_000_000,
		KPIs:          []string{"노출 120만", " ", "예매 3,200건"},
		Highlights:    []string{"인스타 릴스 조회수 1위"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"# 봄 축제 성과 리포트\n",
		"- 기간: 2026-02-01~2026-02-14\n",
		"- 총예산: 30,000,000 KRW\n",
		"## 핵심 KPI\n- 노출 120만\n- 예매 3,200건\n",
		"## 하이라이트\n- 인스타 릴스 조회수 1위\n",
		"## 다음 액션\n- 상위 퍼포먼스 콘텐츠 리패키징/재집행\n",
	} {
		if !strings.Contains(r.Markdown, want) {
			t.Fatalf("report missing %q:\n%s", want, r.Markdown)
		}
	}
	if _, err := MakeReport(ReportRequest{BudgetTotal: 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without title, got %v", err)
	}
	if _, err := MakeReport(ReportRequest{CampaignTitle: "x", BudgetTotal: 0}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero budget, got %v", err)
	}
}
