package proposal

import (
	"strconv"
	"strings"

	"artbiz_proposal/markdown"
	"artbiz_proposal/tools"
)

type BudgetCheck struct {
	ToolTotal  int64 `json:"tool_total"`
	TableTotal int64 `json:"table_total"`
	OK         bool  `json:"ok"`
}

type PackageCheck struct {
	ToolAmounts  []int64 `json:"tool_amounts"`
	TableAmounts []int64 `json:"table_amounts"`
	OK           bool    `json:"ok"`
}

// ConsistencyReport compares the amounts printed in the document with ToolData.
type ConsistencyReport struct {
	Budget    BudgetCheck  `json:"budget"`
	Package   PackageCheck `json:"package"`
	SourcesOK bool         `json:"sources_ok"`
	Score     float64      `json:"score"`
}

// ExtractTableAmounts returns the second-column amounts of the first pipe table
// whose header row contains keyword. The table ends at a blank line or the next
// heading; divider rows are skipped and an unparsable amount counts as 0.
func ExtractTableAmounts(md, keyword string) []int64 {
	amounts := []int64{}
	inTable := false
	for _, b := range markdown.Tokenize(md) {
		if !inTable {
			if b.Kind == markdown.TableRow && strings.Contains(b.Line, keyword) {
				inTable = true
			}
			continue
		}
		switch b.Kind {
		case markdown.Blank, markdown.Heading, markdown.Title:
			return amounts
		case markdown.TableRow:
			if strings.Contains(b.Line, keyword) {
				continue
			}
			cells := markdown.Cells(b.Line)
			if len(cells) < 2 {
				continue
			}
			amounts = append(amounts, parseAmount(cells[1]))
		}
	}
	return amounts
}

func parseAmount(cell string) int64 {
	n, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(cell), ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// CheckBudgetTotal passes when ToolData has no budget or the table sums to its total.
func CheckBudgetTotal(md string, td tools.ToolData) BudgetCheck {
	var c BudgetCheck
	if td.BudgetSplit != nil {
		c.ToolTotal = td.BudgetSplit.Total
	}
	for _, a := range ExtractTableAmounts(md, BudgetKeyword) {
		c.TableTotal += a
	}
	c.OK = c.ToolTotal == 0 || c.TableTotal == c.ToolTotal
	return c
}

// CheckPackageAmounts passes when ToolData has no tiers or the first rows of
// the package table carry exactly the tier prices, in order.
func CheckPackageAmounts(md string, td tools.ToolData) PackageCheck {
	c := PackageCheck{ToolAmounts: []int64{}}
	if td.SponsorshipPackage != nil {
		for _, t := range td.SponsorshipPackage.Tiers {
			c.ToolAmounts = append(c.ToolAmounts, t.PriceKRW)
		}
	}
	c.TableAmounts = ExtractTableAmounts(md, PackageKeyword)
	if len(c.ToolAmounts) == 0 {
		c.OK = true
		return c
	}
	if len(c.TableAmounts) < len(c.ToolAmounts) {
		return c
	}
	c.OK = true
	for i, a := range c.ToolAmounts {
		if c.TableAmounts[i] != a {
			c.OK = false
			break
		}
	}
	return c
}

func CheckConsistency(md string, td tools.ToolData) ConsistencyReport {
	r := ConsistencyReport{
		Budget:    CheckBudgetTotal(md, td),
		Package:   CheckPackageAmounts(md, td),
		SourcesOK: HasEvidenceMarker(md),
	}
	if r.Budget.OK && r.Package.OK && r.SourcesOK {
		r.Score = 1
	}
	return r
}
