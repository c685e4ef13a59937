package core

import "sort"

// BudgetTable maps a category name to its budgeted amount in won.
// Budgets are not partitioned by year; year-over-year views reuse the
// same figures (known limitation carried over from the data model).
type BudgetTable map[string]int64

// Ratio is a budget attainment percentage. Valid is false when the
// budget is zero or absent, in which case the ratio is "not
// applicable" rather than a division-by-zero.
type Ratio struct {
	Percent float64
	Valid   bool
}

// BudgetLine pairs one category's budget with its actual figure.
type BudgetLine struct {
	Category   string
	Budget     Money
	Actual     Money
	Ratio      Ratio
	OverBudget bool
}

// BudgetSubtotal aggregates a group of budget lines. Its ratio is
// recomputed from the summed budget and actual, never averaged from
// per-line ratios.
type BudgetSubtotal struct {
	Budget Money
	Actual Money
	Ratio  Ratio
}

// Budget sort keys.
const (
	SortByCategory BudgetSortKey = "category"
	SortByBudget   BudgetSortKey = "budget"
	SortByActual   BudgetSortKey = "actual"
	SortByRatio    BudgetSortKey = "ratio"
)

type BudgetSortKey string

func makeRatio(budget, actual int64) Ratio {
	if budget <= 0 {
		return Ratio{}
	}
	return Ratio{Percent: float64(actual) / float64(budget) * 100, Valid: true}
}

// CompareBudget pairs each listed category's budget with the actual
// total of matching transactions in the given direction, in the order
// the categories are listed. Categories missing from the table get a
// zero budget and an invalid ratio. OverBudget is set whenever a
// positive budget is exceeded; it only carries meaning for expense
// categories but is computed identically for income.
func CompareBudget(budgets BudgetTable, txs []Transaction, d Direction, categories []string) []BudgetLine {
	actuals := make(map[string]int64, len(categories))
	for _, tx := range txs {
		if tx.Direction == d {
			actuals[tx.Category] += tx.Amount.Won
		}
	}

	lines := make([]BudgetLine, 0, len(categories))
	for _, cat := range categories {
		budget := budgets[cat]
		actual := actuals[cat]
		lines = append(lines, BudgetLine{
			Category:   cat,
			Budget:     Money{Won: budget},
			Actual:     Money{Won: actual},
			Ratio:      makeRatio(budget, actual),
			OverBudget: budget > 0 && actual > budget,
		})
	}
	return lines
}

// SubtotalLines rolls a group of budget lines into one subtotal row.
func SubtotalLines(lines []BudgetLine) BudgetSubtotal {
	var budget, actual int64
	for _, l := range lines {
		budget += l.Budget.Won
		actual += l.Actual.Won
	}
	return BudgetSubtotal{
		Budget: Money{Won: budget},
		Actual: Money{Won: actual},
		Ratio:  makeRatio(budget, actual),
	}
}

// SortBudgetLines orders lines by the given key, ascending or
// descending. The sort is stable, so ties keep their original order.
// Invalid ratios sort as zero.
func SortBudgetLines(lines []BudgetLine, key BudgetSortKey, descending bool) []BudgetLine {
	out := make([]BudgetLine, len(lines))
	copy(out, lines)

	less := func(a, b BudgetLine) bool {
		switch key {
		case SortByCategory:
			return a.Category < b.Category
		case SortByBudget:
			return a.Budget.Won < b.Budget.Won
		case SortByActual:
			return a.Actual.Won < b.Actual.Won
		case SortByRatio:
			return ratioValue(a.Ratio) < ratioValue(b.Ratio)
		default:
			return false
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func ratioValue(r Ratio) float64 {
	if !r.Valid {
		return 0
	}
	return r.Percent
}
