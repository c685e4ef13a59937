package core

// Aggregation over a transaction subset. Every view derives its
// figures from these functions so that the same filtered set always
// reconciles to the same numbers, whether it is shown on a dashboard,
// a budget report, or a printed statement.
//
// All functions are pure: they never mutate their input and carry no
// state between calls. Sums are exact integer addition, so the order
// of the input does not affect any result. An empty subset yields
// zeroes, never an error.

// SumByDirection totals the amounts of transactions flowing in the
// given direction.
func SumByDirection(txs []Transaction, d Direction) Money {
	var sum Money
	for _, tx := range txs {
		if tx.Direction == d {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

// SumByCategory totals amounts per category name. Callers wanting a
// single direction filter the subset first.
func SumByCategory(txs []Transaction) map[string]Money {
	sums := make(map[string]Money)
	for _, tx := range txs {
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
	}
	return sums
}

// SumByFundAndDirection totals the amounts of one fund type in one
// direction.
func SumByFundAndDirection(txs []Transaction, ft FundType, d Direction) Money {
	var sum Money
	for _, tx := range txs {
		if tx.FundType == ft && tx.Direction == d {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

// CarryoverIncome totals the income booked under the carryover
// category of the given fund type.
func CarryoverIncome(txs []Transaction, tax *Taxonomy, ft FundType) Money {
	carryCat := tax.CarryoverCategory(ft)
	var sum Money
	for _, tx := range txs {
		if tx.Direction != Income || tx.FundType != ft {
			continue
		}
		if tx.Category == carryCat || tx.Category == LegacyCarryover {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

// PureIncome is a fund's income earned in the period: its total income
// minus what was merely carried over from before.
func PureIncome(txs []Transaction, tax *Taxonomy, ft FundType) Money {
	return SumByFundAndDirection(txs, ft, Income).Sub(CarryoverIncome(txs, tax, ft))
}

// TotalCarryover totals carryover income across both fund types.
func TotalCarryover(txs []Transaction, tax *Taxonomy) Money {
	var sum Money
	for _, tx := range txs {
		if tx.Direction == Income && tax.IsCarryover(tx.Category) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

// TotalPureIncome is combined income minus combined carryover.
func TotalPureIncome(txs []Transaction, tax *Taxonomy) Money {
	return SumByDirection(txs, Income).Sub(TotalCarryover(txs, tax))
}

// Balance is total income minus total expense across both fund types.
func Balance(txs []Transaction) Money {
	return SumByDirection(txs, Income).Sub(SumByDirection(txs, Expense))
}

// FundSubtotal carries one fund's (or the combined) totals.
type FundSubtotal struct {
	Income  Money
	Expense Money
	Balance Money
}

// Subtotals holds the per-fund and combined figures shown alongside
// the ledger table.
type Subtotals struct {
	General  FundSubtotal
	Special  FundSubtotal
	Combined FundSubtotal
}

// ComputeSubtotals derives per-fund and combined income/expense/balance
// figures. The combined row is always the sum of the fund rows.
func ComputeSubtotals(txs []Transaction) Subtotals {
	gi := SumByFundAndDirection(txs, FundGeneral, Income)
	ge := SumByFundAndDirection(txs, FundGeneral, Expense)
	si := SumByFundAndDirection(txs, FundSpecial, Income)
	se := SumByFundAndDirection(txs, FundSpecial, Expense)

	return Subtotals{
		General:  FundSubtotal{Income: gi, Expense: ge, Balance: gi.Sub(ge)},
		Special:  FundSubtotal{Income: si, Expense: se, Balance: si.Sub(se)},
		Combined: FundSubtotal{Income: gi.Add(si), Expense: ge.Add(se), Balance: gi.Add(si).Sub(ge.Add(se))},
	}
}

// MonthlyFlow buckets a year's figures per calendar month (index 0 is
// January).
type MonthlyFlow struct {
	Income  [12]int64
	Expense [12]int64
	Balance [12]int64
}

// YearFlow is the per-fund and combined monthly series for one year,
// plus the year totals, as used by the analysis charts.
type YearFlow struct {
	General  MonthlyFlow
	Special  MonthlyFlow
	Combined MonthlyFlow
	Totals   Subtotals
}

// ComputeYearFlow distributes a year's transactions into monthly
// income/expense/balance series. Transactions outside the year or with
// malformed dates are ignored.
func ComputeYearFlow(txs []Transaction, year int) YearFlow {
	var flow YearFlow
	inYear := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Date.Valid() || tx.Date.Year() != year {
			continue
		}
		inYear = append(inYear, tx)
		m := tx.Date.Month() - 1

		target := &flow.General
		if tx.FundType == FundSpecial {
			target = &flow.Special
		}
		switch tx.Direction {
		case Income:
			target.Income[m] += tx.Amount.Won
			flow.Combined.Income[m] += tx.Amount.Won
		case Expense:
			target.Expense[m] += tx.Amount.Won
			flow.Combined.Expense[m] += tx.Amount.Won
		}
	}

	for m := 0; m < 12; m++ {
		flow.General.Balance[m] = flow.General.Income[m] - flow.General.Expense[m]
		flow.Special.Balance[m] = flow.Special.Income[m] - flow.Special.Expense[m]
		flow.Combined.Balance[m] = flow.Combined.Income[m] - flow.Combined.Expense[m]
	}

	flow.Totals = ComputeSubtotals(inYear)
	return flow
}
