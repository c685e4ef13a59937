package http

import (
	"jangbu/internal/core"
)

// transactionPayload is the wire form of a ledger transaction.
type transactionPayload struct {
	ID           string `json:"id,omitempty"`
	Date         string `json:"date"`
	Direction    string `json:"direction"`
	FundType     string `json:"fundType"`
	Category     string `json:"category"`
	Counterparty string `json:"counterparty"`
	Amount       int64  `json:"amount"`
	Note         string `json:"note,omitempty"`
}

func (p transactionPayload) toTransaction() core.Transaction {
	return core.Transaction{
		ID:           p.ID,
		Date:         core.ParseDate(p.Date),
		Direction:    core.Direction(p.Direction),
		FundType:     core.FundType(p.FundType),
		Category:     p.Category,
		Counterparty: p.Counterparty,
		Amount:       core.Money{Won: p.Amount},
		Note:         p.Note,
	}
}

func fromTransaction(tx core.Transaction) transactionPayload {
	return transactionPayload{
		ID:           tx.ID,
		Date:         tx.Date.String(),
		Direction:    string(tx.Direction),
		FundType:     string(tx.FundType),
		Category:     tx.Category,
		Counterparty: tx.Counterparty,
		Amount:       tx.Amount.Won,
		Note:         tx.Note,
	}
}

func fromTransactions(txs []core.Transaction) []transactionPayload {
	out := make([]transactionPayload, len(txs))
	for i, tx := range txs {
		out[i] = fromTransaction(tx)
	}
	return out
}

// subtotalPayload flattens a FundSubtotal for JSON.
type subtotalPayload struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

func fromFundSubtotal(fs core.FundSubtotal) subtotalPayload {
	return subtotalPayload{
		Income:  fs.Income.Won,
		Expense: fs.Expense.Won,
		Balance: fs.Balance.Won,
	}
}

// monthlyFlowPayload is one fund's January-to-December series.
type monthlyFlowPayload struct {
	Income  [12]int64 `json:"income"`
	Expense [12]int64 `json:"expense"`
	Balance [12]int64 `json:"balance"`
}

func fromMonthlyFlow(f core.MonthlyFlow) monthlyFlowPayload {
	return monthlyFlowPayload{
		Income:  f.Income,
		Expense: f.Expense,
		Balance: f.Balance,
	}
}

// ratioPayload renders an invalid ratio as null-valid rather than zero,
// so clients can show "N/A" instead of "0%".
type ratioPayload struct {
	Percent float64 `json:"percent"`
	Valid   bool    `json:"valid"`
}

type budgetLinePayload struct {
	Category   string       `json:"category"`
	Budget     int64        `json:"budget"`
	Actual     int64        `json:"actual"`
	Ratio      ratioPayload `json:"ratio"`
	OverBudget bool         `json:"overBudget"`
}

func fromBudgetLine(l core.BudgetLine) budgetLinePayload {
	return budgetLinePayload{
		Category:   l.Category,
		Budget:     l.Budget.Won,
		Actual:     l.Actual.Won,
		Ratio:      ratioPayload{Percent: l.Ratio.Percent, Valid: l.Ratio.Valid},
		OverBudget: l.OverBudget,
	}
}
