package http

import (
	"net/http"

	"jangbu/internal/core"
)

// handleBudgets serves GET /api/budgets (the raw table) and PUT
// /api/budgets (set one category's yearly budget).
func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.service.Store().Budgets())

	case http.MethodPut:
		var payload struct {
			Category string `json:"category"`
			Amount   int64  `json:"amount"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := s.service.SetBudget(r.Context(), payload.Category, payload.Amount); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.service.Store().Budgets())

	default:
		w.Header().Set("Allow", "GET, PUT")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleBudgetReport serves GET /api/budgets/report: per-category budget
// versus actuals for a year, with per-fund subtotals whose ratios are
// recomputed from the summed figures.
//
// Query parameters: year, direction (income|expense, default expense),
// sort (category|budget|actual|ratio), order (asc|desc).
func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	ref, _ := periodFromQuery(r)

	direction := core.Expense
	if q.Get("direction") == string(core.Income) {
		direction = core.Income
	}

	txs := core.FilterByPeriod(s.service.Store().Transactions(), ref, core.Yearly)
	budgets := s.service.Store().Budgets()

	sortKey := core.BudgetSortKey(q.Get("sort"))
	if sortKey == "" {
		sortKey = core.SortByCategory
	}
	descending := q.Get("order") == "desc"

	funds := make(map[string]any, 2)
	for _, ft := range []core.FundType{core.FundGeneral, core.FundSpecial} {
		categories := s.taxonomy.Categories(ft, direction)
		lines := core.CompareBudget(budgets, txs, direction, categories)
		lines = core.SortBudgetLines(lines, sortKey, descending)
		subtotal := core.SubtotalLines(lines)

		payloads := make([]budgetLinePayload, len(lines))
		for i, l := range lines {
			payloads[i] = fromBudgetLine(l)
		}

		name := "general"
		if ft == core.FundSpecial {
			name = "special"
		}
		funds[name] = map[string]any{
			"lines": payloads,
			"subtotal": map[string]any{
				"budget": subtotal.Budget.Won,
				"actual": subtotal.Actual.Won,
				"ratio":  ratioPayload{Percent: subtotal.Ratio.Percent, Valid: subtotal.Ratio.Valid},
			},
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":      ref.Year(),
		"direction": string(direction),
		"funds":     funds,
	})
}
