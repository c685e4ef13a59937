package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"jangbu/internal/core"
)

// handleDashboard serves GET /api/dashboard: sums, per-fund subtotals and
// the monthly flow for the requested period. Results are cached per
// revision since the same dashboard is polled by every open client.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key := s.cacheKey(r)
	if body, ok := s.reportCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	ref, granularity := periodFromQuery(r)
	all := s.service.Store().Transactions()
	txs := core.FilterByPeriod(all, ref, granularity)

	subtotals := core.ComputeSubtotals(txs)
	taxonomy := s.taxonomy
	flow := core.ComputeYearFlow(all, ref.Year())

	response := map[string]any{
		"period": map[string]any{
			"year":        ref.Year(),
			"month":       int(ref.Month()),
			"day":         ref.Day(),
			"granularity": string(granularity),
		},
		"sums": map[string]int64{
			"income":     core.SumByDirection(txs, core.Income).Won,
			"expense":    core.SumByDirection(txs, core.Expense).Won,
			"carryover":  core.TotalCarryover(txs, taxonomy).Won,
			"pureIncome": core.TotalPureIncome(txs, taxonomy).Won,
			"balance":    core.Balance(txs).Won,
		},
		"subtotals": map[string]subtotalPayload{
			"general":  fromFundSubtotal(subtotals.General),
			"special":  fromFundSubtotal(subtotals.Special),
			"combined": fromFundSubtotal(subtotals.Combined),
		},
		"yearFlow": map[string]any{
			"general":  fromMonthlyFlow(flow.General),
			"special":  fromMonthlyFlow(flow.Special),
			"combined": fromMonthlyFlow(flow.Combined),
			"totals": map[string]subtotalPayload{
				"general":  fromFundSubtotal(flow.Totals.General),
				"special":  fromFundSubtotal(flow.Totals.Special),
				"combined": fromFundSubtotal(flow.Totals.Combined),
			},
		},
	}

	body, err := json.Marshal(response)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal dashboard", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.reportCache.Set(key, body)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleCategories serves GET /api/categories: the classification tables
// for both funds and directions, plus the carryover markers clients need
// to render the pure-income rows.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	t := s.taxonomy
	writeJSON(w, http.StatusOK, map[string]any{
		"general": map[string]any{
			"income":    t.Categories(core.FundGeneral, core.Income),
			"expense":   t.Categories(core.FundGeneral, core.Expense),
			"carryover": t.CarryoverCategory(core.FundGeneral),
		},
		"special": map[string]any{
			"income":    t.Categories(core.FundSpecial, core.Income),
			"expense":   t.Categories(core.FundSpecial, core.Expense),
			"carryover": t.CarryoverCategory(core.FundSpecial),
		},
	})
}
