package http

import (
	"net/http"
	"net/url"
	"strings"

	"jangbu/internal/core"
)

// handleDonors serves GET /api/donors (list, with optional chosung-aware
// ?q= filter) and POST /api/donors (register a name).
func (s *Server) handleDonors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		names := s.service.Store().Donors()
		if query := r.URL.Query().Get("q"); query != "" {
			names = core.DonorsMatching(names, query)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"donors": names,
			"count":  len(names),
		})

	case http.MethodPost:
		var payload struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.service.AddDonor(r.Context(), payload.Name); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"name": payload.Name})

	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleDonorByName serves DELETE /api/donors/{name} and GET
// /api/donors/{name}/receipts (that donor's income lines and total for
// the year, as printed on a donation receipt).
func (s *Server) handleDonorByName(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/donors/")
	name, wantReceipts := rest, false
	if cut, ok := strings.CutSuffix(rest, "/receipts"); ok {
		name, wantReceipts = cut, true
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "donor not found")
		return
	}

	switch {
	case wantReceipts && r.Method == http.MethodGet:
		ref, _ := periodFromQuery(r)
		txs := core.FilterByPeriod(s.service.Store().Transactions(), ref, core.Yearly)
		summary := core.IndexByDonor(txs)[name]

		writeJSON(w, http.StatusOK, map[string]any{
			"donor":        name,
			"year":         ref.Year(),
			"transactions": fromTransactions(summary.Transactions),
			"total":        summary.Total.Won,
		})

	case !wantReceipts && r.Method == http.MethodDelete:
		if err := s.service.RemoveDonor(r.Context(), name); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
