package http

import (
	"net/http"
	"strings"

	"jangbu/internal/core"
)

// handleTransactions serves GET /api/transactions (period-filtered,
// searchable list) and POST /api/transactions (create).
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	ref, granularity := periodFromQuery(r)
	txs := core.FilterByPeriod(s.service.Store().Transactions(), ref, granularity)

	if query := r.URL.Query().Get("q"); query != "" {
		matched := txs[:0]
		for _, tx := range txs {
			if core.MatchHangul(tx.Counterparty, query) || core.MatchHangul(tx.Category, query) {
				matched = append(matched, tx)
			}
		}
		txs = matched
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": fromTransactions(txs),
		"count":        len(txs),
	})
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := s.service.AddTransaction(r.Context(), payload.toTransaction())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, fromTransaction(added))
}

// handleTransactionsBulk serves POST /api/transactions/bulk, recording a
// whole spreadsheet paste as one undoable step.
func (s *Server) handleTransactionsBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payloads []transactionPayload
	if err := decodeJSON(r, &payloads); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs := make([]core.Transaction, len(payloads))
	for i, p := range payloads {
		txs[i] = p.toTransaction()
	}

	added, err := s.service.AddTransactions(r.Context(), txs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transactions": fromTransactions(added),
		"count":        len(added),
	})
}

// handleTransactionByID serves PUT and DELETE on /api/transactions/{id}.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var payload transactionPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		tx := payload.toTransaction()
		tx.ID = id

		if err := s.service.UpdateTransaction(r.Context(), tx); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fromTransaction(tx))

	case http.MethodDelete:
		if err := s.service.DeleteTransaction(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleUndo serves POST /api/undo, rolling back the latest mutation.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.service.Undo(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"canUndo":  s.service.Store().CanUndo(),
		"revision": s.service.Store().Revision(),
	})
}
