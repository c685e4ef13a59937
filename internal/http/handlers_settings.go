package http

import (
	"io"
	"log/slog"
	"net/http"

	"jangbu/internal/document"
)

// handleExport serves GET /api/settings/export: the full ledger document
// in the same JSON format the cloud copy uses, offered as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := document.Encode(s.service.ExportDocument())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode export", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger-export.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleImport serves POST /api/settings/import: replace the whole ledger
// from an exported document. Unknown fields in old exports are tolerated;
// only top-level malformed JSON is rejected.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 8<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}

	doc, err := document.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "decode ledger document: "+err.Error())
		return
	}

	s.service.ImportDocument(r.Context(), doc)

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": len(doc.Transactions),
		"donors":       len(doc.Donors),
		"budgets":      len(doc.Budgets),
	})
}

// handleSync serves POST /api/sync: publish a sync message immediately
// instead of waiting out the debounce window.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.service.SyncNow(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"revision": s.service.Store().Revision(),
	})
}
