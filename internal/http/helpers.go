package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"jangbu/internal/core"
	"jangbu/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps store and validation errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNoHistory), errors.Is(err, store.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidDirection),
		errors.Is(err, core.ErrInvalidFundType),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyName):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// periodFromQuery builds the reference day and granularity from the
// year/month/day query parameters. Absent parameters default to today.
// An unrecognized granularity is passed through so the filter returns
// everything, matching the ledger's "all" view.
func periodFromQuery(r *http.Request) (time.Time, core.Granularity) {
	q := r.URL.Query()
	now := time.Now()

	year := intParam(q.Get("year"), now.Year())
	month := intParam(q.Get("month"), int(now.Month()))
	day := intParam(q.Get("day"), now.Day())

	granularity := core.Granularity(q.Get("granularity"))
	if q.Get("granularity") == "" {
		switch {
		case q.Get("day") != "":
			granularity = core.Daily
		case q.Get("month") != "":
			granularity = core.Monthly
		case q.Get("year") != "":
			granularity = core.Yearly
		default:
			granularity = "all"
		}
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), granularity
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// cacheKey scopes a cached response to the current store revision.
func (s *Server) cacheKey(r *http.Request) string {
	return fmt.Sprintf("%d:%s", s.service.Store().Revision(), r.URL.RequestURI())
}
