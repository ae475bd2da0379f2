package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/reportlocator/internal/locator"
	"github.com/kalambet/reportlocator/internal/storage"
)

// Client-facing error messages. Details stay in the logs.
const (
	msgCaseNumberRequired = "Case number is required"
	msgReportNotFound     = "Report not found"
	msgInternal           = "Internal server error"
	msgHistoryDisabled    = "History disabled"
	msgLookupNotFound     = "Lookup not found"
)

const (
	defaultLookupLimit = 20
	maxLookupLimit     = 500
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleFindReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseNumber := chi.URLParam(r, "caseNumber")
		// chi routes on RawPath when it is set, so only then is the param still escaped.
		if r.URL.RawPath != "" {
			if unescaped, err := url.PathUnescape(caseNumber); err == nil {
				caseNumber = unescaped
			}
		}
		if strings.TrimSpace(caseNumber) == "" {
			writeError(w, http.StatusBadRequest, msgCaseNumberRequired)
			return
		}

		res, err := deps.Locator.Locate(r.Context(), caseNumber)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, res)
		case errors.Is(err, locator.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, msgCaseNumberRequired)
		case errors.Is(err, locator.ErrNotFound):
			writeError(w, http.StatusNotFound, msgReportNotFound)
		default:
			slog.Error("searching for report", "case_number", caseNumber, "error", err)
			writeError(w, http.StatusInternalServerError, msgInternal)
		}
	}
}

func handleListDatabases(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbs, err := deps.Locator.Catalog(r.Context())
		if err != nil {
			slog.Error("listing databases", "error", err)
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		if dbs == nil {
			dbs = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"databases": dbs})
	}
}

func handleListLookups(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.History == nil {
			writeError(w, http.StatusServiceUnavailable, msgHistoryDisabled)
			return
		}

		limit := defaultLookupLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxLookupLimit)
		}

		var (
			lookups []storage.Lookup
			err     error
		)
		if cn := strings.TrimSpace(r.URL.Query().Get("case")); cn != "" {
			lookups, err = deps.History.LookupsForCase(r.Context(), cn, limit)
		} else {
			lookups, err = deps.History.RecentLookups(r.Context(), limit)
		}
		if err != nil {
			slog.Error("listing lookups", "error", err)
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		if lookups == nil {
			lookups = []storage.Lookup{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"lookups": lookups})
	}
}

func handleGetLookup(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.History == nil {
			writeError(w, http.StatusServiceUnavailable, msgHistoryDisabled)
			return
		}
		l, err := deps.History.GetLookup(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgLookupNotFound)
			return
		}
		if err != nil {
			slog.Error("getting lookup", "id", chi.URLParam(r, "id"), "error", err)
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
