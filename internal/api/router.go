package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kalambet/reportlocator/internal/report"
	"github.com/kalambet/reportlocator/internal/storage"
)

// Locator is the lookup surface the API needs.
type Locator interface {
	Locate(ctx context.Context, caseNumber string) (report.Result, error)
	Catalog(ctx context.Context) ([]string, error)
}

// History exposes recorded lookups.
type History interface {
	RecentLookups(ctx context.Context, limit int) ([]storage.Lookup, error)
	LookupsForCase(ctx context.Context, caseNumber string, limit int) ([]storage.Lookup, error)
	GetLookup(ctx context.Context, id string) (storage.Lookup, error)
}

type Deps struct {
	Locator Locator
	History History // optional; nil disables /lookups
}

// NewHandler returns the HTTP API. Every route allows every origin.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(RecoverJSON)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", handleHealth)

	findReport := handleFindReport(deps)
	r.Get("/find-report", findReport)
	r.Get("/find-report/", findReport)
	r.Get("/find-report/{caseNumber}", findReport)

	r.Get("/databases", handleListDatabases(deps))
	r.Get("/lookups", handleListLookups(deps))
	r.Get("/lookups/{id}", handleGetLookup(deps))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
