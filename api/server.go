/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/articles/*    Catalog management
  /api/records/*     Daily records (manual entry)
  /api/imports       Spreadsheet / JSON import
  /api/stock/*       Balances and stock sheets
  /api/alerts        Low-stock alerts
  /api/statistics    Aggregated statistics
  /api/reports/*     Spreadsheet exports
  /api/changelog/*   Audit history
  /api/settings      Settings document
  /api/scenarios/*   Demo scenarios
  /api/admin/*       Backups, reset

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/warp/stock-engine/logging"
)

// NewRouter creates a new router with all routes configured. An empty
// allowedOrigins allows any origin.
func NewRouter(h *Handler, logger *zap.Logger, allowedOrigins []string) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Article routes
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", h.ListArticles)
			r.Post("/", h.CreateArticle)
			r.Get("/export", h.ExportCatalog)
			r.Post("/seed", h.SeedCatalog)
			r.Get("/{id}", h.GetArticle)
			r.Put("/{id}", h.UpdateArticle)
			r.Delete("/{id}", h.DeleteArticle)
		})

		// Daily record routes
		r.Route("/records", func(r chi.Router) {
			r.Get("/", h.ListRecords)
			r.Get("/{date}", h.GetRecord)
			r.Put("/{date}", h.PutRecord)
			r.Delete("/{date}", h.DeleteRecord)
		})
		r.Post("/imports", h.ImportRecords)

		// Stock views
		r.Route("/stock", func(r chi.Router) {
			r.Get("/balances", h.GetBalances)
			r.Get("/week", h.GetWeek)
			r.Get("/sheet", h.GetSheet)
		})
		r.Get("/alerts", h.GetAlerts)
		r.Get("/statistics", h.GetStatistics)

		// Exports
		r.Get("/reports/stock.xlsx", h.ExportStockReport)

		// Change log routes
		r.Route("/changelog", func(r chi.Router) {
			r.Get("/", h.ListChangeLog)
			r.Get("/{id}", h.GetChangeLogEntry)
			r.Get("/{id}/copy", h.CopyChangeLogEntry)
			r.Get("/{id}/export", h.ExportChangeLogEntry)
		})

		// Settings
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/backup", h.GetBackupStatus)
			r.Post("/backup", h.RunBackup)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
