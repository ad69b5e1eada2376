/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestLogger: Structured request logging (httplog over slog)
  2. Recoverer:     Panic recovery (500 instead of crash)
  3. RequestID:     Unique ID per request for tracing
  4. CORS:          Cross-origin requests for report/UI frontends
  5. Heartbeat:     /health liveness probe

ROUTE GROUPS:
  /api/punches/*        Punch intake and corrections
  /api/calculations     Materialized collaborator-day results
  /api/timebank/*       Time-bank balances
  /api/limits/*         Department overtime limits
  /api/recalculate      Department recalculation jobs
  /api/audit            Audit trail queries
  /api/collaborators/*  Directory
  /api/holidays/*       Holiday calendar

SECURITY NOTE:
  No authentication middleware. All endpoints are public; put this
  behind an authenticating gateway in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	if logger != nil {
		r.Use(httplog.RequestLogger(logger, &httplog.Options{
			Level: slog.LevelInfo,
		}))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Heartbeat("/health"))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Punch routes
		r.Route("/punches", func(r chi.Router) {
			r.Get("/", h.ListPunches)
			r.Post("/", h.RecordPunch)
			r.Get("/{id}", h.GetPunch)
			r.Post("/{id}/correct", h.CorrectPunch)
		})

		// Calculation routes
		r.Get("/calculations", h.ListCalculations)
		r.Get("/timebank/{id}", h.GetTimeBank)

		// Limit routes
		r.Route("/limits", func(r chi.Router) {
			r.Get("/", h.ListLimits)
			r.Post("/", h.SetLimit)
			r.Get("/history", h.LimitHistory)
			r.Post("/{department}/reset", h.ResetLimit)
		})
		r.Get("/departments", h.ListDepartments)

		// Recalculation routes
		r.Post("/recalculate", h.TriggerRecalculation)
		r.Get("/recalc/runs", h.ListRuns)

		// Audit and export routes
		r.Get("/audit", h.QueryAudit)
		r.Post("/exports", h.RecordExport)

		// Directory routes
		r.Route("/collaborators", func(r chi.Router) {
			r.Get("/", h.ListCollaborators)
			r.Post("/", h.CreateCollaborator)
			r.Get("/{id}", h.GetCollaborator)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})
	})

	return r
}
