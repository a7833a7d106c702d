/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/employees/*      Employee directory
  /api/record           Punch recording
  /api/state            Live attendance status
  /api/records          Raw punch log
  /api/summaries        Per-day aggregates
  /api/summary          Semimonthly period totals
  /api/corrections/*    Correction request lifecycle
  /api/export           Excel workbook export

SECURITY NOTE:
  Identity arrives pre-resolved in the X-Employee header; there is no
  authentication middleware here. Front it with a session-terminating
  proxy in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Employee"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee directory
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
		})

		// Punching
		r.Post("/record", h.RecordPunch)
		r.Get("/state", h.GetState)
		r.Get("/records", h.ListRecords)

		// Summaries
		r.Get("/summaries", h.ListSummaries)
		r.Get("/summary", h.GetPeriodTotals)

		// Corrections
		r.Route("/corrections", func(r chi.Router) {
			r.Get("/", h.ListCorrections)
			r.Post("/", h.SubmitCorrection)
			r.Post("/{id}/approve", h.ApproveCorrection)
			r.Post("/{id}/deny", h.DenyCorrection)
			r.Post("/{id}/cancel", h.CancelCorrection)
		})

		// Export
		r.Get("/export", h.ExportWorkbook)
	})

	return r
}
