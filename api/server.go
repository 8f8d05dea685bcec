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
  /api/students/*    Students, balances, payments, enrollment
  /api/coaches/*     Coach management
  /api/series/*      Weekly series definitions
  /api/schedule/*    Occurrence expansion and per-date cancellation
  /api/visits/*      Attendance sheet and toggles
  /api/config        Membership config
  /api/backup        CSV export / import
  /api/seed          Demo data
  /api/recovery/*    Snapshot revision recovery
  /api/sync/*        Whole-document peer sync

SECURITY NOTE:
  No authentication middleware. The server is meant to run on a trusted
  studio network, matching the tool it replaces.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Put("/{id}", h.UpdateStudent)
			r.Delete("/{id}", h.DeleteStudent)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/payments", h.ListPayments)
			r.Post("/{id}/payments", h.RecordPayment)
			r.Delete("/{id}/payments/{paymentId}", h.UndoPayment)
			r.Post("/{id}/enrollments", h.Enroll)
			r.Delete("/{id}/enrollments/{seriesId}", h.Unenroll)
		})

		// Coach routes
		r.Route("/coaches", func(r chi.Router) {
			r.Get("/", h.ListCoaches)
			r.Post("/", h.CreateCoach)
			r.Put("/{id}", h.UpdateCoach)
		})

		// Series routes
		r.Route("/series", func(r chi.Router) {
			r.Get("/", h.ListSeries)
			r.Post("/", h.CreateSeries)
			r.Put("/{id}", h.UpdateSeries)
			r.Delete("/{id}", h.DeleteSeries)
		})

		// Schedule routes
		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", h.GetSchedule)
			r.Post("/cancellations", h.CancelOccurrence)
		})

		// Visit routes
		r.Route("/visits", func(r chi.Router) {
			r.Get("/", h.ListVisits)
			r.Post("/toggle", h.ToggleVisit)
			r.Post("/corrections", h.CorrectMissed)
		})

		// Admin routes
		r.Get("/config", h.GetConfig)
		r.Put("/config", h.UpdateConfig)
		r.Get("/backup", h.ExportBackup)
		r.Post("/backup", h.ImportBackup)
		r.Post("/seed", h.LoadSeed)

		// Recovery routes
		r.Route("/recovery", func(r chi.Router) {
			r.Get("/", h.ListRevisions)
			r.Post("/{revision}", h.RestoreRevision)
		})

		// Sync routes
		r.Route("/sync", func(r chi.Router) {
			r.Get("/document", h.GetDocument)
			r.Put("/document", h.PutDocument)
		})
	})

	return r
}
