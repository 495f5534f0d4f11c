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
  /api/users/*      Users and their applicable forms
  /api/agenda       Visit agenda windows
  /api/visits/*     Visit reads, partial updates, applicable forms
  /api/forms/*      Form definitions and fields
  /api/periods      Periods with implied ranges
  /api/builders/*   Builder creation (one-shot generation)
  /api/admin/*      Cache reload, demo seeding

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

	// API routes
	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/forms", h.UserForms)
		})

		// Agenda and visit routes
		r.Get("/agenda", h.Agenda)
		r.Route("/visits", func(r chi.Router) {
			r.Get("/{id}", h.GetVisit)
			r.Put("/{id}", h.UpdateVisit)
			r.Get("/{id}/forms", h.VisitForms)
		})

		// Form routes
		r.Route("/forms", func(r chi.Router) {
			r.Get("/", h.ListForms)
			r.Get("/{id}/fields", h.ListFormFields)
		})

		// Period routes
		r.Get("/periods", h.ListPeriods)

		// Builder routes
		r.Route("/builders", func(r chi.Router) {
			r.Get("/", h.ListBuilders)
			r.Post("/", h.CreateBuilder)
			r.Get("/{id}", h.GetBuilder)
			r.Delete("/{id}", h.DeleteBuilder)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reload", h.ReloadCaches)
			r.Post("/seed", h.SeedDemo)
		})
	})

	return r
}
