/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for log correlation
  2. RequestLogger: Structured request logging (zerolog)
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. Metrics:       Prometheus request counters/latency
  5. CORS:          Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/customers/*  Customer registry and memberships
  /api/programs/*   Program catalog
  /api/accesses/*   Access ledger
  /api/rewards/*    Eligibility queries
  /healthz          Liveness probe
  /metrics          Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. Token auth is a deployment concern
  handled in front of this service.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log zerolog.Logger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Customer routes
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/search", h.SearchCustomers)
			r.Get("/qr/{code}", h.GetCustomerByCode)
			r.Get("/{id}", h.GetCustomer)
			r.Delete("/{id}", h.DeleteCustomer)
			r.Get("/{id}/programs", h.GetMemberships)
			r.Post("/{id}/programs", h.AddMembership)
			r.Put("/{id}/programs", h.ReplaceMemberships)
		})

		// Program routes
		r.Route("/programs", func(r chi.Router) {
			r.Get("/", h.ListPrograms)
			r.Post("/", h.CreateProgram)
			r.Get("/current", h.ListCurrentPrograms)
		})

		// Access routes
		r.Route("/accesses", func(r chi.Router) {
			r.Post("/", h.RecordAccess)
			r.Get("/customer/qr/{code}", h.GetAccessHistoryByCode)
			r.Get("/customer/{id}", h.GetAccessHistory)
		})

		// Eligibility routes
		r.Route("/rewards", func(r chi.Router) {
			r.Get("/due/qr/{code}", h.GetRewardDueByCode)
			r.Get("/due/{id}", h.GetRewardDue)
		})
	})

	// Operational endpoints
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
