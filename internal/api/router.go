/**
 * @description
 * This file sets up the HTTP router for the renewal service using the go-chi/chi
 * router. It defines the API routes, applies middleware for logging, CORS,
 * authentication, and write rate limiting, and maps the routes to their
 * corresponding handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions carries the cross-cutting dependencies of the route tree.
type RouterOptions struct {
	AuthSecret       string
	DefaultUserID    int64
	WriteLimiter     WriteRateLimiter
	WriteLimitPerMin int
}

// NewRouter creates a new Chi router and registers the renewal-service routes.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Renewal service is healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(opts.AuthSecret, opts.DefaultUserID))
		r.Use(WriteRateLimitMiddleware(opts.WriteLimiter, opts.WriteLimitPerMin))

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.handleListClients)
			r.Post("/", h.handleCreateClient)
			r.Get("/{id}", h.handleGetClient)
			r.Put("/{id}", h.handleUpdateClient)
			r.Delete("/{id}", h.handleDeleteClient)
			r.Get("/{id}/renewals", h.handleListClientRenewals)
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", h.handleListServices)
			r.Post("/", h.handleCreateService)
			r.Get("/{id}", h.handleGetService)
			r.Put("/{id}", h.handleUpdateService)
			r.Delete("/{id}", h.handleDeleteService)
			r.Get("/{id}/renewals", h.handleListServiceRenewals)
		})

		r.Route("/renewals", func(r chi.Router) {
			r.Get("/", h.handleListRenewals)
			r.Post("/", h.handleCreateRenewal)
			r.Get("/upcoming", h.handleUpcomingRenewals)
			r.Get("/{id}", h.handleGetRenewal)
			r.Put("/{id}", h.handleUpdateRenewal)
			r.Delete("/{id}", h.handleDeleteRenewal)
			r.Put("/{id}/notification", h.handleRenewalNotification)
		})

		r.Get("/activities", h.handleListActivities)
		r.Post("/activities", h.handleCreateActivity)
		r.Get("/activities/{id}", h.handleGetActivity)
		r.Get("/dashboard", h.handleDashboardStats)
		r.Get("/revenue/monthly", h.handleMonthlyRevenue)
	})

	return r
}
