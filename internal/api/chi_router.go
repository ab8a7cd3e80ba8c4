// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package api provides the HTTP surface of the gateway, recommendation and
// user-data services using the Chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/shelfwise/internal/middleware"
)

// baseRouter returns a router with the global middleware stack and the
// health and metrics endpoints every service exposes.
func baseRouter(mw *ChiMiddleware, health *HealthHandler) *chi.Mux {
	r := chi.NewRouter()

	// Applied to ALL routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/health", health.Health)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// NewGatewayRouter builds the public gateway API.
func NewGatewayRouter(h *GatewayHandler, health *HealthHandler, mw *ChiMiddleware) http.Handler {
	r := baseRouter(mw, health)

	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders())

		r.Get("/recommend/{user_id}", h.Recommend)
	})
	return r
}

// NewRecommenderRouter builds the recommendation service's internal API.
func NewRecommenderRouter(h *RecommenderHandler, health *HealthHandler, mw *ChiMiddleware) http.Handler {
	r := baseRouter(mw, health)

	r.Route("/internal", func(r chi.Router) {
		r.Get("/recommend/{user_id}", h.Recommend)
		r.Post("/catalog/reload", h.ReloadCatalog)
		r.Get("/catalog/version", h.CatalogVersion)
	})
	return r
}

// NewUserDataRouter builds the user-data service's internal API.
func NewUserDataRouter(h *UserDataHandler, health *HealthHandler, mw *ChiMiddleware) http.Handler {
	r := baseRouter(mw, health)

	r.Route("/internal", func(r chi.Router) {
		r.Post("/users", h.CreateUser)
		r.Route("/users/{user_id}", func(r chi.Router) {
			r.Get("/", h.GetUser)
			r.Delete("/", h.DeleteUser)
			r.Get("/history", h.History)
			r.Post("/interactions", h.RecordInteraction)
		})
		r.Put("/catalog", h.IngestCatalog)
		r.Get("/catalog", h.Catalog)
	})
	return r
}
