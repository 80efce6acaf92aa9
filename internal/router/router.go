// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for
// blurbpress. Reads are open to anonymous visitors, who act as Everyone;
// writes need a session.
package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"blurbpress/internal/handlers"
	"blurbpress/internal/middleware"
)

// HealthCheck reports whether the backing services are reachable.
type HealthCheck func(ctx context.Context) error

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter guards the login endpoint.
func New(sessions middleware.SessionLoader, limiter *middleware.RateLimiter, health HealthCheck,
	auth *handlers.Auth, content *handlers.Content) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.LoadSession(sessions))
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler(health))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		r.Route("/session", func(r chi.Router) {
			r.With(limiter.Middleware).Post("/", auth.Login)
			r.Get("/", auth.Current)
			r.Delete("/", auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/totp", auth.TOTPSetup)
				r.With(limiter.Middleware).Post("/totp/verify", auth.TOTPVerify)
			})
		})

		r.Route("/blurbs", func(r chi.Router) {
			r.Get("/", content.List)
			r.With(middleware.RequireAuth).Post("/", content.Create)
		})

		r.Route("/shares/{shareID}", func(r chi.Router) {
			r.Get("/", content.View)
			r.Get("/children", content.Children)
			r.Get("/history", content.History)
			r.Get("/meta", content.Meta)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Put("/", content.Edit)
				r.Delete("/", content.Retract)
				r.Get("/grants", content.Grants)
				r.Post("/children", content.Post)
				r.Post("/permissions", content.Permit)
				r.Put("/meta", content.SetMeta)
			})
		})
	})

	return r
}

// healthHandler answers 200 when every backing service responds and 503
// otherwise.
func healthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				slog.Warn("health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}
