package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/afkloop/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/token", s.handleToken)

		// WebSocket authenticates in the handler: browsers cannot set headers on upgrade.
		r.Get(wsPath(s.wsCfg.Path), s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermStatusRead))
				r.Get("/status", s.handleStatus)
				r.Get("/metrics", s.handleMetrics)
				r.Get("/calibrations", s.handleCalibrations)
				r.Get("/matches", s.handleMatches)
				r.Get("/audit", s.handleAudit)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermRunControl))
				r.Post("/control/{action}", s.handleControl)
			})
		})
	})

	return r
}

// wsPath defaults the configured WebSocket path.
func wsPath(p string) string {
	if p == "" {
		return "/ws"
	}
	if p[0] != '/' {
		return "/" + p
	}
	return p
}
