package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Permission checks and the prompt queue
	r.Route("/permission", func(r chi.Router) {
		r.Post("/preflight", s.preflight)
		r.Post("/retry", s.retryAfterFailure)

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", s.listQueue)
			r.Get("/current", s.currentPrompt)
			r.Post("/resolve", s.resolvePrompt)
			r.Post("/cancel", s.cancelQueue)
		})
	})

	// Scope rules
	r.Route("/scope", func(r chi.Router) {
		r.Get("/", s.listScopes)
		r.Post("/", s.upsertScope)
		r.Delete("/{scopeID}", s.deleteScope)
		r.Post("/normalize", s.normalizeScopes)
	})

	// Capability defaults
	r.Route("/defaults", func(r chi.Router) {
		r.Get("/", s.getDefaults)
		r.Put("/", s.setDefaults)
	})

	// Event streaming (SSE)
	r.Get("/event", s.events)

	// Health
	r.Get("/health", s.health)
}
