package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/", s.handleListSessions)
			r.Get("/{id}", s.handleGetSession)
			r.Get("/{id}/next", s.handleNextCard)
			r.Post("/{id}/reviews", s.handleSubmitReview)
			r.Get("/{id}/probe", s.handleGetProbe)
			r.Post("/{id}/end", s.handleEndSession)
		})

		r.Route("/probes", func(r chi.Router) {
			r.Post("/{id}", s.handleSubmitCalibration)
		})

		r.Route("/decks", func(r chi.Router) {
			r.Post("/", s.handleCreateDeck)
			r.Get("/", s.handleListDecks)
			r.Get("/{id}", s.handleGetDeck)
			r.Delete("/{id}", s.handleDeleteDeck)
			r.Get("/{id}/stats", s.handleDeckStats)
			r.Post("/{id}/cards", s.handleCreateCard)
			r.Get("/{id}/cards", s.handleListCards)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/{id}", s.handleGetCard)
			r.Put("/{id}", s.handleUpdateCard)
			r.Delete("/{id}", s.handleDeleteCard)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}/stats", s.handleUserStats)
			r.Get("/{id}/reviews", s.handleUserReviews)
		})
	})

	return r
}
