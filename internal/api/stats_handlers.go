package api

import (
	"net/http"

	"github.com/mkaran/memflow/internal/models"
)

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	stats, err := s.Stats.UserStats(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUserReviews(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	events, err := s.Stats.Reviews(r.Context(), models.ReviewFilter{
		UserID: id,
		CardID: queryInt64(r, "card_id"),
		Limit:  queryInt(r, "limit", 100),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reviews": events})
}
