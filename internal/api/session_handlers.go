package api

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/scheduler"
	"github.com/mkaran/memflow/internal/services"
)

type startSessionRequest struct {
	UserID int64  `json:"user_id" validate:"min=0"`
	DeckID int64  `json:"deck_id" validate:"required,gt=0"`
	Name   string `json:"name" validate:"max=200"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	userID := req.UserID
	if userID == 0 {
		userID = s.DefaultUserID
	}

	sess, err := s.Study.StartSession(r.Context(), userID, req.DeckID, req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Study.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter := models.SessionFilter{
		UserID:     queryInt64(r, "user_id"),
		DeckID:     queryInt64(r, "deck_id"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Limit:      queryInt(r, "limit", 100),
		Offset:     queryInt(r, "offset", 0),
	}
	sessions, err := s.Study.ListSessions(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleNextCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	next, err := s.Study.NextCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if stderrors.Is(err, scheduler.ErrNoCardsDue) {
			log.Debug("no cards due for session")
			respondJSON(w, http.StatusOK, map[string]any{"done": true})
			return
		}
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"done":               false,
		"card":               next.Card,
		"recall_probability": next.RecallProbability,
		"pomodoro_time":      next.PomodoroLength.Seconds(),
		"probe":              next.Probe,
	})
}

type submitReviewRequest struct {
	CardID              int64   `json:"card_id" validate:"required,gt=0"`
	Outcome             int     `json:"outcome" validate:"min=0,max=3"`
	LatencyMS           int64   `json:"latency_ms" validate:"min=0"`
	ProbeID             string  `json:"probe_id" validate:"omitempty,uuid4"`
	PredictedConfidence float64 `json:"predicted_confidence" validate:"min=0,max=1"`
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var req submitReviewRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	outcome, err := s.Study.SubmitReview(r.Context(), chi.URLParam(r, "id"), services.ReviewInput{
		CardID:              req.CardID,
		Outcome:             models.Outcome(req.Outcome),
		Latency:             time.Duration(req.LatencyMS) * time.Millisecond,
		ProbeID:             req.ProbeID,
		PredictedConfidence: req.PredictedConfidence,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"card":               outcome.Card,
		"next_interval":      outcome.NextInterval.Seconds(),
		"next_interval_text": intervalToText(outcome.NextInterval),
		"state":              outcome.State,
		"fatigue_score":      outcome.FatigueScore,
		"rescue_active":      outcome.RescueActive,
		"break_suggested":    outcome.BreakSuggested,
		"end_suggested":      outcome.EndSuggested,
	})
}

func (s *Server) handleGetProbe(w http.ResponseWriter, r *http.Request) {
	probe, err := s.Study.PendingProbe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if probe == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, probe)
}

type submitCalibrationRequest struct {
	PredictedConfidence float64 `json:"predicted_confidence" validate:"min=0,max=1"`
	Outcome             int     `json:"outcome" validate:"min=0,max=3"`
}

func (s *Server) handleSubmitCalibration(w http.ResponseWriter, r *http.Request) {
	var req submitCalibrationRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	bias, err := s.Study.SubmitCalibration(r.Context(), chi.URLParam(r, "id"), req.PredictedConfidence, models.Outcome(req.Outcome))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"calibration_bias": bias})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Study.EndSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id":    summary.SessionID,
		"duration_s":    summary.Duration.Seconds(),
		"cards_studied": summary.CardsStudied,
		"success_rate":  summary.SuccessRate,
		"rescue_cycles": summary.RescueCycles,
	})
}
