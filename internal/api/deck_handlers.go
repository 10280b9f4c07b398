package api

import (
	"net/http"

	"github.com/mkaran/memflow/internal/services"
)

type createDeckRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	var req createDeckRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	deck, err := s.Decks.CreateDeck(r.Context(), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, deck)
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := s.Decks.ListDecks(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"decks": decks})
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	deck, err := s.Decks.GetDeck(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, deck)
}

func (s *Server) handleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Decks.DeleteDeck(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeckStats(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	stats, err := s.Stats.DeckStats(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type cardRequest struct {
	UserID   int64  `json:"user_id" validate:"min=0"`
	Front    string `json:"front" validate:"required"`
	Back     string `json:"back"`
	Payload  string `json:"payload"`
	CardType string `json:"card_type" validate:"omitempty,max=50"`
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	deckID, err := urlParamInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req cardRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	userID := req.UserID
	if userID == 0 {
		userID = s.DefaultUserID
	}
	card, err := s.Decks.CreateCard(r.Context(), deckID, userID, services.CardInput{
		Front:    req.Front,
		Back:     req.Back,
		Payload:  req.Payload,
		CardType: req.CardType,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, card)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	deckID, err := urlParamInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	cards, err := s.Decks.ListCards(r.Context(), deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	card, err := s.Decks.GetCard(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req cardRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	card, err := s.Decks.UpdateCard(r.Context(), id, services.CardInput{
		Front:    req.Front,
		Back:     req.Back,
		Payload:  req.Payload,
		CardType: req.CardType,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Decks.DeleteCard(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
