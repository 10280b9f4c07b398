package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/mkaran/memflow/internal/errors"
	"github.com/mkaran/memflow/internal/logger"
	"github.com/mkaran/memflow/internal/memory"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
	"github.com/mkaran/memflow/internal/session"
)

// CardInput is the editable content of a card.
type CardInput struct {
	Front    string
	Back     string
	Payload  string
	CardType string
}

// DeckService handles deck and card management
type DeckService interface {
	CreateDeck(ctx context.Context, name string) (*models.Deck, error)
	GetDeck(ctx context.Context, id int64) (*models.Deck, error)
	ListDecks(ctx context.Context) ([]models.Deck, error)
	DeleteDeck(ctx context.Context, id int64) error

	CreateCard(ctx context.Context, deckID, userID int64, input CardInput) (*models.Card, error)
	GetCard(ctx context.Context, id int64) (*models.Card, error)
	ListCards(ctx context.Context, deckID int64) ([]models.Card, error)
	UpdateCard(ctx context.Context, id int64, input CardInput) (*models.Card, error)
	DeleteCard(ctx context.Context, id int64) error
}

type deckService struct {
	decks    repository.DeckRepository
	cards    repository.CardRepository
	users    repository.UserRepository
	registry *session.Registry
	model    *memory.Model
}

// NewDeckService creates a new DeckService
func NewDeckService(
	decks repository.DeckRepository,
	cards repository.CardRepository,
	users repository.UserRepository,
	registry *session.Registry,
	model *memory.Model,
) DeckService {
	return &deckService{decks: decks, cards: cards, users: users, registry: registry, model: model}
}

func (s *deckService) CreateDeck(ctx context.Context, name string) (*models.Deck, error) {
	log := logger.FromContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("name", "must not be empty")
	}
	if existing, err := s.decks.GetByName(ctx, name); err == nil && existing != nil {
		return nil, errors.NewConflictError("deck name already in use")
	}

	id, err := s.decks.Insert(ctx, models.Deck{Name: name})
	if err != nil {
		log.Error("failed to create deck: %v", err)
		return nil, errors.NewInternalError(err)
	}
	log.Info("deck created: id=%d, name=%s", id, name)
	return s.GetDeck(ctx, id)
}

func (s *deckService) GetDeck(ctx context.Context, id int64) (*models.Deck, error) {
	deck, err := s.decks.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("deck", id)
		}
		return nil, errors.NewInternalError(err)
	}
	return deck, nil
}

func (s *deckService) ListDecks(ctx context.Context) ([]models.Deck, error) {
	decks, err := s.decks.List(ctx)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return decks, nil
}

func (s *deckService) DeleteDeck(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)

	if _, err := s.GetDeck(ctx, id); err != nil {
		return err
	}
	if s.registry.DeckInUse(id) {
		return errors.NewConflictError("deck has an active study session")
	}
	if err := s.decks.Delete(ctx, id); err != nil {
		log.Error("failed to delete deck: %v", err)
		return errors.NewInternalError(err)
	}
	log.Info("deck deleted: id=%d", id)
	return nil
}

func (s *deckService) CreateCard(ctx context.Context, deckID, userID int64, input CardInput) (*models.Card, error) {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(input.Front) == "" {
		return nil, errors.NewValidationError("front", "must not be empty")
	}
	if _, err := s.GetDeck(ctx, deckID); err != nil {
		return nil, err
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("user", userID)
		}
		return nil, errors.NewInternalError(err)
	}

	cardType := input.CardType
	if cardType == "" {
		cardType = "basic"
	}
	card := s.model.InitialCard(models.Card{
		DeckID:   deckID,
		Front:    input.Front,
		Back:     input.Back,
		Payload:  input.Payload,
		CardType: cardType,
	}, memory.UserContext{GlobalDecay: user.GlobalDecay, CalibrationBias: user.CalibrationBias})

	id, err := s.cards.Insert(ctx, card)
	if err != nil {
		log.Error("failed to create card: %v", err)
		return nil, errors.NewInternalError(err)
	}
	log.Info("card created: id=%d, deck_id=%d", id, deckID)
	return s.GetCard(ctx, id)
}

func (s *deckService) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	card, err := s.cards.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("card", id)
		}
		return nil, errors.NewInternalError(err)
	}
	return card, nil
}

func (s *deckService) ListCards(ctx context.Context, deckID int64) ([]models.Card, error) {
	if _, err := s.GetDeck(ctx, deckID); err != nil {
		return nil, err
	}
	cards, err := s.cards.ListByDeck(ctx, deckID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return cards, nil
}

func (s *deckService) UpdateCard(ctx context.Context, id int64, input CardInput) (*models.Card, error) {
	log := logger.FromContext(ctx)

	card, err := s.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Front) == "" {
		return nil, errors.NewValidationError("front", "must not be empty")
	}

	card.Front = input.Front
	card.Back = input.Back
	card.Payload = input.Payload
	if input.CardType != "" {
		card.CardType = input.CardType
	}
	if err := s.cards.UpdateContent(ctx, *card); err != nil {
		log.Error("failed to update card: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return card, nil
}

func (s *deckService) DeleteCard(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)

	if _, err := s.GetCard(ctx, id); err != nil {
		return err
	}
	if err := s.cards.Delete(ctx, id); err != nil {
		log.Error("failed to delete card: %v", err)
		return errors.NewInternalError(err)
	}
	log.Info("card deleted: id=%d", id)
	return nil
}
