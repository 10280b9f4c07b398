package services

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/mkaran/memflow/internal/errors"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
)

// StatsService exposes recall aggregates
type StatsService interface {
	UserStats(ctx context.Context, userID int64) (*models.UserStats, error)
	DeckStats(ctx context.Context, deckID int64) (*models.DeckStats, error)
	Reviews(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewEvent, error)
}

type statsService struct {
	stats        repository.StatsRepository
	users        repository.UserRepository
	decks        repository.DeckRepository
	reviews      repository.ReviewRepository
	recentWindow int
}

// NewStatsService creates a new StatsService
func NewStatsService(
	stats repository.StatsRepository,
	users repository.UserRepository,
	decks repository.DeckRepository,
	reviews repository.ReviewRepository,
	recentWindow int,
) StatsService {
	if recentWindow <= 0 {
		recentWindow = 20
	}
	return &statsService{stats: stats, users: users, decks: decks, reviews: reviews, recentWindow: recentWindow}
}

func (s *statsService) UserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("user", userID)
		}
		return nil, errors.NewInternalError(err)
	}
	stats, err := s.stats.UserStats(ctx, userID, s.recentWindow)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return stats, nil
}

func (s *statsService) DeckStats(ctx context.Context, deckID int64) (*models.DeckStats, error) {
	if _, err := s.decks.Get(ctx, deckID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("deck", deckID)
		}
		return nil, errors.NewInternalError(err)
	}
	stats, err := s.stats.DeckStats(ctx, deckID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return stats, nil
}

func (s *statsService) Reviews(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewEvent, error) {
	events, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return events, nil
}
