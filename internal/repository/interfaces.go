package repository

import (
	"context"
	"errors"

	"github.com/mkaran/memflow/internal/models"
)

// ErrVersionConflict is returned by CardRepository.UpdatePosterior when
// the optimistic version check fails: another session won the update
// race and the caller must re-read and retry.
var ErrVersionConflict = errors.New("repository: card version conflict")

// CardRepository handles card data access
type CardRepository interface {
	Get(ctx context.Context, id int64) (*models.Card, error)
	ListByDeck(ctx context.Context, deckID int64) ([]models.Card, error)
	Insert(ctx context.Context, card models.Card) (int64, error)
	UpdateContent(ctx context.Context, card models.Card) error
	// UpdatePosterior atomically persists the memory-model fields of the
	// card, guarded by the version the caller read. On success the
	// stored version is incremented.
	UpdatePosterior(ctx context.Context, card models.Card, expectedVersion int64) error
	Delete(ctx context.Context, id int64) error
}

// DeckRepository handles deck data access
type DeckRepository interface {
	Get(ctx context.Context, id int64) (*models.Deck, error)
	GetByName(ctx context.Context, name string) (*models.Deck, error)
	List(ctx context.Context) ([]models.Deck, error)
	Insert(ctx context.Context, deck models.Deck) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// UserRepository handles user data access
type UserRepository interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Upsert(ctx context.Context, username string) (*models.User, error)
	UpdateCalibrationBias(ctx context.Context, id int64, bias float64) error
	AddRecall(ctx context.Context, id int64, success bool) error
	SetRecallAggregate(ctx context.Context, id int64, successes, failures int) error
}

// SessionRepository archives session records once they end.
type SessionRepository interface {
	Insert(ctx context.Context, sess models.Session) error
	Update(ctx context.Context, sess models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
}

// ReviewRepository is the append-only review event log.
type ReviewRepository interface {
	Insert(ctx context.Context, ev models.ReviewEvent) (int64, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewEvent, error)
	Count(ctx context.Context, filter models.ReviewFilter) (int, error)
}

// ProbeRepository handles calibration probe data access
type ProbeRepository interface {
	Insert(ctx context.Context, probe models.CalibrationProbe) error
	Get(ctx context.Context, id string) (*models.CalibrationProbe, error)
	Resolve(ctx context.Context, probe models.CalibrationProbe) error
	RecentByUser(ctx context.Context, userID int64, limit int) ([]models.CalibrationProbe, error)
}

// StatsRepository handles aggregate statistics
type StatsRepository interface {
	UserStats(ctx context.Context, userID int64, recentWindow int) (*models.UserStats, error)
	DeckStats(ctx context.Context, deckID int64) (*models.DeckStats, error)
	// RefreshUserAggregate recomputes the user's recall counters from the
	// review event log.
	RefreshUserAggregate(ctx context.Context, userID int64) error
}
