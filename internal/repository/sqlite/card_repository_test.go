package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
	"github.com/mkaran/memflow/internal/repository/sqlite"
	"github.com/mkaran/memflow/internal/testutil"
)

type CardRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.CardRepository
}

func (s *CardRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewCardRepository(s.db)
}

func (s *CardRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *CardRepositorySuite) setupDeck(name string) int64 {
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO decks (name) VALUES (?)`, name)
	s.Require().NoError(err)

	var deckID int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM decks WHERE name = ?`, name).Scan(&deckID)
	s.Require().NoError(err)
	return deckID
}

func (s *CardRepositorySuite) TestInsertAndGet() {
	ctx := context.Background()
	deckID := s.setupDeck("spanish")

	id, err := s.repo.Insert(ctx, models.Card{
		DeckID:    deckID,
		Front:     "perro",
		Back:      "dog",
		CardType:  "basic",
		Alpha:     1,
		Beta:      1,
		DecayRate: 0.1,
	})
	s.Require().NoError(err)
	s.Require().NotZero(id)

	card, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal("perro", card.Front)
	s.Equal("dog", card.Back)
	s.Equal(deckID, card.DeckID)
	s.Equal(1.0, card.Alpha)
	s.Nil(card.LastReviewed)
	s.Equal(int64(0), card.Version)
	s.Zero(card.Interval)
}

func (s *CardRepositorySuite) TestGetMissing() {
	_, err := s.repo.Get(context.Background(), 9999)
	s.ErrorIs(err, sql.ErrNoRows)
}

func (s *CardRepositorySuite) TestListByDeck() {
	ctx := context.Background()
	deckID := s.setupDeck("spanish")
	other := s.setupDeck("french")

	for _, front := range []string{"uno", "dos", "tres"} {
		_, err := s.repo.Insert(ctx, models.Card{DeckID: deckID, Front: front, Alpha: 1, Beta: 1, DecayRate: 0.1})
		s.Require().NoError(err)
	}
	_, err := s.repo.Insert(ctx, models.Card{DeckID: other, Front: "un", Alpha: 1, Beta: 1, DecayRate: 0.1})
	s.Require().NoError(err)

	cards, err := s.repo.ListByDeck(ctx, deckID)
	s.Require().NoError(err)
	s.Len(cards, 3)
	s.Equal("uno", cards[0].Front)
}

func (s *CardRepositorySuite) TestUpdateContent() {
	ctx := context.Background()
	deckID := s.setupDeck("spanish")

	id, err := s.repo.Insert(ctx, models.Card{DeckID: deckID, Front: "pero", Alpha: 1, Beta: 1, DecayRate: 0.1})
	s.Require().NoError(err)

	card, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	card.Front = "perro"
	card.Back = "dog"
	s.Require().NoError(s.repo.UpdateContent(ctx, *card))

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal("perro", got.Front)
	s.Equal(int64(0), got.Version, "content edits do not bump the posterior version")
}

func (s *CardRepositorySuite) TestUpdatePosterior() {
	ctx := context.Background()
	deckID := s.setupDeck("spanish")

	id, err := s.repo.Insert(ctx, models.Card{DeckID: deckID, Front: "gato", Alpha: 1, Beta: 1, DecayRate: 0.1})
	s.Require().NoError(err)

	card, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)

	now := time.Now().UTC().Truncate(time.Second)
	card.Alpha = 2
	card.DecayRate = 0.08
	card.LastReviewed = &now
	card.Interval = 36 * time.Hour
	card.ReviewCount = 1
	card.MatureStreak = 1

	s.Require().NoError(s.repo.UpdatePosterior(ctx, *card, 0))

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(2.0, got.Alpha)
	s.Equal(0.08, got.DecayRate)
	s.Equal(36*time.Hour, got.Interval)
	s.Equal(1, got.ReviewCount)
	s.Require().NotNil(got.LastReviewed)
	s.True(got.LastReviewed.Equal(now))
	s.Equal(int64(1), got.Version, "a posterior write bumps the version")
}

func (s *CardRepositorySuite) TestUpdatePosteriorVersionConflict() {
	ctx := context.Background()
	deckID := s.setupDeck("spanish")

	id, err := s.repo.Insert(ctx, models.Card{DeckID: deckID, Front: "gato", Alpha: 1, Beta: 1, DecayRate: 0.1})
	s.Require().NoError(err)

	card, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)

	// First writer wins.
	first := *card
	first.Alpha = 2
	s.Require().NoError(s.repo.UpdatePosterior(ctx, first, 0))

	// Second writer still holds version 0 and must lose.
	second := *card
	second.Beta = 2
	err = s.repo.UpdatePosterior(ctx, second, 0)
	s.ErrorIs(err, repository.ErrVersionConflict)

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(2.0, got.Alpha)
	s.Equal(1.0, got.Beta, "the losing write left no trace")

	// Retrying with the fresh version succeeds.
	second.Beta = 2
	s.Require().NoError(s.repo.UpdatePosterior(ctx, second, got.Version))
}

func (s *CardRepositorySuite) TestDelete() {
	ctx := context.Background()
	deckID := s.setupDeck("spanish")

	id, err := s.repo.Insert(ctx, models.Card{DeckID: deckID, Front: "gato", Alpha: 1, Beta: 1, DecayRate: 0.1})
	s.Require().NoError(err)

	s.Require().NoError(s.repo.Delete(ctx, id))
	_, err = s.repo.Get(ctx, id)
	s.ErrorIs(err, sql.ErrNoRows)
}

func TestCardRepositorySuite(t *testing.T) {
	suite.Run(t, new(CardRepositorySuite))
}
