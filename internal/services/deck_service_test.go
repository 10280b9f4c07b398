package services_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mkaran/memflow/internal/clock"
	apperrors "github.com/mkaran/memflow/internal/errors"
	"github.com/mkaran/memflow/internal/memory"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/services"
	"github.com/mkaran/memflow/internal/session"
	"github.com/mkaran/memflow/internal/testutil/mocks"
)

type deckFixture struct {
	decks    *mocks.MockDeckRepository
	cards    *mocks.MockCardRepository
	users    *mocks.MockUserRepository
	registry *session.Registry
	svc      services.DeckService
}

func newDeckFixture() *deckFixture {
	f := &deckFixture{
		decks:    new(mocks.MockDeckRepository),
		cards:    new(mocks.MockCardRepository),
		users:    new(mocks.MockUserRepository),
		registry: session.NewRegistry(),
	}
	f.svc = services.NewDeckService(f.decks, f.cards, f.users, f.registry, memory.New(memory.DefaultConfig()))
	return f
}

func TestCreateDeck(t *testing.T) {
	f := newDeckFixture()
	f.decks.On("GetByName", mock.Anything, "spanish").Return(nil, sql.ErrNoRows)
	f.decks.On("Insert", mock.Anything, models.Deck{Name: "spanish"}).Return(int64(2), nil)
	f.decks.On("Get", mock.Anything, int64(2)).Return(&models.Deck{ID: 2, Name: "spanish"}, nil)

	deck, err := f.svc.CreateDeck(context.Background(), "  spanish  ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deck.ID)
}

func TestCreateDeckEmptyName(t *testing.T) {
	f := newDeckFixture()
	_, err := f.svc.CreateDeck(context.Background(), "   ")
	assertAppErrorCode(t, err, apperrors.ErrCodeValidation)
}

func TestCreateDeckDuplicateName(t *testing.T) {
	f := newDeckFixture()
	f.decks.On("GetByName", mock.Anything, "spanish").Return(&models.Deck{ID: 2, Name: "spanish"}, nil)

	_, err := f.svc.CreateDeck(context.Background(), "spanish")
	assertAppErrorCode(t, err, apperrors.ErrCodeConflict)
}

func TestDeleteDeckInUse(t *testing.T) {
	f := newDeckFixture()
	f.decks.On("Get", mock.Anything, int64(2)).Return(&models.Deck{ID: 2, Name: "spanish"}, nil)

	tracker := session.NewTracker(session.DefaultConfig(), clock.NewFake(time.Now()), models.Session{
		ID:     "sess-1",
		UserID: 1,
		DeckID: 2,
	})
	require.NoError(t, tracker.Start())
	f.registry.Add(tracker)

	err := f.svc.DeleteDeck(context.Background(), 2)
	assertAppErrorCode(t, err, apperrors.ErrCodeConflict)
	f.decks.AssertNotCalled(t, "Delete", mock.Anything, int64(2))
}

func TestDeleteDeck(t *testing.T) {
	f := newDeckFixture()
	f.decks.On("Get", mock.Anything, int64(2)).Return(&models.Deck{ID: 2, Name: "spanish"}, nil)
	f.decks.On("Delete", mock.Anything, int64(2)).Return(nil)

	require.NoError(t, f.svc.DeleteDeck(context.Background(), 2))
	f.decks.AssertExpectations(t)
}

func TestCreateCardSeedsPriors(t *testing.T) {
	f := newDeckFixture()
	f.decks.On("Get", mock.Anything, int64(2)).Return(&models.Deck{ID: 2, Name: "spanish"}, nil)
	f.users.On("Get", mock.Anything, int64(1)).Return(&models.User{ID: 1, GlobalDecay: 0.07}, nil)
	f.cards.On("Insert", mock.Anything, mock.MatchedBy(func(c models.Card) bool {
		return c.Alpha == 1 && c.Beta == 1 && c.DecayRate == 0.07 && c.CardType == "basic"
	})).Return(int64(10), nil)
	f.cards.On("Get", mock.Anything, int64(10)).Return(&models.Card{ID: 10, DeckID: 2, Front: "perro"}, nil)

	card, err := f.svc.CreateCard(context.Background(), 2, 1, services.CardInput{Front: "perro", Back: "dog"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), card.ID)
	f.cards.AssertExpectations(t)
}

func TestCreateCardEmptyFront(t *testing.T) {
	f := newDeckFixture()
	_, err := f.svc.CreateCard(context.Background(), 2, 1, services.CardInput{Front: " "})
	assertAppErrorCode(t, err, apperrors.ErrCodeValidation)
}

func TestUpdateCardKeepsMemoryState(t *testing.T) {
	f := newDeckFixture()
	existing := &models.Card{ID: 10, DeckID: 2, Front: "pero", Alpha: 4, Beta: 2, Version: 3}
	f.cards.On("Get", mock.Anything, int64(10)).Return(existing, nil)
	f.cards.On("UpdateContent", mock.Anything, mock.MatchedBy(func(c models.Card) bool {
		return c.Front == "perro" && c.Alpha == 4 && c.Version == 3
	})).Return(nil)

	card, err := f.svc.UpdateCard(context.Background(), 10, services.CardInput{Front: "perro", Back: "dog"})
	require.NoError(t, err)
	assert.Equal(t, "perro", card.Front)
	f.cards.AssertExpectations(t)
}
