package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/repository"
	"github.com/mkaran/memflow/internal/repository/sqlite"
	"github.com/mkaran/memflow/internal/testutil"
)

type ProbeRepositorySuite struct {
	suite.Suite
	db     *sql.DB
	repo   repository.ProbeRepository
	userID int64
	cardID int64
	base   time.Time
}

func (s *ProbeRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewProbeRepository(s.db)
	s.userID = seedUser(s.T(), s.db, "maria")
	deckID := seedDeck(s.T(), s.db, "spanish")
	s.cardID = seedCard(s.T(), s.db, deckID, "perro")
	s.base = time.Now().UTC().Truncate(time.Second)

	sessions := sqlite.NewSessionRepository(s.db)
	s.Require().NoError(sessions.Insert(context.Background(), models.Session{
		ID:        "sess-1",
		UserID:    s.userID,
		DeckID:    deckID,
		StartTime: s.base,
		State:     models.SessionActive,
	}))
}

func (s *ProbeRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *ProbeRepositorySuite) TestInsertAndGet() {
	ctx := context.Background()

	s.Require().NoError(s.repo.Insert(ctx, models.CalibrationProbe{
		ID:                  "probe-1",
		SessionID:           "sess-1",
		CardID:              s.cardID,
		PredictedConfidence: 0.7,
		CreatedAt:           s.base,
	}))

	got, err := s.repo.Get(ctx, "probe-1")
	s.Require().NoError(err)
	s.Equal("sess-1", got.SessionID)
	s.Equal(s.cardID, got.CardID)
	s.InDelta(0.7, got.PredictedConfidence, 1e-9)
	s.Nil(got.ActualSuccess)
	s.Nil(got.ResolvedAt)
	s.False(got.Resolved())
}

func (s *ProbeRepositorySuite) TestGetMissing() {
	_, err := s.repo.Get(context.Background(), "no-such-probe")
	s.ErrorIs(err, sql.ErrNoRows)
}

func (s *ProbeRepositorySuite) TestResolve() {
	ctx := context.Background()

	s.Require().NoError(s.repo.Insert(ctx, models.CalibrationProbe{
		ID:        "probe-1",
		SessionID: "sess-1",
		CardID:    s.cardID,
		CreatedAt: s.base,
	}))

	probe, err := s.repo.Get(ctx, "probe-1")
	s.Require().NoError(err)

	success := true
	resolvedAt := s.base.Add(10 * time.Second)
	probe.PredictedConfidence = 0.8
	probe.ActualSuccess = &success
	probe.ResolvedAt = &resolvedAt
	s.Require().NoError(s.repo.Resolve(ctx, *probe))

	got, err := s.repo.Get(ctx, "probe-1")
	s.Require().NoError(err)
	s.Require().True(got.Resolved())
	s.Require().NotNil(got.ActualSuccess)
	s.True(*got.ActualSuccess)
	s.InDelta(0.8, got.PredictedConfidence, 1e-9)
	s.True(got.ResolvedAt.Equal(resolvedAt))
}

func (s *ProbeRepositorySuite) TestRecentByUser() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("probe-%d", i)
		createdAt := s.base.Add(time.Duration(i) * time.Minute)
		s.Require().NoError(s.repo.Insert(ctx, models.CalibrationProbe{
			ID:        id,
			SessionID: "sess-1",
			CardID:    s.cardID,
			CreatedAt: createdAt,
		}))

		// Leave probe-2 unresolved.
		if i == 2 {
			continue
		}
		success := i == 0
		resolvedAt := createdAt.Add(5 * time.Second)
		s.Require().NoError(s.repo.Resolve(ctx, models.CalibrationProbe{
			ID:                  id,
			PredictedConfidence: 0.5,
			ActualSuccess:       &success,
			ResolvedAt:          &resolvedAt,
		}))
	}

	probes, err := s.repo.RecentByUser(ctx, s.userID, 10)
	s.Require().NoError(err)
	s.Require().Len(probes, 2, "unresolved probes excluded")
	s.Equal("probe-1", probes[0].ID, "most recently resolved first")
	s.Equal("probe-0", probes[1].ID)

	limited, err := s.repo.RecentByUser(ctx, s.userID, 1)
	s.Require().NoError(err)
	s.Require().Len(limited, 1)
	s.Equal("probe-1", limited[0].ID)

	other, err := s.repo.RecentByUser(ctx, s.userID+100, 10)
	s.Require().NoError(err)
	s.Empty(other)
}

func TestProbeRepositorySuite(t *testing.T) {
	suite.Run(t, new(ProbeRepositorySuite))
}
