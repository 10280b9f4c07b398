package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaran/memflow/internal/clock"
	apperrors "github.com/mkaran/memflow/internal/errors"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/session"
)

func newTracker(clk clock.Clock) *session.Tracker {
	return session.NewTracker(session.DefaultConfig(), clk, models.Session{
		ID:     "sess-1",
		UserID: 1,
		DeckID: 1,
	})
}

// baselineCard carries a latency history of mean 2s, stddev 1s, so a 5s
// answer scores z=3.
func baselineCard() models.Card {
	return models.Card{
		ID:           10,
		DeckID:       1,
		LatencyMean:  2.0,
		LatencyM2:    9.0,
		LatencyCount: 10,
	}
}

func review(outcome models.Outcome, latency time.Duration, at time.Time) models.ReviewEvent {
	return models.ReviewEvent{
		CardID:    10,
		UserID:    1,
		SessionID: "sess-1",
		Timestamp: at,
		Outcome:   outcome,
		Latency:   latency,
	}
}

func assertStateError(t *testing.T, err error) {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeSessionState, appErr.Code)
}

func TestTracker_StartTransitionsIdleToActive(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)

	assert.Equal(t, models.SessionIdle, tr.State())
	require.NoError(t, tr.Start())
	assert.Equal(t, models.SessionActive, tr.State())
	assert.Equal(t, 0.0, tr.FatigueScore())

	assertStateError(t, tr.Start())
}

func TestTracker_ReviewBeforeStart(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)

	_, err := tr.RecordReview(review(models.OutcomeGood, time.Second, clk.Now()), baselineCard())
	assertStateError(t, err)
}

func TestTracker_FatigueTriggersRescueByFifthReview(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	// Five straight failures at z=3 latency fill the window.
	var last session.ReviewResult
	for i := 0; i < 5; i++ {
		clk.Advance(time.Minute)
		res, err := tr.RecordReview(review(models.OutcomeAgain, 5*time.Second, clk.Now()), baselineCard())
		require.NoError(t, err)
		last = res
		if i < 4 {
			assert.False(t, res.RescueActive, "window not yet full at review %d", i+1)
		}
	}

	assert.True(t, last.RescueActive)
	assert.Equal(t, models.SessionRescueMode, last.State)
	assert.Equal(t, 1, tr.Session().RescueActivations)
	assert.Greater(t, last.FatigueScore, 0.0)
}

func TestTracker_GoodAccuracyNeverTriggersRescue(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	// Slow but accurate: latency alone must not flip the session.
	for i := 0; i < 10; i++ {
		clk.Advance(time.Minute)
		res, err := tr.RecordReview(review(models.OutcomeGood, 5*time.Second, clk.Now()), baselineCard())
		require.NoError(t, err)
		assert.False(t, res.RescueActive)
	}
	assert.Equal(t, models.SessionActive, tr.State())
}

func TestTracker_RescueRecoversAfterCooldown(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	for i := 0; i < 5; i++ {
		clk.Advance(time.Minute)
		_, err := tr.RecordReview(review(models.OutcomeAgain, 5*time.Second, clk.Now()), baselineCard())
		require.NoError(t, err)
	}
	require.Equal(t, models.SessionRescueMode, tr.State())

	// Three easy wins inside rescue satisfy the cooldown and the
	// recovery accuracy bar.
	var last session.ReviewResult
	for i := 0; i < 3; i++ {
		clk.Advance(30 * time.Second)
		res, err := tr.RecordReview(review(models.OutcomeGood, time.Second, clk.Now()), baselineCard())
		require.NoError(t, err)
		last = res
	}

	assert.Equal(t, models.SessionActive, last.State)
	assert.False(t, last.RescueActive)
	assert.False(t, last.EndSuggested)
}

func TestTracker_RepeatedRescueSuggestsEnding(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	fail := func() session.ReviewResult {
		clk.Advance(30 * time.Second)
		res, err := tr.RecordReview(review(models.OutcomeAgain, 5*time.Second, clk.Now()), baselineCard())
		require.NoError(t, err)
		return res
	}

	for i := 0; i < 5; i++ {
		fail()
	}
	require.Equal(t, models.SessionRescueMode, tr.State())

	// Each failed cooldown re-enters rescue until the cycle cap, then the
	// tracker gives up and suggests ending instead of looping forever.
	var last session.ReviewResult
	for i := 0; i < 9; i++ {
		last = fail()
	}

	assert.True(t, last.EndSuggested)
	assert.Equal(t, models.SessionActive, last.State)
	assert.Equal(t, 3, tr.Session().RescueActivations)
}

func TestTracker_PomodoroBoundarySuggestsBreak(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	// Keep the session alive across the 25 minute boundary.
	for i := 0; i < 2; i++ {
		clk.Advance(10 * time.Minute)
		res, err := tr.RecordReview(review(models.OutcomeGood, time.Second, clk.Now()), baselineCard())
		require.NoError(t, err)
		assert.False(t, res.BreakSuggested)
	}

	clk.Advance(6 * time.Minute) // 26 minutes in
	res, err := tr.RecordReview(review(models.OutcomeGood, time.Second, clk.Now()), baselineCard())
	require.NoError(t, err)
	assert.True(t, res.BreakSuggested)
	assert.Equal(t, models.SessionBreakSuggested, res.State)

	// A break is advisory: the next review resumes and does not
	// re-suggest until the next boundary.
	clk.Advance(time.Minute)
	res, err = tr.RecordReview(review(models.OutcomeGood, time.Second, clk.Now()), baselineCard())
	require.NoError(t, err)
	assert.False(t, res.BreakSuggested)
	assert.Equal(t, models.SessionActive, res.State)
}

func TestTracker_IdleTimeoutEndsSessionRetroactively(t *testing.T) {
	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	clk.Advance(5 * time.Minute)
	_, err := tr.RecordReview(review(models.OutcomeGood, time.Second, clk.Now()), baselineCard())
	require.NoError(t, err)
	lastEvent := clk.Now()

	clk.Advance(40 * time.Minute)
	assert.Equal(t, models.SessionEnded, tr.State())

	sess := tr.Session()
	require.NotNil(t, sess.EndTime)
	assert.Equal(t, lastEvent.Add(15*time.Minute), *sess.EndTime,
		"the session ends when the timeout elapsed, not when it was observed")

	_, err = tr.RecordReview(review(models.OutcomeGood, time.Second, clk.Now()), baselineCard())
	assertStateError(t, err)
}

func TestTracker_EndProducesSummary(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	outcomes := []models.Outcome{models.OutcomeGood, models.OutcomeAgain, models.OutcomeEasy, models.OutcomeHard}
	for _, o := range outcomes {
		clk.Advance(time.Minute)
		_, err := tr.RecordReview(review(o, time.Second, clk.Now()), baselineCard())
		require.NoError(t, err)
	}

	clk.Advance(time.Minute)
	summary, err := tr.End()
	require.NoError(t, err)

	assert.Equal(t, "sess-1", summary.SessionID)
	assert.Equal(t, 4, summary.CardsStudied)
	assert.Equal(t, 0.5, summary.SuccessRate, "good and easy count as successes, hard and again do not")
	assert.Equal(t, 5*time.Minute, summary.Duration)
	assert.Equal(t, 0, summary.RescueCycles)

	_, err = tr.End()
	assertStateError(t, err)
}

func TestTracker_FatigueScoreStaysInRange(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	for i := 0; i < 20; i++ {
		clk.Advance(time.Minute)
		outcome := models.OutcomeGood
		if i%2 == 0 {
			outcome = models.OutcomeAgain
		}
		res, err := tr.RecordReview(review(outcome, 20*time.Second, clk.Now()), baselineCard())
		if err != nil {
			break // a rescue chain may end the run early, range check is what matters
		}
		assert.GreaterOrEqual(t, res.FatigueScore, 0.0)
		assert.LessOrEqual(t, res.FatigueScore, 1.0)
	}
}

func TestTracker_RankOptionsTrackNewCardBudget(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	opts := tr.RankOptions()
	assert.False(t, opts.Rescue)
	assert.Equal(t, 10, opts.NewCardBudget)

	tr.NoteCardServed(models.Card{ID: 1}) // never reviewed
	reviewed := time.Now()
	tr.NoteCardServed(models.Card{ID: 2, LastReviewed: &reviewed})

	opts = tr.RankOptions()
	assert.Equal(t, 9, opts.NewCardBudget, "only never-reviewed cards consume the quota")
}

func TestTracker_NoteCardServedCountsDistinctCards(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	for i := 0; i < 20; i++ {
		tr.NoteCardServed(models.Card{ID: 7})
	}
	assert.Equal(t, 9, tr.RankOptions().NewCardBudget, "re-serving one card burns one quota slot")

	tr.NoteCardServed(models.Card{ID: 8})
	assert.Equal(t, 8, tr.RankOptions().NewCardBudget)
}

func TestTracker_RescueRankOptions(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	tr := newTracker(clk)
	require.NoError(t, tr.Start())

	for i := 0; i < 5; i++ {
		clk.Advance(time.Minute)
		_, err := tr.RecordReview(review(models.OutcomeAgain, 5*time.Second, clk.Now()), baselineCard())
		require.NoError(t, err)
	}

	opts := tr.RankOptions()
	assert.True(t, opts.Rescue)
	assert.Equal(t, 0, opts.NewCardBudget)
}
