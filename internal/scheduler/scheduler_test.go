package scheduler_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaran/memflow/internal/memory"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/scheduler"
)

func newScheduler() (*scheduler.Scheduler, *memory.Model) {
	model := memory.New(memory.DefaultConfig())
	return scheduler.New(model, scheduler.DefaultConfig()), model
}

func uc() memory.UserContext {
	return memory.UserContext{GlobalDecay: 0.1}
}

func reviewedCard(id int64, alpha, beta, decay float64, lastReviewed time.Time, interval time.Duration) models.Card {
	return models.Card{
		ID:           id,
		Alpha:        alpha,
		Beta:         beta,
		DecayRate:    decay,
		LastReviewed: &lastReviewed,
		Interval:     interval,
	}
}

func TestNextInterval_RoundTripsThroughTheModel(t *testing.T) {
	sched, model := newScheduler()

	card := models.Card{Alpha: 9, Beta: 1, DecayRate: 0.15}
	interval := sched.NextInterval(card, uc())

	// Evaluating the forgetting curve at the scheduled moment must give
	// back the target recall.
	p := model.RecallProbability(card, uc(), interval)
	assert.InDelta(t, 0.80, p, 1e-6)
}

func TestNextInterval_MinimumWhenMeanAtOrBelowTarget(t *testing.T) {
	sched, _ := newScheduler()

	// Posterior mean 0.5 is already below the 0.80 target.
	card := models.Card{Alpha: 1, Beta: 1, DecayRate: 0.1}
	assert.Equal(t, 10*time.Minute, sched.NextInterval(card, uc()))
}

func TestNextInterval_ClampedToMax(t *testing.T) {
	model := memory.New(memory.DefaultConfig())
	sched := scheduler.New(model, scheduler.Config{
		TargetRecall: 0.80,
		MinInterval:  10 * time.Minute,
		MaxInterval:  30 * 24 * time.Hour,
	})

	// Near-zero decay pushes the closed-form solution out for years.
	card := models.Card{Alpha: 99, Beta: 1, DecayRate: 1e-4}
	assert.Equal(t, 30*24*time.Hour, sched.NextInterval(card, uc()))
}

func TestNextInterval_SuccessLengthensFailureShortens(t *testing.T) {
	sched, model := newScheduler()
	now := time.Now()
	last := now.Add(-48 * time.Hour)

	card := reviewedCard(1, 8, 1, 0.1, last, 48*time.Hour)
	card.ReviewCount = 4
	base := sched.NextInterval(card, uc())

	onSuccess, err := model.Update(card, uc(), models.OutcomeGood, 48*time.Hour, now)
	require.NoError(t, err)
	onFailure, err := model.Update(card, uc(), models.OutcomeAgain, 48*time.Hour, now)
	require.NoError(t, err)

	assert.Greater(t, sched.NextInterval(onSuccess, uc()), base)
	assert.Less(t, sched.NextInterval(onFailure, uc()), base)
}

func TestRankDueCards_WeakestFirst(t *testing.T) {
	sched, _ := newScheduler()
	now := time.Now()
	last := now.Add(-72 * time.Hour)

	strong := reviewedCard(1, 20, 1, 0.05, last, time.Hour)
	weak := reviewedCard(2, 2, 5, 0.3, last, time.Hour)
	middling := reviewedCard(3, 5, 3, 0.1, last, time.Hour)

	ranked := sched.RankDueCards([]models.Card{strong, weak, middling}, uc(), now, scheduler.RankOptions{})
	require.Len(t, ranked, 3)
	assert.Equal(t, int64(2), ranked[0].ID)
	assert.Equal(t, int64(3), ranked[1].ID)
	assert.Equal(t, int64(1), ranked[2].ID)
}

func TestRankDueCards_RescueFlipsOrdering(t *testing.T) {
	sched, _ := newScheduler()
	now := time.Now()
	last := now.Add(-72 * time.Hour)

	strong := reviewedCard(1, 20, 1, 0.05, last, time.Hour)
	weak := reviewedCard(2, 2, 5, 0.3, last, time.Hour)

	ranked := sched.RankDueCards([]models.Card{weak, strong}, uc(), now, scheduler.RankOptions{Rescue: true})
	require.Len(t, ranked, 2)
	assert.Equal(t, int64(1), ranked[0].ID, "rescue serves confidence-building cards first")
}

func TestRankDueCards_TieBrokenByLongestOverdue(t *testing.T) {
	sched, _ := newScheduler()
	now := time.Now()

	// Identical memory state, different overdue spans.
	recent := reviewedCard(1, 4, 4, 0.1, now.Add(-2*time.Hour), time.Hour)
	stale := reviewedCard(2, 4, 4, 0.1, now.Add(-2*time.Hour), 30*time.Minute)
	// Same posterior but different elapsed changes recall, so pin elapsed
	// equal and vary only the interval.
	ranked := sched.RankDueCards([]models.Card{recent, stale}, uc(), now, scheduler.RankOptions{})
	require.Len(t, ranked, 2)
	assert.Equal(t, int64(2), ranked[0].ID, "longer overdue wins the tie")
}

func TestRankDueCards_Deterministic(t *testing.T) {
	sched, _ := newScheduler()
	now := time.Now()
	last := now.Add(-24 * time.Hour)

	cards := []models.Card{
		reviewedCard(1, 4, 4, 0.1, last, time.Hour),
		reviewedCard(2, 4, 4, 0.1, last, time.Hour),
		reviewedCard(3, 4, 4, 0.1, last, time.Hour),
	}

	first := sched.RankDueCards(cards, uc(), now, scheduler.RankOptions{})
	for i := 0; i < 10; i++ {
		again := sched.RankDueCards(cards, uc(), now, scheduler.RankOptions{})
		require.Equal(t, first, again, "equal-score ranking must keep insertion order")
	}
	assert.Equal(t, int64(1), first[0].ID)
}

func TestRankDueCards_ExcludesNotYetDue(t *testing.T) {
	sched, _ := newScheduler()
	now := time.Now()

	due := reviewedCard(1, 4, 4, 0.1, now.Add(-2*time.Hour), time.Hour)
	notDue := reviewedCard(2, 4, 4, 0.1, now.Add(-time.Minute), time.Hour)

	ranked := sched.RankDueCards([]models.Card{due, notDue}, uc(), now, scheduler.RankOptions{})
	require.Len(t, ranked, 1)
	assert.Equal(t, int64(1), ranked[0].ID)
}

func TestRankDueCards_InterleavesNewCards(t *testing.T) {
	sched, _ := newScheduler()
	now := time.Now()
	last := now.Add(-24 * time.Hour)

	var cards []models.Card
	for i := int64(1); i <= 8; i++ {
		cards = append(cards, reviewedCard(i, 4, 4, 0.1, last, time.Hour))
	}
	cards = append(cards, models.Card{ID: 100}, models.Card{ID: 101})

	ranked := sched.RankDueCards(cards, uc(), now, scheduler.RankOptions{NewCardBudget: 2})
	require.Len(t, ranked, 10)

	// Default stride inserts a new card every 4th slot.
	assert.Equal(t, int64(100), ranked[3].ID)
	assert.Equal(t, int64(101), ranked[7].ID)
	for i, c := range ranked {
		if i != 3 && i != 7 {
			assert.NotNil(t, c.LastReviewed, "slot %d should hold a review card", i)
		}
	}
}

func TestRankDueCards_NewCardBudgetExhausted(t *testing.T) {
	sched, _ := newScheduler()
	now := time.Now()
	last := now.Add(-24 * time.Hour)

	cards := []models.Card{
		reviewedCard(1, 4, 4, 0.1, last, time.Hour),
		{ID: 100},
		{ID: 101},
	}

	ranked := sched.RankDueCards(cards, uc(), now, scheduler.RankOptions{NewCardBudget: 1})
	require.Len(t, ranked, 2)

	ranked = sched.RankDueCards(cards, uc(), now, scheduler.RankOptions{NewCardBudget: 0})
	require.Len(t, ranked, 1)
	assert.Equal(t, int64(1), ranked[0].ID)
}

func TestRankDueCards_RescueSuspendsNewCards(t *testing.T) {
	sched, _ := newScheduler()
	now := time.Now()

	cards := []models.Card{
		reviewedCard(1, 4, 4, 0.1, now.Add(-2*time.Hour), time.Hour),
		{ID: 100},
	}

	ranked := sched.RankDueCards(cards, uc(), now, scheduler.RankOptions{Rescue: true, NewCardBudget: 5})
	require.Len(t, ranked, 1)
	assert.Equal(t, int64(1), ranked[0].ID)
}

func TestNextCard_NoCardsDue(t *testing.T) {
	sched, _ := newScheduler()
	now := time.Now()

	notDue := reviewedCard(1, 4, 4, 0.1, now.Add(-time.Minute), time.Hour)

	_, err := sched.NextCard([]models.Card{notDue}, uc(), now, scheduler.RankOptions{})
	assert.ErrorIs(t, err, scheduler.ErrNoCardsDue)

	_, err = sched.NextCard(nil, uc(), now, scheduler.RankOptions{})
	assert.ErrorIs(t, err, scheduler.ErrNoCardsDue)
}

func TestNextCard_ServesNeverReviewedWithBudget(t *testing.T) {
	sched, _ := newScheduler()

	card, err := sched.NextCard([]models.Card{{ID: 100}}, uc(), time.Now(), scheduler.RankOptions{NewCardBudget: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(100), card.ID)
}

func TestNextInterval_ClosedFormMatchesLogInversion(t *testing.T) {
	sched, _ := newScheduler()

	card := models.Card{Alpha: 9, Beta: 1, DecayRate: 0.15}
	want := math.Log(0.9/0.8) / 0.15 * 24 * float64(time.Hour)

	assert.InDelta(t, want, float64(sched.NextInterval(card, uc())), float64(time.Second))
}
