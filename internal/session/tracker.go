// Package session drives the study-session state machine:
//
//	Idle → Active → (BreakSuggested | RescueMode) → Active → Ended
//
// All timing behavior (Pomodoro boundaries, rescue cooldowns, idle
// timeouts) is a pure function of an injected clock evaluated on each
// interaction; there are no background timers.
package session

import (
	"sync"
	"time"

	"github.com/mkaran/memflow/internal/clock"
	"github.com/mkaran/memflow/internal/errors"
	"github.com/mkaran/memflow/internal/models"
	"github.com/mkaran/memflow/internal/scheduler"
)

// Config holds the pacing and fatigue tunables.
type Config struct {
	PomodoroLength        time.Duration // default 25m
	IdleTimeout           time.Duration // default 15m
	FatigueWindow         int           // sliding window of reviews, default 5
	AccuracyThreshold     float64       // default 0.5
	LatencyZThreshold     float64       // mean latency z-score trigger, default 1.0
	FatigueAccuracyWeight float64       // default 0.6
	FatigueLatencyWeight  float64       // default 0.4
	FatigueZScale         float64       // z-score that saturates the latency term, default 3.0
	RescueCooldownReviews int           // default 3
	RescueCooldownTime    time.Duration // default 5m
	MaxRescueCycles       int           // consecutive rescues before force-suggesting end, default 3
	NewCardQuota          int           // new cards introduced per session, default 10
}

// DefaultConfig returns the pacing defaults.
func DefaultConfig() Config {
	return Config{
		PomodoroLength:        25 * time.Minute,
		IdleTimeout:           15 * time.Minute,
		FatigueWindow:         5,
		AccuracyThreshold:     0.5,
		LatencyZThreshold:     1.0,
		FatigueAccuracyWeight: 0.6,
		FatigueLatencyWeight:  0.4,
		FatigueZScale:         3.0,
		RescueCooldownReviews: 3,
		RescueCooldownTime:    5 * time.Minute,
		MaxRescueCycles:       3,
		NewCardQuota:          10,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PomodoroLength <= 0 {
		c.PomodoroLength = def.PomodoroLength
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.FatigueWindow <= 0 {
		c.FatigueWindow = def.FatigueWindow
	}
	if c.AccuracyThreshold <= 0 || c.AccuracyThreshold >= 1 {
		c.AccuracyThreshold = def.AccuracyThreshold
	}
	if c.LatencyZThreshold <= 0 {
		c.LatencyZThreshold = def.LatencyZThreshold
	}
	if c.FatigueAccuracyWeight <= 0 {
		c.FatigueAccuracyWeight = def.FatigueAccuracyWeight
	}
	if c.FatigueLatencyWeight <= 0 {
		c.FatigueLatencyWeight = def.FatigueLatencyWeight
	}
	if c.FatigueZScale <= 0 {
		c.FatigueZScale = def.FatigueZScale
	}
	if c.RescueCooldownReviews <= 0 {
		c.RescueCooldownReviews = def.RescueCooldownReviews
	}
	if c.RescueCooldownTime <= 0 {
		c.RescueCooldownTime = def.RescueCooldownTime
	}
	if c.MaxRescueCycles <= 0 {
		c.MaxRescueCycles = def.MaxRescueCycles
	}
	if c.NewCardQuota < 0 {
		c.NewCardQuota = def.NewCardQuota
	}
	return c
}

// windowEntry is one review's contribution to the fatigue window.
type windowEntry struct {
	success  bool
	latencyZ float64
}

// ReviewResult reports the session-level consequences of one review.
type ReviewResult struct {
	State          models.SessionState
	FatigueScore   float64
	RescueActive   bool
	BreakSuggested bool
	EndSuggested   bool
}

// Tracker is the state machine for one session. A session is driven by a
// single logical sequence of review events, but the tracker locks anyway
// so status checks from other goroutines are safe.
type Tracker struct {
	mu  sync.Mutex
	cfg Config
	clk clock.Clock

	sess models.Session

	newCardIDs         map[int64]struct{}
	window             []windowEntry
	fatigue            float64
	lastEventAt        time.Time
	breaksSuggested    int
	rescueEnteredAt    time.Time
	rescueReviewsLeft  int
	consecutiveRescues int
	endSuggested       bool
}

// NewTracker creates an Idle tracker for the given session record.
func NewTracker(cfg Config, clk clock.Clock, sess models.Session) *Tracker {
	sess.State = models.SessionIdle
	return &Tracker{
		cfg:        cfg.withDefaults(),
		clk:        clk,
		sess:       sess,
		newCardIDs: make(map[int64]struct{}),
	}
}

// Start transitions Idle → Active, recording the start time and zeroing
// the fatigue score.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sess.State != models.SessionIdle {
		return errors.NewSessionStateError(string(t.sess.State), "start")
	}
	now := t.clk.Now()
	t.sess.StartTime = now
	t.sess.State = models.SessionActive
	t.fatigue = 0
	t.lastEventAt = now
	return nil
}

// State evaluates lazy clock transitions and returns the current state.
// An idle timeout observed here moves the session to Ended.
func (t *Tracker) State() models.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyIdleTimeout(t.clk.Now())
	return t.sess.State
}

// Session returns a snapshot of the session record.
func (t *Tracker) Session() models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyIdleTimeout(t.clk.Now())
	return t.sess
}

// PomodoroLength returns the session's effective Pomodoro length, which
// may come from the learner's per-user preference.
func (t *Tracker) PomodoroLength() time.Duration {
	return t.cfg.PomodoroLength
}

// FatigueScore returns the latest fatigue score.
func (t *Tracker) FatigueScore() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fatigue
}

// RankOptions derives the scheduler options for the session's current
// state: rescue mode flips the ranking and suspends new cards.
func (t *Tracker) RankOptions() scheduler.RankOptions {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyIdleTimeout(t.clk.Now())

	if t.sess.State == models.SessionRescueMode {
		return scheduler.RankOptions{Rescue: true}
	}
	return scheduler.RankOptions{NewCardBudget: t.cfg.NewCardQuota - t.sess.NewCardsServed}
}

// NoteCardServed records that a never-reviewed card was handed out, for
// new-card quota accounting. Re-serving the same unreviewed card, as a
// client polling the next-card endpoint will do, does not consume quota.
func (t *Tracker) NoteCardServed(card models.Card) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if card.LastReviewed != nil {
		return
	}
	if _, seen := t.newCardIDs[card.ID]; seen {
		return
	}
	t.newCardIDs[card.ID] = struct{}{}
	t.sess.NewCardsServed++
}

// NoteProbe attaches an issued calibration probe to the session record.
// The probe sampler reads these back to avoid double-probing a slot.
func (t *Tracker) NoteProbe(p models.CalibrationProbe) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sess.Probes = append(t.sess.Probes, p)
}

// ResolveProbe replaces the stored copy of a probe with its resolved form.
func (t *Tracker) ResolveProbe(p models.CalibrationProbe) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.sess.Probes {
		if t.sess.Probes[i].ID == p.ID {
			t.sess.Probes[i] = p
			return
		}
	}
}

// RecordReview folds one review event into the session: fatigue window,
// Pomodoro accounting, and the rescue-mode machinery. The card must
// carry its latency baseline from before this review.
func (t *Tracker) RecordReview(ev models.ReviewEvent, card models.Card) (ReviewResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clk.Now()
	t.applyIdleTimeout(now)

	switch t.sess.State {
	case models.SessionEnded:
		return ReviewResult{}, errors.NewSessionStateError(string(models.SessionEnded), "submit review")
	case models.SessionIdle:
		return ReviewResult{}, errors.NewSessionStateError(string(models.SessionIdle), "submit review")
	case models.SessionBreakSuggested:
		// Advisory only: the next review event resumes Active.
		t.sess.State = models.SessionActive
	}

	t.sess.Events = append(t.sess.Events, ev)
	t.lastEventAt = now

	t.pushWindow(ev, card)
	t.fatigue = t.fatigueScore()
	t.sess.FatigueLog = append(t.sess.FatigueLog, models.FatigueSample{
		Timestamp: ev.Timestamp,
		Score:     t.fatigue,
	})

	result := ReviewResult{}

	switch t.sess.State {
	case models.SessionRescueMode:
		t.rescueReviewsLeft--
		cooldownOver := t.rescueReviewsLeft <= 0 || !now.Before(t.rescueEnteredAt.Add(t.cfg.RescueCooldownTime))
		if cooldownOver {
			if t.windowAccuracy() >= t.cfg.AccuracyThreshold {
				t.sess.State = models.SessionActive
				t.consecutiveRescues = 0
			} else if t.consecutiveRescues >= t.cfg.MaxRescueCycles {
				// No infinite rescue loop: suggest ending instead of
				// re-triggering yet again.
				t.sess.State = models.SessionActive
				t.endSuggested = true
			} else {
				t.enterRescue(now)
			}
		}
	case models.SessionActive:
		if t.fatigueTriggered() {
			t.enterRescue(now)
		} else if t.pomodoroBoundaryCrossed(now) {
			t.sess.State = models.SessionBreakSuggested
			t.breaksSuggested++
			result.BreakSuggested = true
		}
	}

	result.State = t.sess.State
	result.FatigueScore = t.fatigue
	result.RescueActive = t.sess.State == models.SessionRescueMode
	result.EndSuggested = t.endSuggested
	return result, nil
}

// End transitions to Ended and returns the session summary. Ending an
// already-ended session is a state error; the record is immutable once
// terminal.
func (t *Tracker) End() (models.SessionSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sess.State == models.SessionEnded {
		return models.SessionSummary{}, errors.NewSessionStateError(string(models.SessionEnded), "end")
	}
	now := t.clk.Now()
	t.endLocked(now)
	return t.summaryLocked(), nil
}

// Summary returns the summary without changing state.
func (t *Tracker) Summary() models.SessionSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summaryLocked()
}

func (t *Tracker) endLocked(now time.Time) {
	t.sess.EndTime = &now
	t.sess.State = models.SessionEnded
}

func (t *Tracker) summaryLocked() models.SessionSummary {
	var successes int
	for _, ev := range t.sess.Events {
		if ev.Outcome.Success() {
			successes++
		}
	}
	rate := 0.0
	if len(t.sess.Events) > 0 {
		rate = float64(successes) / float64(len(t.sess.Events))
	}

	end := t.clk.Now()
	if t.sess.EndTime != nil {
		end = *t.sess.EndTime
	}
	return models.SessionSummary{
		SessionID:    t.sess.ID,
		Duration:     end.Sub(t.sess.StartTime),
		CardsStudied: len(t.sess.Events),
		SuccessRate:  rate,
		RescueCycles: t.sess.RescueActivations,
	}
}

// applyIdleTimeout lazily ends a session that has seen no review event
// for longer than the idle duration. Callers hold the lock.
func (t *Tracker) applyIdleTimeout(now time.Time) {
	switch t.sess.State {
	case models.SessionIdle, models.SessionEnded:
		return
	}
	if now.Sub(t.lastEventAt) > t.cfg.IdleTimeout {
		// The session ends at the moment the timeout elapsed, not at the
		// time of this (possibly much later) status check.
		t.endLocked(t.lastEventAt.Add(t.cfg.IdleTimeout))
	}
}

func (t *Tracker) enterRescue(now time.Time) {
	t.sess.State = models.SessionRescueMode
	t.sess.RescueActivations++
	t.consecutiveRescues++
	t.rescueEnteredAt = now
	t.rescueReviewsLeft = t.cfg.RescueCooldownReviews
	t.window = t.window[:0]
}

// pomodoroBoundaryCrossed reports whether cumulative active time has
// crossed a Pomodoro boundary that has not yet produced a suggestion.
func (t *Tracker) pomodoroBoundaryCrossed(now time.Time) bool {
	active := now.Sub(t.sess.StartTime)
	boundaries := int(active / t.cfg.PomodoroLength)
	return boundaries > t.breaksSuggested
}
