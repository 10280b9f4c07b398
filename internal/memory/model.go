// Package memory implements the per-card Bayesian memory model: a
// Beta(alpha, beta) posterior over the card's latent recall probability
// combined with an exponential forgetting curve,
// p(t) = posterior_mean * exp(-decay * t).
package memory

import (
	"errors"
	"math"
	"time"

	"github.com/mkaran/memflow/internal/models"
)

// Sentinel errors. Use errors.Is to check.
var (
	ErrInvalidOutcome = errors.New("memory: outcome is not a recognized grade")
	ErrStaleCard      = errors.New("memory: negative elapsed time since last review")
)

// Config holds the tunable coefficients of the model. The exact blend and
// easing coefficients are deliberately configuration, not constants.
type Config struct {
	MinDecay               float64 // strictly positive floor, per day
	DecayShrinkage         float64 // k in evidence weight n/(n+k)
	DecayEWARate           float64 // EWA rate for observed forgetting speed
	RecencyFloor           float64 // minimum recency weight on posterior counts
	MatureStreakEase       float64 // decay multiplier for long success streaks
	MatureStreakThreshold  int     // streak length from which easing applies
	CalibrationSensitivity float64 // strength of the calibration correction
}

// DefaultConfig returns the model defaults.
func DefaultConfig() Config {
	return Config{
		MinDecay:               1e-4,
		DecayShrinkage:         10.0,
		DecayEWARate:           0.3,
		RecencyFloor:           0.25,
		MatureStreakEase:       0.9,
		MatureStreakThreshold:  3,
		CalibrationSensitivity: 1.0,
	}
}

// UserContext carries the per-user inputs the model needs. It replaces
// any ambient global state: callers pass it explicitly on every call.
type UserContext struct {
	GlobalDecay     float64 // per day, prior for cards with little evidence
	CalibrationBias float64 // signed over/under-confidence correction
}

// Model evaluates and updates card memory state.
type Model struct {
	cfg Config
}

// New creates a Model. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Model {
	def := DefaultConfig()
	if cfg.MinDecay <= 0 {
		cfg.MinDecay = def.MinDecay
	}
	if cfg.DecayShrinkage <= 0 {
		cfg.DecayShrinkage = def.DecayShrinkage
	}
	if cfg.DecayEWARate <= 0 || cfg.DecayEWARate > 1 {
		cfg.DecayEWARate = def.DecayEWARate
	}
	if cfg.RecencyFloor <= 0 || cfg.RecencyFloor > 1 {
		cfg.RecencyFloor = def.RecencyFloor
	}
	if cfg.MatureStreakEase <= 0 || cfg.MatureStreakEase > 1 {
		cfg.MatureStreakEase = def.MatureStreakEase
	}
	if cfg.MatureStreakThreshold <= 0 {
		cfg.MatureStreakThreshold = def.MatureStreakThreshold
	}
	if cfg.CalibrationSensitivity <= 0 {
		cfg.CalibrationSensitivity = def.CalibrationSensitivity
	}
	return &Model{cfg: cfg}
}

// Update applies one review to the card's posterior and decay estimate.
// It returns the updated card and does not mutate the input. The caller
// must clamp clock-skewed (negative) elapsed times to zero rather than
// propagate ErrStaleCard to the learner.
func (m *Model) Update(card models.Card, uc UserContext, outcome models.Outcome, elapsed time.Duration, now time.Time) (models.Card, error) {
	if !outcome.Valid() {
		return models.Card{}, ErrInvalidOutcome
	}
	if elapsed < 0 {
		return models.Card{}, ErrStaleCard
	}

	c := card
	w := m.recencyWeight(c, elapsed)

	if outcome.Success() {
		c.Alpha += w
		c.MatureStreak++
	} else {
		c.Beta += w
		c.MatureStreak = 0
		m.observeForgetting(&c, elapsed)
	}

	// Uninformative prior floor.
	if c.Alpha < 1 {
		c.Alpha = 1
	}
	if c.Beta < 1 {
		c.Beta = 1
	}

	c.ReviewCount++
	c.DecayRate = m.decayFor(c, uc)
	c.LastReviewed = &now
	return c, nil
}

// RecallProbability evaluates the forgetting curve at the given elapsed
// time since last review. At zero elapsed time (and zero calibration
// bias) it equals the raw posterior mean.
func (m *Model) RecallProbability(card models.Card, uc UserContext, elapsed time.Duration) float64 {
	mean := m.CalibratedMean(card, uc)
	if elapsed <= 0 {
		return mean
	}
	decay := card.DecayRate
	if decay < m.cfg.MinDecay {
		decay = m.cfg.MinDecay
	}
	return mean * math.Exp(-decay*days(elapsed))
}

// CalibratedMean is the posterior mean corrected by the user's
// calibration bias. Overconfident users (positive bias) get their recall
// estimates shrunk; underconfident users get them boosted. The raw Beta
// counts are never altered.
func (m *Model) CalibratedMean(card models.Card, uc UserContext) float64 {
	mean := card.PosteriorMean()
	if uc.CalibrationBias == 0 {
		return mean
	}
	mult := 1 - m.cfg.CalibrationSensitivity*uc.CalibrationBias
	return clamp01(mean * clamp(mult, 0.5, 1.5))
}

// InitialCard seeds a new card's memory state from the user's prior.
func (m *Model) InitialCard(card models.Card, uc UserContext) models.Card {
	c := card
	c.Alpha = 1
	c.Beta = 1
	c.DecayRate = uc.GlobalDecay
	if c.DecayRate < m.cfg.MinDecay {
		c.DecayRate = m.cfg.MinDecay
	}
	return c
}

// recencyWeight scales posterior increments by how much of the scheduled
// interval actually elapsed: an immediate re-review carries less evidence
// than a recall at the scheduled horizon.
func (m *Model) recencyWeight(c models.Card, elapsed time.Duration) float64 {
	if c.Interval <= 0 || c.LastReviewed == nil {
		return 1
	}
	return clamp(float64(elapsed)/float64(c.Interval), m.cfg.RecencyFloor, 1)
}

// observeForgetting folds a failure into the card's forgetting-speed
// evidence: the inverse of elapsed-time-to-failure, tracked as an
// exponentially weighted average.
func (m *Model) observeForgetting(c *models.Card, elapsed time.Duration) {
	d := days(elapsed)
	if d <= 0 {
		return
	}
	obs := 1 / d
	if c.DecayEvidence == 0 {
		c.DecayEvidence = obs
		return
	}
	r := m.cfg.DecayEWARate
	c.DecayEvidence = (1-r)*c.DecayEvidence + r*obs
}

// decayFor blends card-specific forgetting evidence with the user's
// global prior. The card's weight n/(n+k) grows with accumulated reviews,
// so young cards lean on the prior and mature cards on their own history.
func (m *Model) decayFor(c models.Card, uc UserContext) float64 {
	prior := uc.GlobalDecay
	if prior < m.cfg.MinDecay {
		prior = m.cfg.MinDecay
	}
	evidence := c.DecayEvidence
	if evidence == 0 {
		evidence = prior
	}

	w := float64(c.ReviewCount) / (float64(c.ReviewCount) + m.cfg.DecayShrinkage)
	decay := w*evidence + (1-w)*prior

	if c.MatureStreak > m.cfg.MatureStreakThreshold {
		decay *= m.cfg.MatureStreakEase
	}
	if decay < m.cfg.MinDecay {
		decay = m.cfg.MinDecay
	}
	return decay
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
