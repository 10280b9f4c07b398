package models

import (
	"math"
	"time"
)

// Card is a single flashcard with its Bayesian memory state.
// Alpha and Beta are the Beta-posterior counts over the card's latent
// recall probability; DecayRate governs how fast recall falls off with
// elapsed time since the last review.
type Card struct {
	ID       int64  `json:"id"`
	DeckID   int64  `json:"deck_id"`
	Front    string `json:"front"`
	Back     string `json:"back"`
	Payload  string `json:"payload,omitempty"`
	CardType string `json:"card_type"`

	Alpha         float64       `json:"alpha"`
	Beta          float64       `json:"beta"`
	DecayRate     float64       `json:"decay_rate"`     // per day
	DecayEvidence float64       `json:"decay_evidence"` // EWA of observed forgetting speed
	LastReviewed  *time.Time    `json:"last_reviewed"`
	Interval      time.Duration `json:"interval"`
	ReviewCount   int           `json:"review_count"`
	MatureStreak  int           `json:"mature_streak"`

	// Response latency baseline, maintained with Welford's method.
	LatencyMean  float64 `json:"latency_mean"` // seconds
	LatencyM2    float64 `json:"latency_m2"`
	LatencyCount int     `json:"latency_count"`

	// Version is the optimistic-concurrency token for posterior updates.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// PosteriorMean returns alpha / (alpha + beta), the raw difficulty estimate.
func (c Card) PosteriorMean() float64 {
	if c.Alpha+c.Beta <= 0 {
		return 0.5
	}
	return c.Alpha / (c.Alpha + c.Beta)
}

// LatencyStdDev returns the sample standard deviation of response latency
// in seconds, or 0 when fewer than two observations exist.
func (c Card) LatencyStdDev() float64 {
	if c.LatencyCount < 2 {
		return 0
	}
	return math.Sqrt(c.LatencyM2 / float64(c.LatencyCount-1))
}

// Due reports whether the card is due for review at the given time.
// A card that has never been reviewed is always due.
func (c Card) Due(now time.Time) bool {
	if c.LastReviewed == nil {
		return true
	}
	return !now.Before(c.LastReviewed.Add(c.Interval))
}

// Overdue returns how far past its scheduled review the card is at now.
// Negative for cards not yet due; zero for new cards.
func (c Card) Overdue(now time.Time) time.Duration {
	if c.LastReviewed == nil {
		return 0
	}
	return now.Sub(c.LastReviewed.Add(c.Interval))
}
