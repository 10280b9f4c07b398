package models

import "time"

// Outcome is the graded result of a single review.
type Outcome int

const (
	OutcomeAgain Outcome = iota
	OutcomeHard
	OutcomeGood
	OutcomeEasy
)

// Valid reports whether the outcome is one of the recognized grades.
func (o Outcome) Valid() bool {
	return o >= OutcomeAgain && o <= OutcomeEasy
}

// Success reports whether the outcome counts as a recall success.
func (o Outcome) Success() bool {
	return o >= OutcomeGood
}

func (o Outcome) String() string {
	switch o {
	case OutcomeAgain:
		return "again"
	case OutcomeHard:
		return "hard"
	case OutcomeGood:
		return "good"
	case OutcomeEasy:
		return "easy"
	default:
		return "invalid"
	}
}

// ReviewEvent records one review of one card. Events are immutable once
// recorded and form an append-only log.
type ReviewEvent struct {
	ID        int64         `json:"id"`
	CardID    int64         `json:"card_id"`
	UserID    int64         `json:"user_id"`
	SessionID string        `json:"session_id"`
	Timestamp time.Time     `json:"timestamp"`
	Outcome   Outcome       `json:"outcome"`
	Latency   time.Duration `json:"latency"`
}

// ReviewFilter narrows review event queries.
type ReviewFilter struct {
	CardID    int64
	UserID    int64
	SessionID string
	Since     *time.Time
	Limit     int
	Offset    int
}
