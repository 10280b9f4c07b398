package models

import "time"

// SessionState is a state of the study-session state machine.
type SessionState string

const (
	SessionIdle           SessionState = "idle"
	SessionActive         SessionState = "active"
	SessionBreakSuggested SessionState = "break_suggested"
	SessionRescueMode     SessionState = "rescue_mode"
	SessionEnded          SessionState = "ended"
)

// FatigueSample is one point of a session's fatigue time series.
type FatigueSample struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// Session is one study session over a deck. A session exclusively owns
// its review events and probes for its duration; once ended it is
// immutable.
type Session struct {
	ID        string       `json:"id"`
	UserID    int64        `json:"user_id"`
	DeckID    int64        `json:"deck_id"`
	Name      string       `json:"name"`
	StartTime time.Time    `json:"start_time"`
	EndTime   *time.Time   `json:"end_time"`
	State     SessionState `json:"state"`

	Events     []ReviewEvent      `json:"events,omitempty"`
	Probes     []CalibrationProbe `json:"probes,omitempty"`
	FatigueLog []FatigueSample    `json:"fatigue_log,omitempty"`

	RescueActivations int `json:"rescue_activations"`
	NewCardsServed    int `json:"new_cards_served"`
}

// Ended reports whether the session has reached its terminal state.
func (s Session) Ended() bool {
	return s.State == SessionEnded
}

// Summary is the aggregate returned when a session ends.
type SessionSummary struct {
	SessionID    string        `json:"session_id"`
	Duration     time.Duration `json:"duration"`
	CardsStudied int           `json:"cards_studied"`
	SuccessRate  float64       `json:"success_rate"`
	RescueCycles int           `json:"rescue_cycles"`
}

// SessionFilter narrows session queries.
type SessionFilter struct {
	UserID     int64
	DeckID     int64
	ActiveOnly bool
	Limit      int
	Offset     int
}
