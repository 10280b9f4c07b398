package models

import "time"

// User carries the per-learner state the memory model depends on: the
// global decay prior used to seed new cards, the calibration bias, and
// the running recall aggregate.
type User struct {
	ID              int64         `json:"id"`
	Username        string        `json:"username"`
	GlobalDecay     float64       `json:"global_decay"` // per day
	CalibrationBias float64       `json:"calibration_bias"`
	PomodoroLength  time.Duration `json:"pomodoro_length"`
	RecallSuccesses int           `json:"recall_successes"`
	RecallFailures  int           `json:"recall_failures"`
	CreatedAt       time.Time     `json:"created_at"`
}

// SuccessRate returns the user's overall recall success rate, or 0 with
// no recorded reviews.
func (u User) SuccessRate() float64 {
	total := u.RecallSuccesses + u.RecallFailures
	if total == 0 {
		return 0
	}
	return float64(u.RecallSuccesses) / float64(total)
}
