package models

import "time"

// CalibrationProbe is a meta-cognitive spot-check: the learner predicts
// their own recall confidence before answering, and the prediction is
// later resolved against the actual outcome.
type CalibrationProbe struct {
	ID                  string     `json:"id"`
	SessionID           string     `json:"session_id"`
	CardID              int64      `json:"card_id"`
	PredictedConfidence float64    `json:"predicted_confidence"` // 0..1
	ActualSuccess       *bool      `json:"actual_success"`
	CreatedAt           time.Time  `json:"created_at"`
	ResolvedAt          *time.Time `json:"resolved_at"`
}

// Resolved reports whether the probe has been matched to an outcome.
func (p CalibrationProbe) Resolved() bool {
	return p.ResolvedAt != nil
}
