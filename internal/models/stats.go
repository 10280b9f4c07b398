package models

// UserStats is the per-user recall aggregate exposed at the API boundary.
// RecentAlpha/RecentBeta form a Beta posterior over the last-window
// success rate, seeded with a mildly optimistic prior.
type UserStats struct {
	UserID          int64   `json:"user_id"`
	TotalReviews    int     `json:"total_reviews"`
	Successes       int     `json:"successes"`
	Failures        int     `json:"failures"`
	SuccessRate     float64 `json:"success_rate"`
	RecentAlpha     float64 `json:"recent_alpha"`
	RecentBeta      float64 `json:"recent_beta"`
	CalibrationBias float64 `json:"calibration_bias"`
}

// DeckStats summarizes scheduling pressure for one deck.
type DeckStats struct {
	DeckID     int64 `json:"deck_id"`
	TotalCards int   `json:"total_cards"`
	NewCards   int   `json:"new_cards"`
	DueCards   int   `json:"due_cards"`
}
