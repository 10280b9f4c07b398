package models

import "time"

// Deck is a named collection of cards.
type Deck struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CardCount int       `json:"card_count"`
	CreatedAt time.Time `json:"created_at"`
}
