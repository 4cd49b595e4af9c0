package domain

import "time"

// OutcomeCount is how often advice requests ended with a given outcome kind.
type OutcomeCount struct {
	Kind   string    `json:"kind"`
	Count  int64     `json:"count"`
	LastAt time.Time `json:"last_at"`
}
