package models

import "time"

// Rental is a rental-agreement record, keyed by property id. One agreement
// per property at a time; complete and cancel are one-shot and require an
// agreement that is still active.
type Rental struct {
	PropertyID      string    `json:"property_id"`
	Owner           string    `json:"owner"`
	Renter          string    `json:"renter"`
	Amount          int64     `json:"amount"`
	DurationSeconds int64     `json:"duration_seconds"`
	StartTime       time.Time `json:"start_time"`
	Active          bool      `json:"active"`
	Completed       bool      `json:"completed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsOpen reports whether the agreement still accepts complete or cancel.
func (r *Rental) IsOpen() bool {
	return r.Active && !r.Completed
}
