package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating bounds for property reviews.
const (
	MinRating = 1
	MaxRating = 5
)

func IsValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// Review is one entry of a property's append-only review list.
type Review struct {
	ID         uuid.UUID `json:"id"`
	PropertyID string    `json:"property_id"`
	Author     string    `json:"author"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// AverageRating is the integer-truncated mean of all ratings, 0 for an empty
// list.
func AverageRating(reviews []Review) int {
	if len(reviews) == 0 {
		return 0
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	return sum / len(reviews)
}
