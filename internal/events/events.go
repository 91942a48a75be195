package events

import (
	"context"

	"github.com/rental-platform/backend/internal/escrow"
)

// Redis pub/sub streams
const (
	StreamEscrow   = "events:escrow"
	StreamRegistry = "events:registry"
)

// Event types. The escrow ones alias the ledger's own constants so the
// stream vocabulary cannot drift from what the ledger emits.
const (
	EventEscrowDeposited       = escrow.EventDeposited
	EventEscrowReleased        = escrow.EventReleased
	EventEscrowRefunded        = escrow.EventRefunded
	EventEscrowDeadlineReached = "escrow_deadline_reached"
	EventRentalCreated         = "rental_created"
	EventRentalCompleted       = "rental_completed"
	EventRentalCancelled       = "rental_cancelled"
	EventReviewSubmitted       = "review_submitted"
	EventReviewVerified        = "review_verified"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
