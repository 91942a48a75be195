package escrow

import "time"

// Escrow record statuses
const (
	StatusPending  = "pending"
	StatusReleased = "released"
	StatusRefunded = "refunded"
)

// IsTerminal reports whether a status accepts no further transitions.
func IsTerminal(status string) bool {
	return status == StatusReleased || status == StatusRefunded
}

// Record is one custody entry. Sender, Recipient, Amount and Deadline are
// fixed at deposit; only Status (and ResolvedAt) change afterwards, exactly
// once, to one of the terminal statuses.
type Record struct {
	PaymentID  string     `json:"payment_id"`
	Sender     string     `json:"sender"`
	Recipient  string     `json:"recipient"`
	Amount     int64      `json:"amount"`
	Deadline   time.Time  `json:"deadline"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Valid record transitions: from -> []to. Deposit creates records in
// pending; release and refund are the only ways out of it.
var ValidTransitions = map[string][]string{
	StatusPending:  {StatusReleased, StatusRefunded},
	StatusReleased: {},
	StatusRefunded: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
