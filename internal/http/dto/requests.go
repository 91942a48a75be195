package dto

import "time"

type IssueTokenRequest struct {
	Account string `json:"account"`
}

type DepositRequest struct {
	PaymentID    string `json:"payment_id"`
	Recipient    string `json:"recipient"`
	DeadlineUnix int64  `json:"deadline_unix"`
	Amount       int64  `json:"amount"`
}

type CreateRentalRequest struct {
	PropertyID      string     `json:"property_id"`
	Owner           string     `json:"owner"`
	Renter          string     `json:"renter"`
	Amount          int64      `json:"amount"`
	DurationSeconds int64      `json:"duration_seconds"`
	StartTime       *time.Time `json:"start_time,omitempty"` // defaults to now
}

type SubmitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type CreditAccountRequest struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}
