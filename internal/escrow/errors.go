package escrow

import "errors"

var (
	ErrInvalidAmount      = errors.New("escrow: amount must be positive")
	ErrInvalidDeadline    = errors.New("escrow: deadline must be in the future")
	ErrDuplicatePaymentID = errors.New("escrow: payment id already used")
	ErrRecordNotFound     = errors.New("escrow: record not found")
	ErrAlreadyResolved    = errors.New("escrow: record already resolved")
	ErrDeadlineNotReached = errors.New("escrow: deadline not reached")
	ErrDeadlineReached    = errors.New("escrow: deadline already reached")
	ErrUnauthorized       = errors.New("escrow: caller is not the operator")
	ErrTransferFailed     = errors.New("escrow: fund transfer failed")
)
