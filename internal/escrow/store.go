package escrow

import (
	"context"
	"time"
)

// Store persists escrow records and provides the mutual exclusion every
// mutating operation needs: no two mutations of the same payment id may both
// observe pending and both commit. Implementations run the supplied callback
// inside their critical section (in-memory lock, or a database transaction
// holding a row lock) so a callback failure aborts the whole operation with
// no state change.
type Store interface {
	// Create inserts rec if and only if no record has ever existed under
	// rec.PaymentID, returning ErrDuplicatePaymentID otherwise. fund runs
	// inside the same critical section; if it fails the insert is not
	// committed.
	Create(ctx context.Context, rec *Record, fund func(ctx context.Context) error) error

	// Get returns a snapshot of the record, or ErrRecordNotFound.
	Get(ctx context.Context, paymentID string) (*Record, error)

	// Resolve transitions a pending record to the given terminal status.
	// Returns ErrRecordNotFound for a missing record and ErrAlreadyResolved
	// for a non-pending one. guard receives a snapshot of the current record
	// and runs inside the critical section; if it fails the transition is
	// not committed. On success the updated record is returned.
	Resolve(ctx context.Context, paymentID, to string, resolvedAt time.Time, guard func(ctx context.Context, rec *Record) error) (*Record, error)
}
