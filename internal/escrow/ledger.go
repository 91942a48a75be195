package escrow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Clock supplies the ledger's notion of current time. Injected so deadline
// behavior is testable to the exact boundary instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// Authorizer decides whether a caller may resolve records.
type Authorizer interface {
	Authorize(caller string) error
}

// SingleOperator authorizes exactly one designated account, fixed at
// construction.
type SingleOperator string

func (o SingleOperator) Authorize(caller string) error {
	if caller != string(o) {
		return ErrUnauthorized
	}
	return nil
}

// Event types emitted by the ledger, in commit order.
const (
	EventDeposited = "escrow_deposited"
	EventReleased  = "escrow_released"
	EventRefunded  = "escrow_refunded"
)

// Event carries enough data to reconstruct ledger state from the event log
// alone.
type Event struct {
	Type      string    `json:"type"`
	PaymentID string    `json:"payment_id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Amount    int64     `json:"amount"`
	At        time.Time `json:"at"`
}

// Sink observes ledger events. Record runs inside the same transaction as
// the state change it describes, on the transaction-scoped context; a
// non-nil error aborts the whole operation. Notify runs only after the
// change has committed and is best-effort.
type Sink interface {
	Record(ctx context.Context, ev Event) error
	Notify(ctx context.Context, ev Event)
}

type noopSink struct{}

func (noopSink) Record(context.Context, Event) error { return nil }

func (noopSink) Notify(context.Context, Event) {}

// Ledger is the escrow custody state machine. Anyone may deposit and read;
// only the operator resolves. Each record moves pending -> released (at or
// after its deadline) or pending -> refunded (strictly before it), exactly
// once. Fund movement and the status transition commit together or not at
// all.
type Ledger struct {
	store    Store
	treasury Treasury
	operator Authorizer
	clock    Clock
	sink     Sink
	log      *zap.Logger
}

func NewLedger(store Store, treasury Treasury, operator Authorizer, clock Clock, sink Sink, log *zap.Logger) *Ledger {
	if clock == nil {
		clock = SystemClock()
	}
	if sink == nil {
		sink = noopSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		store:    store,
		treasury: treasury,
		operator: operator,
		clock:    clock,
		sink:     sink,
		log:      log,
	}
}

// Deposit creates the record for paymentID and takes amount into custody.
// One-shot per payment id: once a record has existed under an id, deposit on
// that id is rejected forever, whatever the record's status.
func (l *Ledger) Deposit(ctx context.Context, caller, paymentID, recipient string, deadline time.Time, amount int64) (*Record, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	now := l.clock.Now()
	if !deadline.After(now) {
		return nil, ErrInvalidDeadline
	}

	rec := &Record{
		PaymentID: paymentID,
		Sender:    caller,
		Recipient: recipient,
		Amount:    amount,
		Deadline:  deadline,
		Status:    StatusPending,
		CreatedAt: now,
	}

	ev := Event{
		Type:      EventDeposited,
		PaymentID: paymentID,
		Sender:    caller,
		Recipient: recipient,
		Amount:    amount,
		At:        now,
	}
	err := l.store.Create(ctx, rec, func(ctx context.Context) error {
		if err := l.treasury.TransferIn(ctx, caller, amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		return l.sink.Record(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("escrow deposited",
		zap.String("payment_id", paymentID),
		zap.String("sender", caller),
		zap.String("recipient", recipient),
		zap.Int64("amount", amount),
	)
	l.sink.Notify(ctx, ev)
	return rec, nil
}

// Release pays the record's amount to its recipient. Operator only, and only
// at or after the deadline: the boundary instant itself belongs to release.
func (l *Ledger) Release(ctx context.Context, caller, paymentID string) (*Record, error) {
	if err := l.operator.Authorize(caller); err != nil {
		return nil, err
	}
	now := l.clock.Now()

	var ev Event
	rec, err := l.store.Resolve(ctx, paymentID, StatusReleased, now, func(ctx context.Context, rec *Record) error {
		if now.Before(rec.Deadline) {
			return ErrDeadlineNotReached
		}
		if err := l.treasury.TransferOut(ctx, rec.Recipient, rec.Amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		ev = Event{
			Type:      EventReleased,
			PaymentID: paymentID,
			Sender:    rec.Sender,
			Recipient: rec.Recipient,
			Amount:    rec.Amount,
			At:        now,
		}
		return l.sink.Record(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("escrow released",
		zap.String("payment_id", paymentID),
		zap.String("recipient", rec.Recipient),
		zap.Int64("amount", rec.Amount),
	)
	l.sink.Notify(ctx, ev)
	return rec, nil
}

// Refund returns the record's amount to its sender. Operator only, and only
// strictly before the deadline.
func (l *Ledger) Refund(ctx context.Context, caller, paymentID string) (*Record, error) {
	if err := l.operator.Authorize(caller); err != nil {
		return nil, err
	}
	now := l.clock.Now()

	var ev Event
	rec, err := l.store.Resolve(ctx, paymentID, StatusRefunded, now, func(ctx context.Context, rec *Record) error {
		if !now.Before(rec.Deadline) {
			return ErrDeadlineReached
		}
		if err := l.treasury.TransferOut(ctx, rec.Sender, rec.Amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		ev = Event{
			Type:      EventRefunded,
			PaymentID: paymentID,
			Sender:    rec.Sender,
			Recipient: rec.Recipient,
			Amount:    rec.Amount,
			At:        now,
		}
		return l.sink.Record(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("escrow refunded",
		zap.String("payment_id", paymentID),
		zap.String("sender", rec.Sender),
		zap.Int64("amount", rec.Amount),
	)
	l.sink.Notify(ctx, ev)
	return rec, nil
}

// Get returns a snapshot of the record, or ErrRecordNotFound. Open to any
// caller, no side effects.
func (l *Ledger) Get(ctx context.Context, paymentID string) (*Record, error) {
	return l.store.Get(ctx, paymentID)
}
