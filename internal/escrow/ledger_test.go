package escrow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSink collects committed events; all() returns only what Notify
// delivered, mirroring what downstream consumers would see.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Record(_ context.Context, ev Event) error { return nil }

func (s *recordingSink) Notify(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// faultySink fails the in-transaction write once armed.
type faultySink struct {
	recordingSink
	mu   sync.Mutex
	fail bool
}

func (s *faultySink) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = true
}

func (s *faultySink) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("audit store unavailable")
	}
	return nil
}

// failingTreasury rejects every outbound transfer.
type failingTreasury struct {
	*MemTreasury
}

func (t failingTreasury) TransferOut(ctx context.Context, to string, amount int64) error {
	return errors.New("payout endpoint unavailable")
}

const (
	operator  = "op-1"
	sender    = "renter-7"
	recipient = "owner-3"
)

func newTestLedger(funds int64) (*Ledger, *fakeClock, *MemTreasury, *recordingSink) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	treasury := NewMemTreasury(map[string]int64{sender: funds})
	sink := &recordingSink{}
	ledger := NewLedger(NewMemStore(), treasury, SingleOperator(operator), clock, sink, nil)
	return ledger, clock, treasury, sink
}

func TestDepositCreatesPendingRecord(t *testing.T) {
	ledger, clock, treasury, sink := newTestLedger(100)
	deadline := clock.Now().Add(100 * time.Second)

	rec, err := ledger.Deposit(context.Background(), sender, "p1", recipient, deadline, 50)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if rec.Status != StatusPending {
		t.Errorf("status = %q, want %q", rec.Status, StatusPending)
	}
	if rec.Sender != sender || rec.Recipient != recipient || rec.Amount != 50 {
		t.Errorf("record parties/amount wrong: %+v", rec)
	}
	if !rec.Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", rec.Deadline, deadline)
	}
	if got := treasury.Balance(sender); got != 50 {
		t.Errorf("sender balance = %d, want 50", got)
	}
	if got := treasury.Custody(); got != 50 {
		t.Errorf("custody = %d, want 50", got)
	}

	events := sink.all()
	if len(events) != 1 || events[0].Type != EventDeposited {
		t.Fatalf("events = %+v, want one %s", events, EventDeposited)
	}
	if events[0].PaymentID != "p1" || events[0].Amount != 50 {
		t.Errorf("deposited event payload wrong: %+v", events[0])
	}
}

func TestDepositValidation(t *testing.T) {
	ledger, clock, _, _ := newTestLedger(100)
	future := clock.Now().Add(time.Hour)

	tests := []struct {
		name     string
		deadline time.Time
		amount   int64
		wantErr  error
	}{
		{"zero amount", future, 0, ErrInvalidAmount},
		{"negative amount", future, -5, ErrInvalidAmount},
		{"deadline in past", clock.Now().Add(-time.Second), 10, ErrInvalidDeadline},
		{"deadline exactly now", clock.Now(), 10, ErrInvalidDeadline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Deposit(context.Background(), sender, "p2", recipient, tt.deadline, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Deposit = %v, want %v", err, tt.wantErr)
			}
			if _, err := ledger.Get(context.Background(), "p2"); !errors.Is(err, ErrRecordNotFound) {
				t.Errorf("record was created despite failed deposit")
			}
		})
	}
}

func TestDepositIsOneShotPerPaymentID(t *testing.T) {
	// A payment id slot can never be reused, whatever the first record's
	// status ended up as.
	resolutions := []struct {
		name    string
		resolve func(l *Ledger, c *fakeClock) error
	}{
		{"still pending", func(l *Ledger, c *fakeClock) error { return nil }},
		{"released", func(l *Ledger, c *fakeClock) error {
			c.Advance(200 * time.Second)
			_, err := l.Release(context.Background(), operator, "p1")
			return err
		}},
		{"refunded", func(l *Ledger, c *fakeClock) error {
			_, err := l.Refund(context.Background(), operator, "p1")
			return err
		}},
	}

	for _, tt := range resolutions {
		t.Run(tt.name, func(t *testing.T) {
			ledger, clock, _, _ := newTestLedger(1000)
			deadline := clock.Now().Add(100 * time.Second)
			if _, err := ledger.Deposit(context.Background(), sender, "p1", recipient, deadline, 50); err != nil {
				t.Fatalf("first deposit: %v", err)
			}
			if err := tt.resolve(ledger, clock); err != nil {
				t.Fatalf("resolve: %v", err)
			}

			_, err := ledger.Deposit(context.Background(), sender, "p1", recipient, clock.Now().Add(time.Hour), 50)
			if !errors.Is(err, ErrDuplicatePaymentID) {
				t.Errorf("second deposit = %v, want %v", err, ErrDuplicatePaymentID)
			}
		})
	}
}

func TestRefundBeforeDeadline(t *testing.T) {
	// Scenario: deposit at t with deadline t+100, resolve attempts at t+50.
	ledger, clock, treasury, sink := newTestLedger(100)
	ctx := context.Background()
	deadline := clock.Now().Add(100 * time.Second)
	if _, err := ledger.Deposit(ctx, sender, "p1", recipient, deadline, 50); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	clock.Advance(50 * time.Second)

	if _, err := ledger.Release(ctx, operator, "p1"); !errors.Is(err, ErrDeadlineNotReached) {
		t.Errorf("early release = %v, want %v", err, ErrDeadlineNotReached)
	}
	if _, err := ledger.Refund(ctx, "someone-else", "p1"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("refund by non-operator = %v, want %v", err, ErrUnauthorized)
	}

	rec, err := ledger.Refund(ctx, operator, "p1")
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if rec.Status != StatusRefunded {
		t.Errorf("status = %q, want %q", rec.Status, StatusRefunded)
	}
	if got := treasury.Balance(sender); got != 100 {
		t.Errorf("sender balance = %d, want full 100 back", got)
	}
	if got := treasury.Custody(); got != 0 {
		t.Errorf("custody = %d, want 0", got)
	}

	events := sink.all()
	if len(events) != 2 || events[1].Type != EventRefunded {
		t.Fatalf("events = %+v, want deposited then refunded", events)
	}
}

func TestReleaseAtDeadline(t *testing.T) {
	// The boundary instant itself authorizes release, not refund.
	ledger, clock, treasury, _ := newTestLedger(100)
	ctx := context.Background()
	deadline := clock.Now().Add(100 * time.Second)
	if _, err := ledger.Deposit(ctx, sender, "p1", recipient, deadline, 50); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	clock.Advance(100 * time.Second)

	if _, err := ledger.Refund(ctx, operator, "p1"); !errors.Is(err, ErrDeadlineReached) {
		t.Errorf("refund at deadline = %v, want %v", err, ErrDeadlineReached)
	}

	rec, err := ledger.Release(ctx, operator, "p1")
	if err != nil {
		t.Fatalf("Release at deadline: %v", err)
	}
	if rec.Status != StatusReleased {
		t.Errorf("status = %q, want %q", rec.Status, StatusReleased)
	}
	if got := treasury.Balance(recipient); got != 50 {
		t.Errorf("recipient balance = %d, want 50", got)
	}

	// Terminal: the mirror resolution is now rejected.
	if _, err := ledger.Refund(ctx, operator, "p1"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("refund after release = %v, want %v", err, ErrAlreadyResolved)
	}
	if _, err := ledger.Release(ctx, operator, "p1"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("double release = %v, want %v", err, ErrAlreadyResolved)
	}
}

func TestResolveUnknownRecord(t *testing.T) {
	ledger, _, _, _ := newTestLedger(0)
	ctx := context.Background()

	if _, err := ledger.Get(ctx, "unknown"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Get unknown = %v, want %v", err, ErrRecordNotFound)
	}
	if _, err := ledger.Release(ctx, operator, "unknown"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Release unknown = %v, want %v", err, ErrRecordNotFound)
	}
	if _, err := ledger.Refund(ctx, operator, "unknown"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Refund unknown = %v, want %v", err, ErrRecordNotFound)
	}
}

func TestUnauthorizedLeavesRecordUntouched(t *testing.T) {
	ledger, clock, treasury, _ := newTestLedger(100)
	ctx := context.Background()
	if _, err := ledger.Deposit(ctx, sender, "p1", recipient, clock.Now().Add(time.Minute), 50); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	clock.Advance(2 * time.Minute)

	if _, err := ledger.Release(ctx, sender, "p1"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("release by sender = %v, want %v", err, ErrUnauthorized)
	}
	if _, err := ledger.Release(ctx, recipient, "p1"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("release by recipient = %v, want %v", err, ErrUnauthorized)
	}

	rec, err := ledger.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != StatusPending {
		t.Errorf("status = %q, want still pending", rec.Status)
	}
	if treasury.Custody() != 50 {
		t.Errorf("custody = %d, want 50 still held", treasury.Custody())
	}
}

func TestDepositWithInsufficientFundsAborts(t *testing.T) {
	ledger, clock, treasury, sink := newTestLedger(10)
	ctx := context.Background()

	_, err := ledger.Deposit(ctx, sender, "p1", recipient, clock.Now().Add(time.Hour), 50)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("Deposit = %v, want %v", err, ErrTransferFailed)
	}
	if _, err := ledger.Get(ctx, "p1"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("record exists despite failed transfer-in")
	}
	if got := treasury.Balance(sender); got != 10 {
		t.Errorf("sender balance = %d, want untouched 10", got)
	}
	if len(sink.all()) != 0 {
		t.Errorf("events emitted for an aborted deposit: %+v", sink.all())
	}
}

func TestFailedPayoutLeavesRecordPending(t *testing.T) {
	// A resolution whose outbound transfer fails must not commit the
	// terminal status, otherwise funds are stranded in custody forever.
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	treasury := NewMemTreasury(map[string]int64{sender: 100})
	sink := &recordingSink{}
	ledger := NewLedger(NewMemStore(), failingTreasury{treasury}, SingleOperator(operator), clock, sink, nil)
	ctx := context.Background()

	if _, err := ledger.Deposit(ctx, sender, "p1", recipient, clock.Now().Add(time.Minute), 40); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	clock.Advance(2 * time.Minute)

	if _, err := ledger.Release(ctx, operator, "p1"); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("Release = %v, want %v", err, ErrTransferFailed)
	}

	rec, err := ledger.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != StatusPending {
		t.Errorf("status = %q, want pending after failed payout", rec.Status)
	}
	if treasury.Custody() != 40 {
		t.Errorf("custody = %d, want 40 still held", treasury.Custody())
	}
	if got := sink.all(); len(got) != 1 {
		t.Errorf("events = %+v, want only the deposit", got)
	}
}

func TestFailedEventWriteAbortsOperation(t *testing.T) {
	// The event write shares the state change's transaction: if the event
	// cannot be persisted, neither deposit nor resolution may commit.
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	treasury := NewMemTreasury(map[string]int64{sender: 100})
	sink := &faultySink{}
	ledger := NewLedger(NewMemStore(), treasury, SingleOperator(operator), clock, sink, nil)
	ctx := context.Background()

	if _, err := ledger.Deposit(ctx, sender, "p1", recipient, clock.Now().Add(time.Minute), 40); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	clock.Advance(2 * time.Minute)

	sink.arm()
	if _, err := ledger.Release(ctx, operator, "p1"); err == nil {
		t.Fatal("Release committed despite failed event write")
	}
	rec, err := ledger.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != StatusPending {
		t.Errorf("status = %q, want pending after failed event write", rec.Status)
	}

	if _, err := ledger.Deposit(ctx, sender, "p2", recipient, clock.Now().Add(time.Minute), 10); err == nil {
		t.Fatal("Deposit committed despite failed event write")
	}
	if _, err := ledger.Get(ctx, "p2"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("record exists despite failed event write")
	}
	if got := sink.all(); len(got) != 1 {
		t.Errorf("committed events = %d, want only the first deposit", len(got))
	}
}

func TestConcurrentResolutionIsExclusive(t *testing.T) {
	// Many racing release/refund attempts against one record: exactly one
	// may commit, and value is conserved.
	ledger, clock, treasury, sink := newTestLedger(100)
	ctx := context.Background()
	if _, err := ledger.Deposit(ctx, sender, "p1", recipient, clock.Now().Add(100*time.Second), 60); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	clock.Advance(100 * time.Second) // release window open, refund window closed

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Release(ctx, operator, "p1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, alreadyResolved int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyResolved):
			alreadyResolved++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("successful releases = %d, want exactly 1", succeeded)
	}
	if alreadyResolved != attempts-1 {
		t.Errorf("already-resolved = %d, want %d", alreadyResolved, attempts-1)
	}

	if got := treasury.Balance(recipient); got != 60 {
		t.Errorf("recipient balance = %d, want 60 paid exactly once", got)
	}
	if treasury.Custody() != 0 {
		t.Errorf("custody = %d, want 0", treasury.Custody())
	}
	if got := len(sink.all()); got != 2 {
		t.Errorf("events = %d, want deposit + single release", got)
	}
}

func TestValueConservationAcrossManyRecords(t *testing.T) {
	// deposited == released + refunded + still-in-custody at every step.
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	treasury := NewMemTreasury(map[string]int64{sender: 1000})
	ledger := NewLedger(NewMemStore(), treasury, SingleOperator(operator), clock, nil, nil)
	ctx := context.Background()

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		if _, err := ledger.Deposit(ctx, sender, id, recipient, clock.Now().Add(100*time.Second), 100); err != nil {
			t.Fatalf("Deposit %s: %v", id, err)
		}
	}
	if treasury.Custody() != 400 {
		t.Fatalf("custody = %d, want 400", treasury.Custody())
	}

	if _, err := ledger.Refund(ctx, operator, "a"); err != nil {
		t.Fatalf("Refund a: %v", err)
	}
	clock.Advance(150 * time.Second)
	if _, err := ledger.Release(ctx, operator, "b"); err != nil {
		t.Fatalf("Release b: %v", err)
	}

	pending := treasury.Custody()
	total := treasury.Balance(sender) + treasury.Balance(recipient) + pending
	if total != 1000 {
		t.Errorf("total value = %d, want 1000", total)
	}
	if pending != 200 {
		t.Errorf("custody = %d, want 200 for the two pending records", pending)
	}
}

func TestEventLogReconstructsState(t *testing.T) {
	ledger, clock, _, sink := newTestLedger(500)
	ctx := context.Background()

	if _, err := ledger.Deposit(ctx, sender, "p1", recipient, clock.Now().Add(time.Minute), 100); err != nil {
		t.Fatalf("Deposit p1: %v", err)
	}
	if _, err := ledger.Deposit(ctx, sender, "p2", recipient, clock.Now().Add(time.Minute), 200); err != nil {
		t.Fatalf("Deposit p2: %v", err)
	}
	if _, err := ledger.Refund(ctx, operator, "p2"); err != nil {
		t.Fatalf("Refund p2: %v", err)
	}

	// Replay: fold events into per-id status and check against the ledger.
	replayed := make(map[string]string)
	for _, ev := range sink.all() {
		switch ev.Type {
		case EventDeposited:
			replayed[ev.PaymentID] = StatusPending
		case EventReleased:
			replayed[ev.PaymentID] = StatusReleased
		case EventRefunded:
			replayed[ev.PaymentID] = StatusRefunded
		}
		if ev.PaymentID == "" || ev.Sender == "" || ev.Recipient == "" || ev.Amount == 0 {
			t.Errorf("event missing reconstruction data: %+v", ev)
		}
	}
	for id, want := range map[string]string{"p1": StatusPending, "p2": StatusRefunded} {
		rec, err := ledger.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get %s: %v", id, err)
		}
		if replayed[id] != want || rec.Status != want {
			t.Errorf("id %s: replayed %q, ledger %q, want %q", id, replayed[id], rec.Status, want)
		}
	}
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		expected bool
	}{
		{StatusPending, StatusReleased, true},
		{StatusPending, StatusRefunded, true},
		{StatusReleased, StatusRefunded, false},
		{StatusRefunded, StatusReleased, false},
		{StatusReleased, StatusPending, false},
		{StatusRefunded, StatusPending, false},
		{"nonexistent", StatusReleased, false},
		{StatusPending, "nonexistent", false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := IsValidTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	for _, status := range []string{StatusReleased, StatusRefunded} {
		if !IsTerminal(status) {
			t.Errorf("IsTerminal(%q) = false", status)
		}
		if transitions := ValidTransitions[status]; len(transitions) != 0 {
			t.Errorf("terminal status %q has transitions %v", status, transitions)
		}
	}
	if IsTerminal(StatusPending) {
		t.Error("IsTerminal(pending) = true")
	}
}
