package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rental-platform/backend/internal/escrow"
	"github.com/rental-platform/backend/internal/events"
	"github.com/rental-platform/backend/internal/models"
	"go.uber.org/zap"
)

type fakeDeadlineStore struct {
	due    []escrow.Record
	marked map[string]bool
}

func newFakeDeadlineStore(due ...escrow.Record) *fakeDeadlineStore {
	return &fakeDeadlineStore{due: due, marked: make(map[string]bool)}
}

func (s *fakeDeadlineStore) ListDueForNotice(ctx context.Context, now time.Time, limit int) ([]escrow.Record, error) {
	var out []escrow.Record
	for _, rec := range s.due {
		if !s.marked[rec.PaymentID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakeDeadlineStore) MarkNotified(ctx context.Context, paymentID string) error {
	s.marked[paymentID] = true
	return nil
}

type fakeAudit struct {
	fail    bool
	entries []models.AuditLog
}

func (a *fakeAudit) Log(ctx context.Context, entry models.AuditLog) error {
	if a.fail {
		return errors.New("audit store unavailable")
	}
	a.entries = append(a.entries, entry)
	return nil
}

type fakePublisher struct {
	fail      bool
	published []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	if p.fail {
		return errors.New("redis unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func dueRecord(paymentID string) escrow.Record {
	return escrow.Record{
		PaymentID: paymentID,
		Sender:    "renter-7",
		Recipient: "owner-3",
		Amount:    50,
		Deadline:  time.Unix(1_700_000_000, 0),
		Status:    escrow.StatusPending,
	}
}

func TestSweepNotifiesThenMarks(t *testing.T) {
	store := newFakeDeadlineStore(dueRecord("p1"), dueRecord("p2"))
	audit := &fakeAudit{}
	pub := &fakePublisher{}
	notifier := NewDeadlineNotifier(store, audit, pub, 100, zap.NewNop())

	notifier.Sweep(context.Background(), time.Now())

	if len(audit.entries) != 2 || len(pub.published) != 2 {
		t.Fatalf("audit = %d, published = %d, want 2 each", len(audit.entries), len(pub.published))
	}
	if !store.marked["p1"] || !store.marked["p2"] {
		t.Errorf("marked = %v, want both records", store.marked)
	}
	if audit.entries[0].Action != events.EventEscrowDeadlineReached {
		t.Errorf("audit action = %q, want %q", audit.entries[0].Action, events.EventEscrowDeadlineReached)
	}

	// Nothing left to announce on the next pass.
	notifier.Sweep(context.Background(), time.Now())
	if len(pub.published) != 2 {
		t.Errorf("published = %d after second sweep, want still 2", len(pub.published))
	}
}

func TestSweepKeepsRecordEligibleWhenPublishFails(t *testing.T) {
	// The notified flag only flips after a delivered notice; a publish
	// failure must leave the record due for the next sweep.
	store := newFakeDeadlineStore(dueRecord("p1"))
	audit := &fakeAudit{}
	pub := &fakePublisher{fail: true}
	notifier := NewDeadlineNotifier(store, audit, pub, 100, zap.NewNop())

	notifier.Sweep(context.Background(), time.Now())
	if store.marked["p1"] {
		t.Fatal("record marked notified despite failed publish")
	}

	pub.fail = false
	notifier.Sweep(context.Background(), time.Now())
	if !store.marked["p1"] {
		t.Error("record not marked after successful retry")
	}
	if len(pub.published) != 1 {
		t.Errorf("published = %d, want 1", len(pub.published))
	}
}

func TestSweepSkipsPublishWhenAuditFails(t *testing.T) {
	store := newFakeDeadlineStore(dueRecord("p1"))
	audit := &fakeAudit{fail: true}
	pub := &fakePublisher{}
	notifier := NewDeadlineNotifier(store, audit, pub, 100, zap.NewNop())

	notifier.Sweep(context.Background(), time.Now())

	if len(pub.published) != 0 {
		t.Errorf("published = %d, want 0 when the audit write fails", len(pub.published))
	}
	if store.marked["p1"] {
		t.Error("record marked notified despite failed audit write")
	}
}
