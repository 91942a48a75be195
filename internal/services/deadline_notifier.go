package services

import (
	"context"
	"time"

	"github.com/rental-platform/backend/internal/escrow"
	"github.com/rental-platform/backend/internal/events"
	"github.com/rental-platform/backend/internal/models"
	"go.uber.org/zap"
)

// deadlineStore is the slice of the escrow repo the notifier needs.
type deadlineStore interface {
	ListDueForNotice(ctx context.Context, now time.Time, limit int) ([]escrow.Record, error)
	MarkNotified(ctx context.Context, paymentID string) error
}

type auditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// DeadlineNotifier announces pending escrows whose deadline has passed, so
// the operator knows release is now the authorized action. It never resolves
// records itself. A record is marked notified only after its notice went
// out; a failed audit write or publish leaves it eligible for the next
// sweep, so delivery is at-least-once.
type DeadlineNotifier struct {
	store     deadlineStore
	audit     auditLogger
	publisher events.Publisher
	batch     int
	log       *zap.Logger
}

func NewDeadlineNotifier(store deadlineStore, audit auditLogger, publisher events.Publisher, batch int, log *zap.Logger) *DeadlineNotifier {
	return &DeadlineNotifier{
		store:     store,
		audit:     audit,
		publisher: publisher,
		batch:     batch,
		log:       log,
	}
}

func (n *DeadlineNotifier) Sweep(ctx context.Context, now time.Time) {
	records, err := n.store.ListDueForNotice(ctx, now, n.batch)
	if err != nil {
		n.log.Error("deadline sweep failed", zap.Error(err))
		return
	}

	for _, rec := range records {
		if err := n.notify(ctx, rec); err != nil {
			n.log.Error("deadline notice failed",
				zap.String("payment_id", rec.PaymentID), zap.Error(err))
			continue
		}
		if err := n.store.MarkNotified(ctx, rec.PaymentID); err != nil {
			n.log.Error("failed to mark deadline notice",
				zap.String("payment_id", rec.PaymentID), zap.Error(err))
			continue
		}
		n.log.Info("escrow deadline reached",
			zap.String("payment_id", rec.PaymentID),
			zap.Time("deadline", rec.Deadline),
		)
	}
}

func (n *DeadlineNotifier) notify(ctx context.Context, rec escrow.Record) error {
	if err := n.audit.Log(ctx, models.AuditLog{
		ActorType:  "system",
		Action:     events.EventEscrowDeadlineReached,
		EntityType: "escrow",
		EntityID:   rec.PaymentID,
		Meta: map[string]any{
			"sender":    rec.Sender,
			"recipient": rec.Recipient,
			"amount":    rec.Amount,
			"deadline":  rec.Deadline,
		},
	}); err != nil {
		return err
	}

	return n.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: events.EventEscrowDeadlineReached,
		Payload: map[string]any{
			"payment_id": rec.PaymentID,
			"recipient":  rec.Recipient,
			"amount":     rec.Amount,
		},
	})
}
