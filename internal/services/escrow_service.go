package services

import (
	"context"
	"time"

	"github.com/rental-platform/backend/internal/escrow"
	"github.com/rental-platform/backend/internal/events"
	"github.com/rental-platform/backend/internal/models"
	"github.com/rental-platform/backend/internal/repositories"
	"go.uber.org/zap"
)

// EscrowService owns the custody ledger and fans its events out to the audit
// log and the Redis stream. All money-safety rules live in escrow.Ledger;
// this layer only adds persistence wiring and observability.
type EscrowService struct {
	ledger    *escrow.Ledger
	auditRepo *repositories.AuditRepo
	publisher events.Publisher
	log       *zap.Logger
}

func NewEscrowService(
	escrowRepo *repositories.EscrowRepo,
	accountRepo *repositories.AccountRepo,
	auditRepo *repositories.AuditRepo,
	operator escrow.Authorizer,
	publisher events.Publisher,
	log *zap.Logger,
) *EscrowService {
	s := &EscrowService{
		auditRepo: auditRepo,
		publisher: publisher,
		log:       log,
	}
	s.ledger = escrow.NewLedger(escrowRepo, accountRepo, operator, escrow.SystemClock(), s, log)
	return s
}

func (s *EscrowService) Deposit(ctx context.Context, caller, paymentID, recipient string, deadline time.Time, amount int64) (*escrow.Record, error) {
	return s.ledger.Deposit(ctx, caller, paymentID, recipient, deadline, amount)
}

func (s *EscrowService) Release(ctx context.Context, caller, paymentID string) (*escrow.Record, error) {
	return s.ledger.Release(ctx, caller, paymentID)
}

func (s *EscrowService) Refund(ctx context.Context, caller, paymentID string) (*escrow.Record, error) {
	return s.ledger.Refund(ctx, caller, paymentID)
}

func (s *EscrowService) Get(ctx context.Context, paymentID string) (*escrow.Record, error) {
	return s.ledger.Get(ctx, paymentID)
}

func (s *EscrowService) Events(ctx context.Context, paymentID string, limit, offset int) ([]models.AuditLog, error) {
	return s.auditRepo.GetByEntity(ctx, "escrow", paymentID, limit, offset)
}

// Record implements escrow.Sink. It runs on the transaction-scoped context,
// so the audit row commits or rolls back with the ledger state itself; a
// failed write aborts the whole operation.
func (s *EscrowService) Record(ctx context.Context, ev escrow.Event) error {
	// Deposits are attributed to the sender; resolutions always come from
	// the single operator.
	actorType := "user"
	var actor *string
	if ev.Type == escrow.EventReleased || ev.Type == escrow.EventRefunded {
		actorType = "operator"
	} else {
		sender := ev.Sender
		actor = &sender
	}

	return s.auditRepo.Log(ctx, models.AuditLog{
		ActorAccount: actor,
		ActorType:    actorType,
		Action:       ev.Type,
		EntityType:   "escrow",
		EntityID:     ev.PaymentID,
		Meta: map[string]any{
			"sender":    ev.Sender,
			"recipient": ev.Recipient,
			"amount":    ev.Amount,
		},
	})
}

// Notify implements escrow.Sink: publish the committed event on the escrow
// stream. A failed publish never unwinds ledger state; it is only logged.
func (s *EscrowService) Notify(ctx context.Context, ev escrow.Event) {
	if err := s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: ev.Type,
		Payload: map[string]any{
			"payment_id": ev.PaymentID,
			"sender":     ev.Sender,
			"recipient":  ev.Recipient,
			"amount":     ev.Amount,
			"at":         ev.At,
		},
	}); err != nil {
		s.log.Error("failed to publish escrow event", zap.String("payment_id", ev.PaymentID), zap.Error(err))
	}
}
