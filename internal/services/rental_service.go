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

// RentalService is the rental-agreement registry: keyed records with an
// exists/open lifecycle, operator-gated except for reads. No custody or
// deadline logic lives here.
type RentalService struct {
	rentalRepo *repositories.RentalRepo
	auditRepo  *repositories.AuditRepo
	operator   escrow.Authorizer
	publisher  events.Publisher
	log        *zap.Logger
}

func NewRentalService(
	rentalRepo *repositories.RentalRepo,
	auditRepo *repositories.AuditRepo,
	operator escrow.Authorizer,
	publisher events.Publisher,
	log *zap.Logger,
) *RentalService {
	return &RentalService{
		rentalRepo: rentalRepo,
		auditRepo:  auditRepo,
		operator:   operator,
		publisher:  publisher,
		log:        log,
	}
}

func (s *RentalService) Create(ctx context.Context, caller, propertyID, owner, renter string, amount, durationSeconds int64, startTime time.Time) (*models.Rental, error) {
	if err := s.operator.Authorize(caller); err != nil {
		return nil, err
	}

	rental := &models.Rental{
		PropertyID:      propertyID,
		Owner:           owner,
		Renter:          renter,
		Amount:          amount,
		DurationSeconds: durationSeconds,
		StartTime:       startTime,
		Active:          true,
	}
	if err := s.rentalRepo.Create(ctx, rental); err != nil {
		return nil, err
	}

	s.audit(ctx, caller, events.EventRentalCreated, propertyID, map[string]any{
		"owner": owner, "renter": renter, "amount": amount,
	})
	return s.rentalRepo.Get(ctx, propertyID)
}

func (s *RentalService) Complete(ctx context.Context, caller, propertyID string) error {
	if err := s.operator.Authorize(caller); err != nil {
		return err
	}
	if err := s.rentalRepo.Complete(ctx, propertyID); err != nil {
		return err
	}
	s.audit(ctx, caller, events.EventRentalCompleted, propertyID, nil)
	return nil
}

func (s *RentalService) Cancel(ctx context.Context, caller, propertyID string) error {
	if err := s.operator.Authorize(caller); err != nil {
		return err
	}
	if err := s.rentalRepo.Cancel(ctx, propertyID); err != nil {
		return err
	}
	s.audit(ctx, caller, events.EventRentalCancelled, propertyID, nil)
	return nil
}

func (s *RentalService) Get(ctx context.Context, propertyID string) (*models.Rental, error) {
	return s.rentalRepo.Get(ctx, propertyID)
}

func (s *RentalService) audit(ctx context.Context, caller, action, propertyID string, meta map[string]any) {
	if err := s.auditRepo.Log(ctx, models.AuditLog{
		ActorAccount: &caller,
		ActorType:    "operator",
		Action:       action,
		EntityType:   "rental",
		EntityID:     propertyID,
		Meta:         meta,
	}); err != nil {
		s.log.Error("failed to write rental audit entry", zap.String("property_id", propertyID), zap.Error(err))
	}
	_ = s.publisher.Publish(ctx, events.StreamRegistry, events.Event{
		Type:    action,
		Payload: map[string]any{"property_id": propertyID},
	})
}
