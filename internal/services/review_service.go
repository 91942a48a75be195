package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rental-platform/backend/internal/escrow"
	"github.com/rental-platform/backend/internal/events"
	"github.com/rental-platform/backend/internal/models"
	"github.com/rental-platform/backend/internal/repositories"
	"go.uber.org/zap"
)

// ReviewService is the append-only review registry: anyone may submit,
// verification is operator-only.
type ReviewService struct {
	reviewRepo *repositories.ReviewRepo
	auditRepo  *repositories.AuditRepo
	operator   escrow.Authorizer
	publisher  events.Publisher
	log        *zap.Logger
}

func NewReviewService(
	reviewRepo *repositories.ReviewRepo,
	auditRepo *repositories.AuditRepo,
	operator escrow.Authorizer,
	publisher events.Publisher,
	log *zap.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		auditRepo:  auditRepo,
		operator:   operator,
		publisher:  publisher,
		log:        log,
	}
}

func (s *ReviewService) Submit(ctx context.Context, author, propertyID string, rating int, comment string) (*models.Review, error) {
	if !models.IsValidRating(rating) {
		return nil, fmt.Errorf("rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	if strings.TrimSpace(comment) == "" {
		return nil, fmt.Errorf("comment must not be empty")
	}

	review := &models.Review{
		PropertyID: propertyID,
		Author:     author,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.reviewRepo.Insert(ctx, review); err != nil {
		return nil, err
	}

	if err := s.auditRepo.Log(ctx, models.AuditLog{
		ActorAccount: &author,
		ActorType:    "user",
		Action:       events.EventReviewSubmitted,
		EntityType:   "review",
		EntityID:     propertyID,
		Meta:         map[string]any{"review_id": review.ID.String(), "rating": rating},
	}); err != nil {
		s.log.Error("failed to write review audit entry", zap.String("property_id", propertyID), zap.Error(err))
	}
	_ = s.publisher.Publish(ctx, events.StreamRegistry, events.Event{
		Type:    events.EventReviewSubmitted,
		Payload: map[string]any{"property_id": propertyID, "review_id": review.ID.String(), "rating": rating},
	})

	return review, nil
}

func (s *ReviewService) Verify(ctx context.Context, caller, propertyID string, reviewID uuid.UUID) error {
	if err := s.operator.Authorize(caller); err != nil {
		return err
	}
	if err := s.reviewRepo.Verify(ctx, propertyID, reviewID); err != nil {
		return err
	}

	if err := s.auditRepo.Log(ctx, models.AuditLog{
		ActorAccount: &caller,
		ActorType:    "operator",
		Action:       events.EventReviewVerified,
		EntityType:   "review",
		EntityID:     propertyID,
		Meta:         map[string]any{"review_id": reviewID.String()},
	}); err != nil {
		s.log.Error("failed to write review audit entry", zap.String("property_id", propertyID), zap.Error(err))
	}
	return nil
}

func (s *ReviewService) List(ctx context.Context, propertyID string) ([]models.Review, error) {
	return s.reviewRepo.ListByProperty(ctx, propertyID)
}
