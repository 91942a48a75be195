package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rental-platform/backend/internal/escrow"
	"github.com/rental-platform/backend/internal/http/dto"
	"github.com/rental-platform/backend/internal/middleware"
	"github.com/rental-platform/backend/internal/models"
	"github.com/rental-platform/backend/internal/repositories"
	"github.com/rental-platform/backend/internal/services"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
	log           *zap.Logger
}

func NewReviewHandler(reviewService *services.ReviewService, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, log: log}
}

// Submit appends a review. Open to any authenticated caller.
// POST /reviews/:propertyId
func (h *ReviewHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	author := middleware.GetAccount(c)
	review, err := h.reviewService.Submit(c.Context(), author, c.Params("propertyId"), req.Rating, req.Comment)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: review})
}

// GET /reviews/:propertyId
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	reviews, err := h.reviewService.List(c.Context(), c.Params("propertyId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to load reviews"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: reviews})
}

// GET /reviews/:propertyId/average
func (h *ReviewHandler) Average(c *fiber.Ctx) error {
	propertyID := c.Params("propertyId")
	reviews, err := h.reviewService.List(c.Context(), propertyID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to load reviews"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.AverageRatingResponse{
		PropertyID:    propertyID,
		AverageRating: models.AverageRating(reviews),
		ReviewCount:   len(reviews),
	}})
}

// Verify marks a review verified. Operator only.
// POST /reviews/:propertyId/verify/:reviewId
func (h *ReviewHandler) Verify(c *fiber.Ctx) error {
	reviewID, err := uuid.Parse(c.Params("reviewId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid review id"})
	}

	caller := middleware.GetAccount(c)
	if err := h.reviewService.Verify(c.Context(), caller, c.Params("propertyId"), reviewID); err != nil {
		code := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, escrow.ErrUnauthorized):
			code = fiber.StatusForbidden
		case errors.Is(err, repositories.ErrReviewNotFound):
			code = fiber.StatusNotFound
		}
		return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
