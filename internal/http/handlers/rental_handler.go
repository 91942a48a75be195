package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rental-platform/backend/internal/escrow"
	"github.com/rental-platform/backend/internal/http/dto"
	"github.com/rental-platform/backend/internal/middleware"
	"github.com/rental-platform/backend/internal/repositories"
	"github.com/rental-platform/backend/internal/services"
	"go.uber.org/zap"
)

type RentalHandler struct {
	rentalService *services.RentalService
	log           *zap.Logger
}

func NewRentalHandler(rentalService *services.RentalService, log *zap.Logger) *RentalHandler {
	return &RentalHandler{rentalService: rentalService, log: log}
}

func rentalStatusCode(err error) int {
	switch {
	case errors.Is(err, escrow.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, repositories.ErrRentalNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repositories.ErrRentalExists), errors.Is(err, repositories.ErrRentalNotOpen):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// Create registers a rental agreement. Operator only.
// POST /rentals
func (h *RentalHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateRentalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.PropertyID == "" || req.Owner == "" || req.Renter == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "property_id, owner and renter are required"})
	}
	if req.Amount <= 0 || req.DurationSeconds <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "amount and duration_seconds must be positive"})
	}

	startTime := time.Now()
	if req.StartTime != nil {
		startTime = *req.StartTime
	}

	caller := middleware.GetAccount(c)
	rental, err := h.rentalService.Create(c.Context(), caller, req.PropertyID, req.Owner, req.Renter,
		req.Amount, req.DurationSeconds, startTime)
	if err != nil {
		h.log.Debug("rental create rejected", zap.String("property_id", req.PropertyID), zap.Error(err))
		return c.Status(rentalStatusCode(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: rental})
}

// GET /rentals/:propertyId
func (h *RentalHandler) Get(c *fiber.Ctx) error {
	rental, err := h.rentalService.Get(c.Context(), c.Params("propertyId"))
	if err != nil {
		return c.Status(rentalStatusCode(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: rental})
}

// POST /rentals/:propertyId/complete
func (h *RentalHandler) Complete(c *fiber.Ctx) error {
	caller := middleware.GetAccount(c)
	if err := h.rentalService.Complete(c.Context(), caller, c.Params("propertyId")); err != nil {
		return c.Status(rentalStatusCode(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// POST /rentals/:propertyId/cancel
func (h *RentalHandler) Cancel(c *fiber.Ctx) error {
	caller := middleware.GetAccount(c)
	if err := h.rentalService.Cancel(c.Context(), caller, c.Params("propertyId")); err != nil {
		return c.Status(rentalStatusCode(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
