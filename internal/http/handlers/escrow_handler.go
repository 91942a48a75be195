package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rental-platform/backend/internal/escrow"
	"github.com/rental-platform/backend/internal/http/dto"
	"github.com/rental-platform/backend/internal/middleware"
	"github.com/rental-platform/backend/internal/services"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, log: log}
}

// escrowStatusCode maps the ledger error taxonomy to HTTP statuses so
// clients can tell wrong-caller, bad-timing, already-resolved and not-found
// apart.
func escrowStatusCode(err error) int {
	switch {
	case errors.Is(err, escrow.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, escrow.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, escrow.ErrDuplicatePaymentID), errors.Is(err, escrow.ErrAlreadyResolved):
		return fiber.StatusConflict
	case errors.Is(err, escrow.ErrDeadlineNotReached), errors.Is(err, escrow.ErrDeadlineReached):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, escrow.ErrInvalidAmount), errors.Is(err, escrow.ErrInvalidDeadline):
		return fiber.StatusBadRequest
	case errors.Is(err, escrow.ErrTransferFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Deposit funds an escrow record. The caller account becomes the sender.
// POST /escrows
func (h *EscrowHandler) Deposit(c *fiber.Ctx) error {
	var req dto.DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.PaymentID == "" || req.Recipient == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "payment_id and recipient are required"})
	}

	caller := middleware.GetAccount(c)
	rec, err := h.escrowService.Deposit(c.Context(), caller, req.PaymentID, req.Recipient,
		time.Unix(req.DeadlineUnix, 0), req.Amount)
	if err != nil {
		h.log.Debug("deposit rejected", zap.String("payment_id", req.PaymentID), zap.Error(err))
		return c.Status(escrowStatusCode(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: rec})
}

// Get returns the escrow record, or 404 for an unknown payment id.
// GET /escrows/:paymentId
func (h *EscrowHandler) Get(c *fiber.Ctx) error {
	rec, err := h.escrowService.Get(c.Context(), c.Params("paymentId"))
	if err != nil {
		return c.Status(escrowStatusCode(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: rec})
}

// Release pays out to the recipient. Operator only, at or after deadline.
// POST /escrows/:paymentId/release
func (h *EscrowHandler) Release(c *fiber.Ctx) error {
	caller := middleware.GetAccount(c)
	rec, err := h.escrowService.Release(c.Context(), caller, c.Params("paymentId"))
	if err != nil {
		h.log.Debug("release rejected", zap.String("payment_id", c.Params("paymentId")), zap.Error(err))
		return c.Status(escrowStatusCode(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: rec})
}

// Refund returns custody to the sender. Operator only, strictly before
// deadline.
// POST /escrows/:paymentId/refund
func (h *EscrowHandler) Refund(c *fiber.Ctx) error {
	caller := middleware.GetAccount(c)
	rec, err := h.escrowService.Refund(c.Context(), caller, c.Params("paymentId"))
	if err != nil {
		h.log.Debug("refund rejected", zap.String("payment_id", c.Params("paymentId")), zap.Error(err))
		return c.Status(escrowStatusCode(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: rec})
}

// Events returns the audit trail for one payment id, oldest first.
// GET /escrows/:paymentId/events
func (h *EscrowHandler) Events(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	logs, err := h.escrowService.Events(c.Context(), c.Params("paymentId"), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to load events"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}
