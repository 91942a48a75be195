package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rental-platform/backend/internal/escrow"
	"github.com/rental-platform/backend/internal/http/dto"
	"github.com/rental-platform/backend/internal/middleware"
	"github.com/rental-platform/backend/internal/repositories"
	"go.uber.org/zap"
)

type AccountHandler struct {
	accountRepo *repositories.AccountRepo
	operator    escrow.Authorizer
	log         *zap.Logger
}

func NewAccountHandler(accountRepo *repositories.AccountRepo, operator escrow.Authorizer, log *zap.Logger) *AccountHandler {
	return &AccountHandler{accountRepo: accountRepo, operator: operator, log: log}
}

// Balance returns the caller's account balance.
// GET /accounts/me
func (h *AccountHandler) Balance(c *fiber.Ctx) error {
	account := middleware.GetAccount(c)
	balance, err := h.accountRepo.Balance(c.Context(), account)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to load balance"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BalanceResponse{Account: account, Balance: balance}})
}

// Credit tops up an account. Operator only.
// POST /accounts/credit
func (h *AccountHandler) Credit(c *fiber.Ctx) error {
	var req dto.CreditAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Account == "" || req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "account and positive amount are required"})
	}

	caller := middleware.GetAccount(c)
	if err := h.operator.Authorize(caller); err != nil {
		if errors.Is(err, escrow.ErrUnauthorized) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	if err := h.accountRepo.Credit(c.Context(), req.Account, req.Amount); err != nil {
		h.log.Error("credit failed", zap.String("account", req.Account), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to credit account"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
