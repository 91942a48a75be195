package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rental-platform/backend/internal/auth"
	"github.com/rental-platform/backend/internal/config"
	"github.com/rental-platform/backend/internal/http/dto"
	"go.uber.org/zap"
)

type AuthHandler struct {
	cfg *config.Config
	log *zap.Logger
}

func NewAuthHandler(cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, log: log}
}

// IssueToken mints a bearer token for an account name. Identity here is a
// shared-secret capability, not real authentication; production deployments
// put an identity provider in front of this.
// POST /auth/token
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.IssueTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Account == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "account is required"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, req.Account, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to sign token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to issue token"})
	}
	return c.JSON(dto.TokenResponse{Token: token})
}
