package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rental-platform/backend/internal/auth"
	"github.com/rental-platform/backend/internal/config"
	"go.uber.org/zap"
)

const CtxAccount = "account"

// AuthMiddleware extracts the caller account from a bearer token. The
// account string is the identity used as escrow sender and for the operator
// check.
func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxAccount, claims.Account)
		return c.Next()
	}
}

func GetAccount(c *fiber.Ctx) string {
	account, _ := c.Locals(CtxAccount).(string)
	return account
}
