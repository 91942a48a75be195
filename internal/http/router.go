package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rental-platform/backend/internal/config"
	"github.com/rental-platform/backend/internal/http/handlers"
	"github.com/rental-platform/backend/internal/middleware"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	escrowHandler *handlers.EscrowHandler,
	rentalHandler *handlers.RentalHandler,
	reviewHandler *handlers.ReviewHandler,
	accountHandler *handlers.AccountHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Auth (public)
	api.Post("/auth/token", authHandler.IssueToken)

	// Everything else requires a caller identity
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Escrow ledger
	protected.Post("/escrows", escrowHandler.Deposit)
	protected.Get("/escrows/:paymentId", escrowHandler.Get)
	protected.Post("/escrows/:paymentId/release", escrowHandler.Release)
	protected.Post("/escrows/:paymentId/refund", escrowHandler.Refund)
	protected.Get("/escrows/:paymentId/events", escrowHandler.Events)

	// Rental agreements
	protected.Post("/rentals", rentalHandler.Create)
	protected.Get("/rentals/:propertyId", rentalHandler.Get)
	protected.Post("/rentals/:propertyId/complete", rentalHandler.Complete)
	protected.Post("/rentals/:propertyId/cancel", rentalHandler.Cancel)

	// Reviews
	protected.Post("/reviews/:propertyId", reviewHandler.Submit)
	protected.Get("/reviews/:propertyId", reviewHandler.List)
	protected.Get("/reviews/:propertyId/average", reviewHandler.Average)
	protected.Post("/reviews/:propertyId/verify/:reviewId", reviewHandler.Verify)

	// Accounts
	protected.Get("/accounts/me", accountHandler.Balance)
	protected.Post("/accounts/credit", accountHandler.Credit)

	// WebSocket event feed
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
