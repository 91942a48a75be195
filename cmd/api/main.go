package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/rental-platform/backend/internal/config"
	"github.com/rental-platform/backend/internal/db"
	"github.com/rental-platform/backend/internal/escrow"
	"github.com/rental-platform/backend/internal/events"
	apphttp "github.com/rental-platform/backend/internal/http"
	"github.com/rental-platform/backend/internal/http/handlers"
	"github.com/rental-platform/backend/internal/repositories"
	"github.com/rental-platform/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	escrowRepo := repositories.NewEscrowRepo(pool)
	accountRepo := repositories.NewAccountRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	rentalRepo := repositories.NewRentalRepo(pool)
	reviewRepo := repositories.NewReviewRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Operator capability: the single account allowed to resolve escrows
	// and mutate the registries.
	operator := escrow.SingleOperator(cfg.OperatorAccount)

	// Services
	escrowService := services.NewEscrowService(escrowRepo, accountRepo, auditRepo, operator, publisher, log)
	rentalService := services.NewRentalService(rentalRepo, auditRepo, operator, publisher, log)
	reviewService := services.NewReviewService(reviewRepo, auditRepo, operator, publisher, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, log)
	rentalHandler := handlers.NewRentalHandler(rentalService, log)
	reviewHandler := handlers.NewReviewHandler(reviewService, log)
	accountHandler := handlers.NewAccountHandler(accountRepo, operator, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, escrowHandler, rentalHandler, reviewHandler, accountHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
