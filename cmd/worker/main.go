package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rental-platform/backend/internal/config"
	"github.com/rental-platform/backend/internal/db"
	"github.com/rental-platform/backend/internal/events"
	"github.com/rental-platform/backend/internal/repositories"
	"github.com/rental-platform/backend/internal/services"
	"go.uber.org/zap"
)

// The worker announces pending escrows whose deadline has passed, so the
// operator knows release is now the authorized action. It never resolves
// records itself; that stays an explicit operator decision.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	escrowRepo := repositories.NewEscrowRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)
	notifier := services.NewDeadlineNotifier(escrowRepo, auditRepo, publisher, cfg.DeadlineSweepBatch, log)

	log.Info("worker started", zap.Duration("sweep_interval", cfg.DeadlineSweepInterval))

	sweepTicker := time.NewTicker(cfg.DeadlineSweepInterval)
	defer sweepTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			notifier.Sweep(ctx, time.Now())
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		}
	}
}
