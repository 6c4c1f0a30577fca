package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FintechGT/empeno-backend/internal/config"
	"github.com/FintechGT/empeno-backend/internal/db"
	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
	"github.com/FintechGT/empeno-backend/internal/jobs"
	"github.com/FintechGT/empeno-backend/internal/observability"
	postgresrepo "github.com/FintechGT/empeno-backend/internal/repository/postgres"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	loanRepo := postgresrepo.NewLoanRepository(pool)
	contractRepo := postgresrepo.NewContractRepository(pool)
	outboxRepo := postgresrepo.NewOutboxRepository(pool)
	loanService := loandomain.NewService(loanRepo, contractRepo, outboxRepo, cfg.MoraDefaultDays)

	worker := jobs.NewWorker(outboxRepo, loanService)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("outbox worker starting",
		"batch_size", cfg.WorkerBatchSize,
		"poll_interval", cfg.WorkerPollInterval.String(),
	)
	if err := worker.Run(runCtx, cfg.WorkerBatchSize, cfg.WorkerPollInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("outbox worker stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("outbox worker stopped")
}
