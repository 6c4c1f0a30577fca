package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FintechGT/empeno-backend/internal/auth"
	"github.com/FintechGT/empeno-backend/internal/config"
	"github.com/FintechGT/empeno-backend/internal/db"
	contractdomain "github.com/FintechGT/empeno-backend/internal/domain/contract"
	loandomain "github.com/FintechGT/empeno-backend/internal/domain/loan"
	paymentdomain "github.com/FintechGT/empeno-backend/internal/domain/payment"
	"github.com/FintechGT/empeno-backend/internal/http/handlers"
	"github.com/FintechGT/empeno-backend/internal/observability"
	postgresrepo "github.com/FintechGT/empeno-backend/internal/repository/postgres"
	"github.com/FintechGT/empeno-backend/internal/server"
	"github.com/FintechGT/empeno-backend/internal/ws"
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

	signer, err := contractdomain.NewEd25519SignerFromHex(cfg.ContractSigningKey)
	if err != nil {
		logger.Error("invalid contract signing key", "err", err)
		os.Exit(1)
	}

	loanRepo := postgresrepo.NewLoanRepository(pool)
	contractRepo := postgresrepo.NewContractRepository(pool)
	paymentRepo := postgresrepo.NewPaymentRepository(pool)
	outboxRepo := postgresrepo.NewOutboxRepository(pool)

	loanService := loandomain.NewService(loanRepo, contractRepo, outboxRepo, cfg.MoraDefaultDays)
	contractService := contractdomain.NewService(contractRepo, signerOrNil(signer))
	paymentService := paymentdomain.NewService(paymentRepo, contractRepo, cfg.MoraDefaultDays)

	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey)

	hub := ws.NewHub()
	notifier := ws.NewNotifier(postgresrepo.NewEventRepository(pool), hub, cfg.WSPollInterval)

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:          pool,
		LoanHandler:     handlers.NewLoanHandler(loanService),
		ContractHandler: handlers.NewContractHandler(contractService, loanService),
		PaymentHandler:  handlers.NewPaymentHandler(paymentService),
		AccrualHandler:  handlers.NewAccrualHandler(),
		WSHandler:       ws.NewHandler(hub),
		JWTManager:      jwtManager,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	notifierCtx, stopNotifier := context.WithCancel(context.Background())
	defer stopNotifier()
	go func() {
		if err := notifier.Run(notifierCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event notifier stopped", "err", err)
		}
	}()

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}

// signerOrNil keeps the typed-nil pointer out of the Signer interface when
// no key is configured.
func signerOrNil(s *contractdomain.Ed25519Signer) contractdomain.Signer {
	if s == nil {
		return nil
	}
	return s
}
