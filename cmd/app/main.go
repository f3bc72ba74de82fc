// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"intelligrid-billing/internal/config"
	"intelligrid-billing/internal/domain/model"
	"intelligrid-billing/internal/domain/ports/adapter"
	"intelligrid-billing/internal/infra/api"
	pg "intelligrid-billing/internal/infra/db/postgres"
	"intelligrid-billing/internal/infra/gateway"
	"intelligrid-billing/internal/infra/logging"
	"intelligrid-billing/internal/infra/mail"
	"intelligrid-billing/internal/infra/metrics"
	red "intelligrid-billing/internal/infra/redis"
	"intelligrid-billing/internal/infra/sched"
	"intelligrid-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop mailer fallback)")
	flag.Parse()

	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	txManager := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	orderRepo := pg.NewPostgresOrderRepo(pool)
	userRepo := pg.NewPostgresUserRepo(pool)
	couponRepo := pg.NewPostgresCouponRepo(pool)
	webhookLogRepo := pg.NewPostgresWebhookLogRepo(pool)
	outboxRepo := pg.NewPostgresOutboxRepo(pool)
	notifLogRepo := pg.NewPostgresNotificationLogRepo(pool)

	// ---- Gateways ----
	gateways := map[model.Gateway]adapter.PaymentGateway{
		model.GatewayPayPal:   gateway.NewPayPalGateway(&cfg.Payment.PayPal, *logger),
		model.GatewayCashfree: gateway.NewCashfreeGateway(&cfg.Payment.Cashfree, *logger),
	}

	// ---- Mailer ----
	var mailer adapter.Mailer
	if cfg.Email.APIKey != "" {
		mailer = mail.NewResendMailer(&cfg.Email, *logger)
	} else {
		if !cfg.Runtime.Dev {
			logger.Warn().Msg("email.api_key not set; outbox emails will be suppressed")
		}
		mailer = mail.NewNoopMailer(*logger)
	}

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentUseCase(orderRepo, userRepo, outboxRepo, gateways, txManager, cfg.Payment.ReturnBaseURL, logger)
	couponUC := usecase.NewCouponUseCase(orderRepo, couponRepo, txManager, logger)
	webhookUC := usecase.NewWebhookUseCase(webhookLogRepo, paymentUC, gateways, logger)
	notifUC := usecase.NewNotificationUseCase(userRepo, notifLogRepo, outboxRepo, cfg.Scheduler.RenewalDaysAhead, logger)

	// ---- Workers ----
	renewalWorker := sched.NewRenewalWorker(notifUC, locker, cfg.Scheduler.RenewalInterval, cfg.Scheduler.RenewalInitialDelay, logger)
	outboxWorker := sched.NewOutboxWorker(outboxRepo, mailer, cfg.Scheduler.OutboxInterval, logger)
	reconciler := sched.NewReconciler(paymentUC, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.ReconcileStaleAfter, logger)
	go renewalWorker.Run(ctx)
	go outboxWorker.Run(ctx)
	go reconciler.Run(ctx)

	// ---- HTTP server ----
	pingers := map[string]api.Pinger{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
		"redis":    redisClient.Ping,
	}
	server := api.NewServer(&cfg.Server, paymentUC, couponUC, webhookUC, orderRepo, rateLimiter, pingers, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
