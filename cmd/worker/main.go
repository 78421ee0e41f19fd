package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	zlog "github.com/rs/zerolog/log"

	"keyline/internal/api"
	"keyline/internal/engine/pricing"
	"keyline/internal/engine/renewals"
	"keyline/internal/engine/webhooks"
	"keyline/internal/jobs"
	"keyline/internal/pkg/logger"
	"keyline/internal/platform/chainrpc"
	"keyline/internal/platform/config"
	"keyline/internal/platform/database"
	"keyline/internal/platform/repositories"
	"keyline/internal/platform/storage"
	"keyline/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	hookRepo := repositories.NewHookRepository(db)
	eventRepo := repositories.NewHookEventRepository(db)
	subRepo := repositories.NewKeySubscriptionRepository(db)
	renewalRepo := repositories.NewKeyRenewalRepository(db)
	metadataRepo := repositories.NewUserMetadataRepository(db)

	// Webhook delivery
	notifier := webhooks.NewNotifier(cfg.Webhooks.Timeout)
	health := webhooks.NewHealthTracker(eventRepo)
	orchestrator := webhooks.NewOrchestrator(notifier, health, eventRepo, webhooks.RetryPolicy{
		Retries:      cfg.Webhooks.Retries,
		BackoffMin:   cfg.Webhooks.BackoffMin,
		BackoffCap:   cfg.Webhooks.BackoffCap,
		RetryCeiling: cfg.Webhooks.RetryCeiling,
	})

	// Renewals
	chain := chainrpc.NewClient(cfg.Chain, cfg.Networks)
	oracle := pricing.NewHTTPOracle(cfg.Pricing.BaseURL, cfg.Pricing.Timeout)
	engine := renewals.NewEngine(chain, oracle, cfg.Renewals.MaxCostCents)
	executor := renewals.NewExecutor(engine, chain, renewalRepo)

	store, err := storage.New(ctx, cfg.Export)
	if err != nil {
		log.Fatalf("Failed to configure export storage: %v", err)
	}

	// Jobs
	registry := jobs.NewRegistry()
	register := func(job jobs.Job) {
		if err := registry.Register(job); err != nil {
			log.Fatalf("Failed to register job: %v", err)
		}
	}
	register(workers.NewRenewalSweep(executor, subRepo, cfg.Networks, cfg.Env, cfg.Renewals.Schedule).Job())
	register(workers.NewRenewalKeyJob(executor).Job())
	register(workers.NewBalanceMonitor(chain, oracle, cfg.Networks, cfg.Monitor.MinBalanceCents, cfg.Monitor.Schedule).Job())
	register(workers.NewFanoutSweep(hookRepo, orchestrator).Job())
	register(workers.NewExport(chain, store, cfg.Export.PageSize).Job())
	register(workers.NewSendEmail(cfg.Email).Job())
	register(workers.NewBulkEmail(metadataRepo, registry).Job())

	runner := cron.New()
	if err := registry.Schedule(ctx, runner); err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}
	runner.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(db, registry),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		zlog.Info().Str("addr", server.Addr).Strs("jobs", registry.Names()).Msg("worker started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Error().Err(err).Msg("ops server failed")
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	<-runner.Stop().Done()
}
