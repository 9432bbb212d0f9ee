package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Priya8975/event-console/internal/api"
	"github.com/Priya8975/event-console/internal/auth"
	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/config"
	"github.com/Priya8975/event-console/internal/engine"
	"github.com/Priya8975/event-console/internal/metrics"
	"github.com/Priya8975/event-console/internal/payments"
	"github.com/Priya8975/event-console/internal/store"
	"github.com/Priya8975/event-console/internal/websocket"
	"github.com/Priya8975/event-console/internal/wizard"
	"github.com/Priya8975/event-console/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	authCfg, err := auth.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load auth config", "error", err)
		os.Exit(1)
	}

	// Initialize PostgreSQL
	ctx := context.Background()
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Initialize Redis
	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	logger.Info("connected to Redis")
	rdb := redisStore.Client()

	stripeGateway, err := payments.NewStripeGateway(cfg.StripeSecretKey, logger)
	if err != nil {
		logger.Error("failed to configure stripe", "error", err)
		os.Exit(1)
	}
	breaker := engine.NewCircuitBreaker(rdb, cfg.StripeBreakerThreshold, cfg.StripeBreakerCooldown, logger)
	gateway := payments.Guard(stripeGateway, breaker)

	clk := clock.NewSystem()
	m := metrics.New(prometheus.NewRegistry())

	hub := websocket.NewHub(logger, cfg.AllowedOrigins)
	go hub.Run()

	wizards := wizard.NewManager(wizard.NewRedisDraftStore(rdb, cfg.DraftMaxAge), clk, cfg.DraftMaxAge, logger)
	queue := engine.NewWebhookQueue(rdb, logger)
	limiter := engine.NewRateLimiter(rdb, logger)

	// Stripe event pipeline: dispatcher -> pool -> processor
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	pollCtx, stopPolling := context.WithCancel(workerCtx)
	defer stopPolling()

	processor := worker.NewProcessor(pgStore, queue, hub, m, clk, logger)
	pool := worker.NewPool(cfg.NumWorkers, processor, logger)
	pool.Start(workerCtx)

	dispatcher := worker.NewDispatcher(rdb, pool, logger, m.SetQueueDepth)
	sweeper := worker.NewSweeper(pgStore, clk, cfg.OverdueSweepEvery, m, logger)

	var background sync.WaitGroup
	background.Add(2)
	go func() {
		defer background.Done()
		dispatcher.Start(pollCtx)
	}()
	go func() {
		defer background.Done()
		sweeper.Start(pollCtx)
	}()

	router := api.NewRouter(api.Deps{
		Store:    pgStore,
		Verifier: auth.NewVerifier(authCfg, nil),
		Gateway:  gateway,
		Webhooks: queue,
		Limiter:  limiter,
		Wizards:  wizards,
		Hub:      hub,
		Metrics:  m,
		Clock:    clk,
		Config:   cfg,
		Health: map[string]api.HealthCheck{
			"postgres": pgStore.Ping,
			"redis":    redisStore.Ping,
		},
		Logger: logger,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// The dispatcher must stop submitting before the pool closes its channel;
	// jobs already handed to workers finish on the live worker context.
	stopPolling()
	background.Wait()
	pool.Stop()
	cancelWorkers()

	wizards.Flush()

	logger.Info("server stopped")
}
