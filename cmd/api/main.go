package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harvestline/backend/internal/app"
	"github.com/harvestline/backend/internal/infra/memory"
	"github.com/harvestline/backend/internal/infra/metrics"
	"github.com/harvestline/backend/internal/infra/postgres"
	infraRedis "github.com/harvestline/backend/internal/infra/redis"
	"github.com/harvestline/backend/internal/transport/httpapi"
	"github.com/harvestline/backend/internal/transport/httpapi/handler"
	"github.com/harvestline/backend/internal/transport/httpapi/middleware"
	"github.com/harvestline/backend/migrations"
	"github.com/harvestline/backend/pkg/config"
	"github.com/harvestline/backend/pkg/logger"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("Starting Harvestline API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store", cfg.StoreDriver,
	)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	checks := map[string]handler.Pinger{}

	// Storage backend
	var backend app.Backend
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("Using in-memory store; data is lost on restart")
		backend = memory.New()
	default:
		if cfg.MigrateOnStart {
			if err := migrations.Up(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			log.Info("Database migrations applied")
		}
		db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		log.Info("Database connection established")
		backend = db
		checks["database"] = db
	}

	opts := app.Options{
		WalletAdjustmentThreshold: cfg.Approval.WalletAdjustment,
		PayoutThreshold:           cfg.Approval.DistributePayouts,
		Metrics:                   metrics.New(),
		Logger:                    log,
	}

	// Idempotent response cache (optional)
	if cfg.RedisURL != "" {
		client, err := infraRedis.NewClient(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		cache := infraRedis.NewCache(client, cfg.IdempotencyCacheTTL, log)
		opts.Cache = cache
		checks["redis"] = cache
		log.Info("Redis connection established", "ttl", cfg.IdempotencyCacheTTL)
	} else {
		log.Warn("REDIS_URL not configured, idempotent responses are served from the database only")
	}

	application, err := app.New(backend, opts)
	if err != nil {
		return err
	}

	if cfg.BootstrapAdminEmail != "" {
		admin, err := application.Users.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
		if err != nil {
			return fmt.Errorf("failed to bootstrap admin: %w", err)
		}
		log.Info("Bootstrap administrator ready", "user_id", admin.ID)
	}

	jwtSvc := middleware.NewJWTService(cfg.JWTSecret)
	routerCfg := httpapi.NewConfig(application, jwtSvc, log)
	routerCfg.AllowedOrigins = cfg.AllowedOrigins
	routerCfg.HealthHandler = handler.NewHealthHandler(checks)
	routerCfg.RateLimit = middleware.RateLimit()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpapi.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
