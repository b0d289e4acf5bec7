package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"linkhealth/internal/api"
	"linkhealth/internal/config"
	"linkhealth/internal/monitor"
	"linkhealth/internal/probe"
	"linkhealth/internal/scheduler"
	"linkhealth/internal/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("application failed: %v", err)
	}
}

func run() error {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	// Create a context that is canceled on OS signals like SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("initializing sqlite database", zap.String("path", cfg.DatabaseURL))
	store, err := sqlite.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize sqlite storage: %w", err)
	}
	defer store.Close()

	// The link registry is an external collaborator. Without one wired in,
	// on-demand checks require an already-enabled record.
	resolver := monitor.ResolverFunc(func(ctx context.Context, linkID string) (string, error) {
		return "", fmt.Errorf("no link registry configured")
	})

	prober := probe.New(cfg.ProbeTimeout)
	service := monitor.NewService(store, prober, resolver, monitor.NewLogNotifier(logger), logger)
	sched := scheduler.New(store, service, cfg.TickInterval, cfg.MaxConcurrency, logger)
	server := api.NewServer(cfg.HTTPPort, service, logger)

	sched.Start()
	server.Start()

	logger.Info("application is running")
	<-ctx.Done()

	logger.Info("shutdown signal received, starting graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	// Stop the scheduler first to prevent new checks from starting.
	sched.Stop()

	// Then shut down the HTTP server, allowing in-flight requests to finish.
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown error: %w", err)
	}

	logger.Info("application shut down gracefully")
	return nil
}
