package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"jangbu/internal/amqp"
	"jangbu/internal/config"
	"jangbu/internal/drive"
	applog "jangbu/internal/log"
	"jangbu/internal/storage"
	"jangbu/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	slog.Info("Starting jangbu-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if !cfg.DriveEnabled() {
		slog.Info("Google Drive disabled - no credentials provided, nothing to sync")
		return
	}
	if cfg.AMQPURL == "" {
		slog.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker reads the ledger the server persisted; it never mutates it.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	driveClient, err := drive.NewFromEnv(ctx)
	if err != nil {
		slog.Error("Failed to initialize Google Drive client", "error", err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(repo, driveClient)

	// On startup, push anything that changed while the worker was down.
	slog.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		slog.Error("Failed startup sync check", "error", err)
		// Don't exit - the queue and backup scan will catch up
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqp.ConsumeForever(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			func(msg *amqp.LedgerSyncMessage) error {
				return syncWorker.HandleSyncMessage(ctx, msg)
			})
	})

	g.Go(func() error {
		return syncWorker.RunBackupScan(ctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Worker stopped gracefully")
}
