package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"spendtrack/internal/amqp"
	"spendtrack/internal/backup/google"
	"spendtrack/internal/config"
	applog "spendtrack/internal/log"
	"spendtrack/internal/storage"
	"spendtrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting spendtrack-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required - the worker consumes expense events")
		os.Exit(1)
	}
	if !cfg.BackupEnabled() {
		logger.Error("BACKUP_SPREADSHEET_ID is required - the worker has nowhere to write")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appender, err := google.New(ctx, cfg.BackupSpreadsheetID, cfg.BackupSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets backup", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets backup initialized",
		"spreadsheet_id", cfg.BackupSpreadsheetID,
		"sheet", cfg.BackupSheetName)

	w := worker.NewBackupWorker(repo, appender)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumeLoop(ctx, cfg, w, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

// consumeLoop keeps a consumer attached to the event queue, redialing
// after cfg.RetryInterval when the broker connection drops.
func consumeLoop(ctx context.Context, cfg *config.Config, w *worker.BackupWorker, logger *applog.Logger) error {
	for {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP, retrying", applog.FieldError, err, "retry_in", cfg.RetryInterval)
		} else {
			logger.Info("Consuming expense events", "queue", cfg.AMQPQueue)
			err = client.ConsumeEvents(ctx, w.HandleEvent)
			client.Close()
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return context.Canceled
			}
			logger.Error("Event consumption stopped, reconnecting", applog.FieldError, err, "retry_in", cfg.RetryInterval)
		}

		select {
		case <-ctx.Done():
			return context.Canceled
		case <-time.After(cfg.RetryInterval):
		}
	}
}
