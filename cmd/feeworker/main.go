package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/amqp"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/config"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/feejob"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/ledger"
	applog "github.com/alexbco/bot-whatsapp-contabilidad/internal/log"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/storage"
)

// feeworker runs the recurring fee job on its own, for deployments where
// the webhook process and the billing process are separated.
func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting feeworker")

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Failed to load timezone", applog.FieldError, err.Error())
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite store",
			applog.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	var publisher ledger.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing",
				applog.FieldError, err.Error())
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	svc := ledger.NewService(store, publisher, loc, logger)
	job := feejob.New(store, svc, cfg.BillingDay, loc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One pass on startup so a restart on the billing day catches up
	// without waiting a full interval.
	if out, err := job.RunOnce(ctx, time.Now()); err != nil {
		logger.Error("Initial fee run failed", applog.FieldError, err.Error())
	} else {
		logger.Info("Initial fee run complete",
			"applied", out.Applied, "already_charged", out.AlreadyCharged, "skipped", out.Skipped)
	}

	if err := job.Run(ctx, cfg.FeeCheckInterval); err != nil && err != context.Canceled {
		logger.Error("Fee job exited with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Feeworker stopped gracefully")
}
