package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/amqp"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/bot"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/config"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/feejob"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/ledger"
	applog "github.com/alexbco/bot-whatsapp-contabilidad/internal/log"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/parser"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/reports"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/session"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/statement"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/storage"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/webhook"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/whatsapp"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentApp})
	applog.SetDefault(logger)

	logger.Info("Starting bot")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
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

	// AMQP is optional: without a broker the bot still runs, it just
	// stops announcing postings to the audit worker.
	var publisher ledger.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing",
				applog.FieldError, err.Error())
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized")
		}
	} else {
		logger.Info("AMQP disabled")
	}

	sink, err := reports.NewFileSink(cfg.ExportDir, cfg.PublicBaseURL)
	if err != nil {
		logger.Error("Failed to initialize report sink", applog.FieldError, err.Error())
		os.Exit(1)
	}

	receipts, err := whatsapp.NewReceiptStore(filepath.Join(filepath.Dir(cfg.SQLiteDBPath), "facturas"))
	if err != nil {
		logger.Error("Failed to initialize receipt store", applog.FieldError, err.Error())
		os.Exit(1)
	}

	svc := ledger.NewService(store, publisher, loc, logger)
	agg := statement.NewAggregator(store)
	channel := whatsapp.NewClient(cfg.WhatsAppToken, cfg.PhoneNumberID, logger)
	b := bot.New(parser.New(loc), svc, agg, session.NewStore(cfg.SessionTTL), channel, sink, logger)

	srv := webhook.NewServer(":"+cfg.Port, b, receipts, cfg.VerifyToken, cfg.ExportDir, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second

	job := feejob.New(store, svc, cfg.BillingDay, loc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Webhook server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := job.Run(gctx, cfg.FeeCheckInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Bot exited with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Bot stopped gracefully")
}
