package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/amqp"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/config"
	applog "github.com/alexbco/bot-whatsapp-contabilidad/internal/log"
)

// auditworker consumes movement-posted events and appends them to a
// per-period audit CSV, an independent trail of everything the ledger
// accepted.
func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting auditworker")

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	auditDir := filepath.Join(filepath.Dir(cfg.SQLiteDBPath), "audit")
	if err := os.MkdirAll(auditDir, 0755); err != nil {
		logger.Error("Failed to create audit directory", applog.FieldError, err.Error())
		os.Exit(1)
	}

	writer := &auditWriter{dir: auditDir}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = client.ConsumeMovementPosted(ctx, func(msg *amqp.MovementPostedMessage) error {
		if err := writer.append(msg); err != nil {
			return err
		}
		logger.Info("Movement audited",
			applog.FieldMovementID, msg.MovementID,
			applog.FieldPeriod, msg.Period,
			applog.FieldKind, msg.Kind)
		return nil
	})
	if err != nil && err != context.Canceled {
		logger.Error("Consumer exited with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Auditworker stopped gracefully")
}

// auditWriter appends one CSV row per event, one file per period.
type auditWriter struct {
	mu  sync.Mutex
	dir string
}

func (w *auditWriter) append(msg *amqp.MovementPostedMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := filepath.Join(w.dir, "movimientos-"+msg.Period+".csv")

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write([]string{"timestamp", "movement_id", "customer_id", "cliente", "tipo", "concepto", "importe_cents", "saldo_cents"}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{
		msg.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		strconv.FormatInt(msg.MovementID, 10),
		strconv.FormatInt(msg.CustomerID, 10),
		msg.CustomerName,
		msg.Kind,
		msg.Description,
		strconv.FormatInt(msg.AmountCents, 10),
		strconv.FormatInt(msg.NewBalanceCents, 10),
	}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
