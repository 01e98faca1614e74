// Package cli holds the bootstrap shared by cmd/finboard and
// cmd/finboard-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finboard/internal/amqp"
	"finboard/internal/backend"
	"finboard/internal/config"
	applog "finboard/internal/log"
	gsheet "finboard/internal/sheets/google"
	"finboard/internal/store"
)

// AMQPConnectTimeout bounds the initial broker connection attempts.
const AMQPConnectTimeout = 30 * time.Second

// LoadEnvFile loads .env (or the given files) for local development. Missing
// files are fine; variables already set in the environment win.
func LoadEnvFile(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadConfig reads and validates the environment.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     cfg.Level(),
		Component: component,
		Format:    cfg.LogFormat,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// OpenStore opens the configured transaction store.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	opts, err := backend.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.Open(ctx, opts)
}

// ConnectAMQP returns nil without error when AMQP is not configured.
func ConnectAMQP(ctx context.Context, cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		slog.InfoContext(ctx, "AMQP disabled - no AMQP_URL provided")
		return nil, nil
	}
	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, AMQPConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	slog.InfoContext(ctx, "AMQP client connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// SheetsPublisher returns nil without error when Google Sheets is not
// configured.
func SheetsPublisher(ctx context.Context, cfg *config.Config) (*gsheet.Publisher, error) {
	if !cfg.SheetsEnabled() {
		slog.InfoContext(ctx, "Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil, nil
	}
	creds, err := gsheet.LoadCredentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return nil, err
	}
	p, err := gsheet.NewPublisher(ctx, cfg.GoogleSpreadsheetID, creds)
	if err != nil {
		return nil, fmt.Errorf("create sheets publisher: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets publisher initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return p, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
