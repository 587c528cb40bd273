// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/expense-bot, cmd/sync-worker, and cmd/notes-import.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"expensebot/internal/backend"
	"expensebot/internal/categorize"
	"expensebot/internal/config"
	"expensebot/internal/ledger"
	"expensebot/internal/log"
	"expensebot/internal/telemetry"
)

// SetupLogger builds the process logger for component at level and
// installs it as the slog default.
func SetupLogger(component, level string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it together with
// the requirement groups the command needs.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger, reqs ...config.Requirement) *config.Config {
	cfg := config.Load()
	ValidateConfig(logger, cfg, reqs...)
	return cfg
}

// ValidateConfig exits the process when cfg fails validation. Commands
// that override settings from flags call it after applying them.
func ValidateConfig(logger *log.Logger, cfg *config.Config, reqs ...config.Requirement) {
	if err := cfg.Validate(reqs...); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
}

// InitBackend creates the configured data backend. tweak may adjust the
// backend config before creation, e.g. to tag records with their source.
// Exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config, tweak func(*backend.Config)) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if tweak != nil {
		tweak(&bcfg)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res
}

// NewBuilder loads the category table (CATEGORIES_FILE or the built-in
// one) and returns the record builder plus the classifier for lookups.
func NewBuilder(logger *log.Logger, cfg *config.Config) (*ledger.Builder, *categorize.Classifier) {
	table := categorize.DefaultTable()
	if cfg.CategoriesFile != "" {
		loaded, err := categorize.LoadTableFile(cfg.CategoriesFile)
		if err != nil {
			logger.Error("Failed to load category table", log.FieldError, err, "path", cfg.CategoriesFile)
			os.Exit(1)
		}
		table = loaded
		logger.Info("Loaded category table", "path", cfg.CategoriesFile, log.FieldCount, len(table))
	}
	classifier := categorize.New(table)
	return ledger.NewBuilder(classifier, ledger.WithLocation(cfg.Location())), classifier
}

// InitTelemetry installs the Prometheus meter provider and creates the
// application counters. Metrics failures are logged and disable metrics.
func InitTelemetry(ctx context.Context, logger *log.Logger) (*telemetry.Metrics, func(context.Context) error) {
	noop := func(context.Context) error { return nil }

	shutdown, err := telemetry.Init(ctx)
	if err != nil {
		logger.Warn("Failed to initialize telemetry, metrics disabled", log.FieldError, err)
		return nil, noop
	}
	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		logger.Warn("Failed to create metrics, metrics disabled", log.FieldError, err)
		return nil, shutdown
	}
	return metrics, shutdown
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
