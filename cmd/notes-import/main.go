package main

import (
	"context"
	"flag"
	"os"
	"time"

	"expensebot/internal/backend"
	"expensebot/internal/bot"
	"expensebot/internal/cli"
	"expensebot/internal/config"
	"expensebot/internal/ledger"
	"expensebot/internal/log"
	"expensebot/internal/notes"
	"expensebot/internal/services"
	"expensebot/internal/storage"
	"expensebot/internal/telegram"
)

func main() {
	var (
		once   = flag.Bool("once", false, "run a single import and exit")
		dryRun = flag.Bool("dry-run", false, "process notes and write the CSV without uploading")
		desc   = flag.Bool("desc", false, "upload newest dates first")
		out    = flag.String("out", "", "processed CSV path (overrides NOTES_OUTPUT_CSV)")
		input  = flag.String("input", "", "notes export file or Takeout folder (overrides NOTES_EXPORT_PATH)")
	)
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentImport, os.Getenv("LOG_LEVEL"))

	cfg := loadConfig(logger, *input)

	ctx, stop := cli.SignalContext()
	defer stop()

	metrics, shutdownTelemetry := cli.InitTelemetry(ctx, logger)
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	opts := services.ImportOptions{
		DryRun:       *dryRun || cfg.ImportDryRun,
		ArtifactPath: cfg.NotesOutputCSV,
		NotifyChatID: cfg.TelegramNotifyChatID,
	}
	if *out != "" {
		opts.ArtifactPath = *out
	}
	if *desc {
		opts.Order = ledger.Descending
	}

	var sink backend.Ledger
	sheetURL := ""
	if !opts.DryRun {
		res := cli.InitBackend(ctx, logger, cfg, func(c *backend.Config) {
			c.Source = storage.SourceNotes
		})
		defer func() {
			if err := res.Close(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}()
		sink = res.Ledger
		sheetURL = res.SheetURL
	}

	var notifier services.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramNotifyChatID != 0 {
		tg, err := telegram.New(cfg.TelegramBotToken)
		if err != nil {
			logger.Warn("Telegram unavailable, import notifications disabled", log.FieldError, err)
		} else {
			notifier = bot.NewSyncNotifier(tg, sheetURL, cfg.RunLogsURL)
		}
	}

	builder, _ := cli.NewBuilder(logger, cfg)
	importer := services.NewImporter(builder, sink, notifier, metrics, opts, logger)

	if *once {
		if _, err := runImport(ctx, logger, importer, cfg.NotesExportPath); err != nil {
			os.Exit(1)
		}
		return
	}

	// interval mode re-imports only when the export changed since the
	// last successful run
	var lastImported time.Time
	tick := func() {
		info, err := os.Stat(cfg.NotesExportPath)
		if err != nil {
			logger.Error("Notes export unavailable", log.FieldError, err, "path", cfg.NotesExportPath)
			return
		}
		if !info.ModTime().After(lastImported) {
			logger.Debug("Notes export unchanged, skipping import", "modified", info.ModTime())
			return
		}
		if _, err := runImport(ctx, logger, importer, cfg.NotesExportPath); err == nil {
			lastImported = info.ModTime()
		}
	}

	logger.Info("Starting notes import loop", "interval", cfg.ImportInterval, "path", cfg.NotesExportPath)
	ticker := time.NewTicker(cfg.ImportInterval)
	defer ticker.Stop()
	tick()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Notes import stopped")
			return
		case <-ticker.C:
			tick()
		}
	}
}

// loadConfig reads the environment and lets a non-empty input flag replace
// NOTES_EXPORT_PATH before validation.
func loadConfig(logger *log.Logger, input string) *config.Config {
	cfg := config.Load()
	if input != "" {
		cfg.NotesExportPath = input
	}
	cli.ValidateConfig(logger, cfg, config.RequireNotes)
	return cfg
}

func runImport(ctx context.Context, logger *log.Logger, importer *services.Importer, path string) (services.ImportResult, error) {
	batch, err := notes.Load(path)
	if err != nil {
		logger.Error("Failed to load notes export", log.FieldError, err, "path", path)
		return services.ImportResult{}, err
	}
	res, err := importer.Run(ctx, batch)
	if err != nil {
		logger.Error("Notes import failed", log.FieldError, err, "batch_id", res.BatchID)
		return res, err
	}
	logger.Info("Notes import finished",
		"batch_id", res.BatchID,
		"entries", len(res.Entries),
		"uploaded", res.Uploaded,
		"dry_run", res.DryRun)
	return res, nil
}
