package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensebot/internal/auth"
	"expensebot/internal/bot"
	"expensebot/internal/cache"
	"expensebot/internal/cli"
	"expensebot/internal/config"
	apphttp "expensebot/internal/http"
	"expensebot/internal/log"
	"expensebot/internal/report"
	"expensebot/internal/telegram"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, config.RequireBot)

	ctx, stop := cli.SignalContext()
	defer stop()

	metrics, shutdownTelemetry := cli.InitTelemetry(ctx, logger)
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown error", log.FieldError, err)
		}
	}()

	backend := cli.InitBackend(ctx, logger, cfg, nil)
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	builder, classifier := cli.NewBuilder(logger, cfg)

	tg, err := telegram.New(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("Failed to initialize Telegram client", log.FieldError, err)
		os.Exit(1)
	}

	// only the sqlite backend keeps a users table
	var users auth.UserRepository
	if backend.Repo != nil {
		users = backend.Repo
	}
	authService := auth.NewService(users, cfg.AllowedUserIDs)
	if authService.Closed() {
		logger.Warn("No allow-list or user table configured, every chat user will be refused")
	}

	caches := cache.NewManager()
	caches.Register(authService.Cache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	style, _ := report.ParseStyle(cfg.ReportStyle)
	router := bot.NewRouter(bot.Deps{
		Messenger: tg,
		Auth:      authService,
		Builder:   builder,
		Lookup:    classifier,
		Sink:      backend.Ledger,
		Ledger:    backend.Ledger,
		Pivot:     backend.Pivot,
		Formatter: report.NewFormatter(cfg.CurrencySymbol),
		Style:     style,
		Metrics:   metrics,
		Logger:    logger,
	})

	opts := apphttp.Options{
		Addr:               ":" + cfg.Port,
		Ready:              apphttp.ReadyFunc(backend.Ready),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(log.ComponentHTTP),
	}
	if cfg.TelegramMode == config.TelegramWebhook {
		opts.Webhook = apphttp.NewWebhookHandler(router, cfg.TelegramWebhookSecret)
	}
	srv := apphttp.NewServer(opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expense bot",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"telegram_mode", cfg.TelegramMode,
			"bot", tg.Username())
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.TelegramMode == config.TelegramPolling {
		g.Go(func() error {
			return tg.Poll(gctx, router.Handle)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Expense bot stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Expense bot stopped gracefully")
}
