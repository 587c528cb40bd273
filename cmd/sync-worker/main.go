package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensebot/internal/backend"
	"expensebot/internal/cli"
	"expensebot/internal/config"
	"expensebot/internal/log"
	"expensebot/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting sync-worker")

	cfg := cli.LoadAndValidateConfig(logger, config.RequireSheets)

	ctx, stop := cli.SignalContext()
	defer stop()

	metrics, shutdownTelemetry := cli.InitTelemetry(ctx, logger)
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	// the worker always drains the local store, whatever the bot uses
	res := cli.InitBackend(ctx, logger, cfg, func(c *backend.Config) {
		c.Type = backend.SQLiteBackend
		c.EnsureLayout = true
	})
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()
	if res.Sheets == nil {
		logger.Error("Google Sheets client is required for the sync worker")
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(res.Repo, res.Sheets, metrics, cfg.SyncBatchSize)

	g, gctx := errgroup.WithContext(ctx)

	// the sweeper runs once at startup, then every SYNC_INTERVAL
	if err := syncWorker.Start(gctx, cfg.SyncInterval); err != nil {
		logger.Error("Failed to start sync sweeper", log.FieldError, err)
		os.Exit(1)
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return syncWorker.Stop(stopCtx)
	})

	if res.AMQP != nil {
		g.Go(func() error {
			return res.AMQP.ConsumeRecordSync(gctx, syncWorker.HandleSyncMessage)
		})
	} else {
		logger.Warn("AMQP unavailable, relying on the pending sweep only", "interval", cfg.SyncInterval)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Sync worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Sync worker shutdown complete")
}
