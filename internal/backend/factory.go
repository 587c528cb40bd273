package backend

import (
	"context"
	"errors"
	"fmt"

	"expensebot/internal/adapters"
	"expensebot/internal/amqp"
	"expensebot/internal/log"
	"expensebot/internal/services"
	gsheet "expensebot/internal/sheets/google"
	"expensebot/internal/sheets/memory"
	"expensebot/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentStorage),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	res := &BackendResult{Repo: repo, Ready: repo.Ping}

	// AMQP is optional: without it records wait for the pending sweep
	var publisher services.SyncPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync messages", log.FieldError, err)
		} else {
			res.AMQP = client
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	if config.Google.SpreadsheetID != "" {
		if err := f.attachSheets(ctx, config, res); err != nil {
			res.Cleanup = closeAll(res)
			_ = res.Close()
			return nil, err
		}
	}

	source := config.Source
	if source == "" {
		source = storage.SourceBot
	}
	service := services.NewRecordService(repo, publisher, source, f.logger)
	res.Ledger = adapters.NewSQLiteAdapter(repo, service)
	res.Cleanup = closeAll(res)

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", res.AMQP != nil,
		"pivot_enabled", res.Pivot != nil)
	return res, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	res := &BackendResult{}
	if err := f.attachSheets(ctx, config, res); err != nil {
		return nil, err
	}
	res.Ledger = res.Sheets

	f.logger.InfoContext(ctx, "Initialized Google Sheets backend", log.FieldSheetsRef, res.SheetURL)
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
	return &BackendResult{Ledger: store, Pivot: store}, nil
}

// attachSheets opens the spreadsheet and makes it the pivot source.
func (f *DefaultFactory) attachSheets(ctx context.Context, config Config, res *BackendResult) error {
	client, err := gsheet.New(ctx, config.Google)
	if err != nil {
		return fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if config.EnsureLayout {
		if err := client.EnsureLedgerLayout(ctx); err != nil {
			f.logger.WarnContext(ctx, "Failed to format ledger sheet", log.FieldError, err)
		}
	}
	res.Sheets = client
	res.Pivot = client
	res.SheetURL = client.URL()
	return nil
}

func closeAll(res *BackendResult) CleanupFunc {
	return func() error {
		var errs []error
		if res.AMQP != nil {
			if err := res.AMQP.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if res.Repo != nil {
			if err := res.Repo.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}
