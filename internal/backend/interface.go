package backend

import (
	"context"

	"expensebot/internal/amqp"
	"expensebot/internal/sheets"
	gsheet "expensebot/internal/sheets/google"
	"expensebot/internal/storage"
)

// Ledger is the record sink and report source every entry point shares.
type Ledger interface {
	sheets.RecordAppender
	sheets.BatchAppender
	sheets.LedgerReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult holds the wired backend. Optional parts are nil when the
// configuration does not provide them.
type BackendResult struct {
	Ledger Ledger
	// Pivot is nil when no pivot source is configured.
	Pivot sheets.PivotReader

	// Sheets is set whenever a spreadsheet is configured.
	Sheets *gsheet.Client
	// Repo and AMQP are set by the sqlite backend; AMQP may still be nil
	// when the broker was unreachable at startup.
	Repo *storage.SQLiteRepository
	AMQP *amqp.Client

	SheetURL string
	Ready    ReadyFunc
	Cleanup  CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// Source tags locally stored records, e.g. storage.SourceBot.
	Source string

	// Google Sheets; Google.SpreadsheetID empty means no spreadsheet
	Google gsheet.Options
	// EnsureLayout writes the ledger header and formatting at startup.
	EnsureLayout bool

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
