package adapters

import (
	"context"

	"expensebot/internal/core"
	"expensebot/internal/services"
	"expensebot/internal/storage"
)

// SQLiteAdapter exposes the local store as a ledger: writes go through the
// RecordService so they are queued for the sheet sync, reads come straight
// from SQLite.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.RecordService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.RecordService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// Append implements sheets.RecordAppender
func (a *SQLiteAdapter) Append(ctx context.Context, r core.LedgerRecord) (string, error) {
	return a.service.Append(ctx, r)
}

// AppendBatch implements sheets.BatchAppender
func (a *SQLiteAdapter) AppendBatch(ctx context.Context, rs []core.LedgerRecord) (int, error) {
	return a.service.AppendBatch(ctx, rs)
}

// ReadLedger implements sheets.LedgerReader
func (a *SQLiteAdapter) ReadLedger(ctx context.Context) ([]core.LedgerRecord, error) {
	return a.storage.ReadLedger(ctx)
}
