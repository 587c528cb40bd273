package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"expensebot/internal/core"

	_ "modernc.org/sqlite"
)

const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"

	SourceBot   = "bot"
	SourceNotes = "notes"

	// MaxSyncAttempts bounds retries of a failing record.
	MaxSyncAttempts = 5

	// SyncClaimLease is how long a claim keeps other syncers off a record.
	// A worker that dies mid-sync releases its records when the lease ends.
	SyncClaimLease = 5 * time.Minute
)

var (
	ErrRecordNotFound = errors.New("ledger record not found")
	ErrUserNotFound   = errors.New("user not found")
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// StoredRecord is a ledger record with its local sync bookkeeping.
type StoredRecord struct {
	ID           int64
	Record       core.LedgerRecord
	Source       string
	SyncStatus   string
	SyncAttempts int64
	SyncError    string
	SheetsRef    string
	CreatedAt    time.Time
	SyncedAt     time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between the bot and the sync worker
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveRecord stores a validated record as pending sync and returns its id.
func (r *SQLiteRepository) SaveRecord(ctx context.Context, rec core.LedgerRecord, source string) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}
	row, err := r.queries.CreateLedgerRecord(ctx, createParams(rec, source, r.now()))
	if err != nil {
		return 0, fmt.Errorf("create ledger record: %w", err)
	}

	slog.InfoContext(ctx, "Ledger record saved to SQLite",
		"id", row.ID,
		"category", row.Category,
		"amount", row.Amount,
		"date", row.Date,
		"source", source)

	return row.ID, nil
}

// Append implements sheets.RecordAppender
func (r *SQLiteRepository) Append(ctx context.Context, rec core.LedgerRecord) (string, error) {
	id, err := r.SaveRecord(ctx, rec, SourceBot)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// AppendBatch implements sheets.BatchAppender inside one transaction.
func (r *SQLiteRepository) AppendBatch(ctx context.Context, recs []core.LedgerRecord) (int, error) {
	ids, err := r.SaveBatch(ctx, recs, SourceNotes)
	return len(ids), err
}

// SaveBatch stores recs atomically and returns their ids in order.
func (r *SQLiteRepository) SaveBatch(ctx context.Context, recs []core.LedgerRecord, source string) ([]int64, error) {
	for i, rec := range recs {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if len(recs) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	now := r.now()
	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		row, err := q.CreateLedgerRecord(ctx, createParams(rec, source, now))
		if err != nil {
			return nil, fmt.Errorf("create ledger record: %w", err)
		}
		ids = append(ids, row.ID)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Ledger batch saved to SQLite", "count", len(ids), "source", source)
	return ids, nil
}

func (r *SQLiteRepository) GetRecord(ctx context.Context, id int64) (StoredRecord, error) {
	row, err := r.queries.GetLedgerRecord(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return StoredRecord{}, fmt.Errorf("get ledger record: %w", err)
	}
	return toStored(row)
}

// ReadLedger implements sheets.LedgerReader
func (r *SQLiteRepository) ReadLedger(ctx context.Context) ([]core.LedgerRecord, error) {
	rows, err := r.queries.ListLedgerRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger records: %w", err)
	}
	out := make([]core.LedgerRecord, 0, len(rows))
	for _, row := range rows {
		s, err := toStored(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable ledger row", "id", row.ID, "error", err)
			continue
		}
		out = append(out, s.Record)
	}
	return out, nil
}

// PendingSync returns unclaimed records not yet synced that still have
// retries left.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]StoredRecord, error) {
	rows, err := r.queries.GetPendingSyncRecords(ctx, MaxSyncAttempts, r.now().Unix(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync records: %w", err)
	}
	out := make([]StoredRecord, 0, len(rows))
	for _, row := range rows {
		s, err := toStored(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ClaimForSync reserves an unsynced record for one syncer until
// MarkSynced, MarkSyncError or the lease expiry. It reports false when the
// record is synced or held by someone else.
func (r *SQLiteRepository) ClaimForSync(ctx context.Context, id int64) (bool, error) {
	now := r.now()
	n, err := r.queries.ClaimLedgerRecord(ctx, id, now.Add(SyncClaimLease).Unix(), now.Unix())
	if err != nil {
		return false, fmt.Errorf("claim record: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, sheetsRef string) error {
	n, err := r.queries.MarkLedgerRecordSynced(ctx, id, sheetsRef, r.now())
	if err != nil {
		return fmt.Errorf("mark record synced: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}

	slog.InfoContext(ctx, "Ledger record marked as synced", "id", id, "ref", sheetsRef)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := r.queries.MarkLedgerRecordSyncError(ctx, id, msg); err != nil {
		return fmt.Errorf("mark record sync error: %w", err)
	}

	slog.WarnContext(ctx, "Ledger record marked with sync error", "id", id, "error", msg)
	return nil
}

// SyncCounts reports how many records sit in each sync state.
func (r *SQLiteRepository) SyncCounts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, 3)
	for _, status := range []string{SyncPending, SyncSynced, SyncError} {
		n, err := r.queries.CountLedgerRecordsByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("count %s records: %w", status, err)
		}
		out[status] = n
	}
	return out, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return core.User{
		ID:           row.ID,
		Username:     row.Username,
		Authorized:   row.Authorized,
		RegisteredAt: row.RegisteredAt,
	}, nil
}

// UpsertUser registers u, or updates the username and authorization of
// an existing user. RegisteredAt is kept from the first registration.
func (r *SQLiteRepository) UpsertUser(ctx context.Context, u core.User) error {
	if u.ID == 0 {
		return errors.New("user id is required")
	}
	registered := u.RegisteredAt
	if registered.IsZero() {
		registered = r.now()
	}
	err := r.queries.UpsertUser(ctx, UserRow{
		ID:           u.ID,
		Username:     u.Username,
		Authorized:   u.Authorized,
		RegisteredAt: registered,
	})
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]core.User, len(rows))
	for i, row := range rows {
		out[i] = core.User{ID: row.ID, Username: row.Username, Authorized: row.Authorized, RegisteredAt: row.RegisteredAt}
	}
	return out, nil
}

func createParams(rec core.LedgerRecord, source string, now time.Time) CreateLedgerRecordParams {
	return CreateLedgerRecordParams{
		Date:        rec.Date.String(),
		Category:    string(rec.Category),
		Description: rec.Description,
		Amount:      rec.Amount.String(),
		Uncleared:   rec.Uncleared,
		Source:      source,
		CreatedAt:   now.UTC(),
	}
}

func toStored(row LedgerRow) (StoredRecord, error) {
	date, err := civil.ParseDate(row.Date)
	if err != nil {
		return StoredRecord{}, fmt.Errorf("record %d date: %w", row.ID, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return StoredRecord{}, fmt.Errorf("record %d amount: %w", row.ID, err)
	}
	s := StoredRecord{
		ID: row.ID,
		Record: core.LedgerRecord{
			Date:        date,
			Category:    core.Category(row.Category),
			Description: row.Description,
			Amount:      amount,
			Uncleared:   row.Uncleared,
		},
		Source:       row.Source,
		SyncStatus:   row.SyncStatus,
		SyncAttempts: row.SyncAttempts,
		SyncError:    row.SyncError,
		SheetsRef:    row.SheetsRef,
		CreatedAt:    row.CreatedAt,
	}
	if row.SyncedAt.Valid {
		s.SyncedAt = row.SyncedAt.Time
	}
	return s, nil
}
