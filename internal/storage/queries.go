package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// LedgerRow mirrors the ledger_records table.
type LedgerRow struct {
	ID           int64
	Date         string
	Category     string
	Description  string
	Amount       string
	Uncleared    bool
	Source       string
	SyncStatus   string
	SyncAttempts int64
	SyncError    string
	SheetsRef    string
	CreatedAt    time.Time
	SyncedAt     sql.NullTime
}

type UserRow struct {
	ID           int64
	Username     string
	Authorized   bool
	RegisteredAt time.Time
}

const ledgerColumns = `id, date, category, description, amount, uncleared, source,
       sync_status, sync_attempts, sync_error, sheets_ref, created_at, synced_at`

func scanLedgerRow(s interface{ Scan(...interface{}) error }) (LedgerRow, error) {
	var i LedgerRow
	err := s.Scan(
		&i.ID,
		&i.Date,
		&i.Category,
		&i.Description,
		&i.Amount,
		&i.Uncleared,
		&i.Source,
		&i.SyncStatus,
		&i.SyncAttempts,
		&i.SyncError,
		&i.SheetsRef,
		&i.CreatedAt,
		&i.SyncedAt,
	)
	return i, err
}

const createLedgerRecord = `-- name: CreateLedgerRecord :one
INSERT INTO ledger_records (date, category, description, amount, uncleared, source, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + ledgerColumns

type CreateLedgerRecordParams struct {
	Date        string
	Category    string
	Description string
	Amount      string
	Uncleared   bool
	Source      string
	CreatedAt   time.Time
}

func (q *Queries) CreateLedgerRecord(ctx context.Context, arg CreateLedgerRecordParams) (LedgerRow, error) {
	row := q.db.QueryRowContext(ctx, createLedgerRecord,
		arg.Date,
		arg.Category,
		arg.Description,
		arg.Amount,
		arg.Uncleared,
		arg.Source,
		arg.CreatedAt,
	)
	return scanLedgerRow(row)
}

const getLedgerRecord = `-- name: GetLedgerRecord :one
SELECT ` + ledgerColumns + ` FROM ledger_records WHERE id = ?`

func (q *Queries) GetLedgerRecord(ctx context.Context, id int64) (LedgerRow, error) {
	return scanLedgerRow(q.db.QueryRowContext(ctx, getLedgerRecord, id))
}

const listLedgerRecords = `-- name: ListLedgerRecords :many
SELECT ` + ledgerColumns + ` FROM ledger_records ORDER BY date, id`

func (q *Queries) ListLedgerRecords(ctx context.Context) ([]LedgerRow, error) {
	return q.queryLedger(ctx, listLedgerRecords)
}

const getPendingSyncRecords = `-- name: GetPendingSyncRecords :many
SELECT ` + ledgerColumns + ` FROM ledger_records
WHERE sync_status IN ('pending', 'error') AND sync_attempts < ? AND claimed_until <= ?
ORDER BY id
LIMIT ?`

func (q *Queries) GetPendingSyncRecords(ctx context.Context, maxAttempts, now, limit int64) ([]LedgerRow, error) {
	return q.queryLedger(ctx, getPendingSyncRecords, maxAttempts, now, limit)
}

const claimLedgerRecord = `-- name: ClaimLedgerRecord :execrows
UPDATE ledger_records
SET claimed_until = ?
WHERE id = ? AND sync_status != 'synced' AND claimed_until <= ?`

func (q *Queries) ClaimLedgerRecord(ctx context.Context, id, until, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, claimLedgerRecord, until, id, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) queryLedger(ctx context.Context, query string, args ...interface{}) ([]LedgerRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerRow
	for rows.Next() {
		i, err := scanLedgerRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markLedgerRecordSynced = `-- name: MarkLedgerRecordSynced :execrows
UPDATE ledger_records
SET sync_status = 'synced', sheets_ref = ?, sync_error = '', synced_at = ?, claimed_until = 0
WHERE id = ?`

func (q *Queries) MarkLedgerRecordSynced(ctx context.Context, id int64, ref string, at time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, markLedgerRecordSynced, ref, at, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markLedgerRecordSyncError = `-- name: MarkLedgerRecordSyncError :execrows
UPDATE ledger_records
SET sync_status = 'error', sync_attempts = sync_attempts + 1, sync_error = ?, claimed_until = 0
WHERE id = ? AND sync_status != 'synced'`

func (q *Queries) MarkLedgerRecordSyncError(ctx context.Context, id int64, msg string) (int64, error) {
	result, err := q.db.ExecContext(ctx, markLedgerRecordSyncError, msg, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countLedgerRecordsByStatus = `-- name: CountLedgerRecordsByStatus :one
SELECT COUNT(*) FROM ledger_records WHERE sync_status = ?`

func (q *Queries) CountLedgerRecordsByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countLedgerRecordsByStatus, status).Scan(&count)
	return count, err
}

const getUser = `-- name: GetUser :one
SELECT id, username, authorized, registered_at FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id int64) (UserRow, error) {
	var i UserRow
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(&i.ID, &i.Username, &i.Authorized, &i.RegisteredAt)
	return i, err
}

const upsertUser = `-- name: UpsertUser :exec
INSERT INTO users (id, username, authorized, registered_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET username = excluded.username, authorized = excluded.authorized`

func (q *Queries) UpsertUser(ctx context.Context, arg UserRow) error {
	_, err := q.db.ExecContext(ctx, upsertUser, arg.ID, arg.Username, arg.Authorized, arg.RegisteredAt)
	return err
}

const listUsers = `-- name: ListUsers :many
SELECT id, username, authorized, registered_at FROM users ORDER BY id`

func (q *Queries) ListUsers(ctx context.Context) ([]UserRow, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserRow
	for rows.Next() {
		var i UserRow
		if err := rows.Scan(&i.ID, &i.Username, &i.Authorized, &i.RegisteredAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
