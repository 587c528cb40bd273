package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensebot/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "expenses.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func sample(desc, amount string) core.LedgerRecord {
	return core.LedgerRecord{
		Date:        civil.Date{Year: 2026, Month: 1, Day: 15},
		Category:    core.Food,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
	}
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)
	version, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	// re-running is a no-op
	require.NoError(t, RunMigrations(path))
}

func TestSaveAndGetRecord(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec := sample("khao man gai", "60.50")
	rec.Uncleared = true
	id, err := repo.SaveRecord(ctx, rec, SourceNotes)
	require.NoError(t, err)

	got, err := repo.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec.Date, got.Record.Date)
	assert.Equal(t, rec.Description, got.Record.Description)
	assert.True(t, got.Record.Amount.Equal(rec.Amount))
	assert.True(t, got.Record.Uncleared)
	assert.Equal(t, SourceNotes, got.Source)
	assert.Equal(t, SyncPending, got.SyncStatus)
	assert.True(t, got.SyncedAt.IsZero())

	_, err = repo.GetRecord(ctx, id+100)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSaveRecordRejectsInvalid(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.SaveRecord(context.Background(), sample("", "1"), SourceBot)
	assert.ErrorIs(t, err, core.ErrEmptyDescription)
}

func TestAppendAndReadLedger(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	later := sample("later", "10")
	later.Date = civil.Date{Year: 2026, Month: 2, Day: 1}
	ref, err := repo.Append(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, "1", ref)

	n, err := repo.AppendBatch(ctx, []core.LedgerRecord{sample("first", "1"), sample("second", "2")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := repo.ReadLedger(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "first", records[0].Description)
	assert.Equal(t, "second", records[1].Description)
	assert.Equal(t, "later", records[2].Description)
}

func TestAppendBatchIsAtomic(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AppendBatch(ctx, []core.LedgerRecord{sample("ok", "1"), sample("bad", "-1")})
	require.Error(t, err)

	records, err := repo.ReadLedger(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSyncLifecycle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	fixed := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	ids, err := repo.SaveBatch(ctx, []core.LedgerRecord{sample("a", "1"), sample("b", "2")}, SourceBot)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	pending, err := repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, repo.MarkSynced(ctx, ids[0], "Ledger!A2:E2"))
	require.NoError(t, repo.MarkSyncError(ctx, ids[1], errors.New("quota exceeded")))

	got, err := repo.GetRecord(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, SyncSynced, got.SyncStatus)
	assert.Equal(t, "Ledger!A2:E2", got.SheetsRef)
	assert.True(t, got.SyncedAt.Equal(fixed))

	failed, err := repo.GetRecord(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, SyncError, failed.SyncStatus)
	assert.Equal(t, int64(1), failed.SyncAttempts)
	assert.Equal(t, "quota exceeded", failed.SyncError)

	pending, err = repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[1], pending[0].ID)

	for i := 1; i < MaxSyncAttempts; i++ {
		require.NoError(t, repo.MarkSyncError(ctx, ids[1], errors.New("still failing")))
	}
	pending, err = repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "records past the retry limit are not retried")

	counts, err := repo.SyncCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[SyncSynced])
	assert.Equal(t, int64(1), counts[SyncError])
	assert.Equal(t, int64(0), counts[SyncPending])

	assert.ErrorIs(t, repo.MarkSynced(ctx, 999, "x"), ErrRecordNotFound)
}

func TestClaimForSync(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	id, err := repo.SaveRecord(ctx, sample("a", "1"), SourceBot)
	require.NoError(t, err)

	ok, err := repo.ClaimForSync(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimForSync(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "a held record cannot be claimed twice")

	pending, err := repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "claimed records are left out of the sweep")

	// an abandoned claim expires with its lease
	now = now.Add(SyncClaimLease)
	ok, err = repo.ClaimForSync(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	// a failure releases the claim for the next attempt
	require.NoError(t, repo.MarkSyncError(ctx, id, errors.New("quota exceeded")))
	ok, err = repo.ClaimForSync(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.MarkSynced(ctx, id, "Ledger!A2:E2"))
	ok, err = repo.ClaimForSync(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "synced records are never claimed")

	ok, err = repo.ClaimForSync(ctx, id+100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkSyncErrorKeepsSyncedRecords(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.SaveRecord(ctx, sample("a", "1"), SourceBot)
	require.NoError(t, err)
	require.NoError(t, repo.MarkSynced(ctx, id, "ref"))
	require.NoError(t, repo.MarkSyncError(ctx, id, errors.New("late failure")))

	got, err := repo.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, SyncSynced, got.SyncStatus)
}

func TestUsers(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetUser(ctx, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, repo.UpsertUser(ctx, core.User{ID: 42, Username: "somchai"}))
	u, err := repo.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "somchai", u.Username)
	assert.False(t, u.Authorized)
	assert.False(t, u.RegisteredAt.IsZero())

	require.NoError(t, repo.UpsertUser(ctx, core.User{ID: 42, Username: "somchai_k", Authorized: true}))
	u, err = repo.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "somchai_k", u.Username)
	assert.True(t, u.Authorized)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	assert.Error(t, repo.UpsertUser(ctx, core.User{Username: "no id"}))
}
