package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expensebot/internal/amqp"
	"expensebot/internal/sheets"
	"expensebot/internal/storage"
	"expensebot/internal/telemetry"
)

const (
	DefaultBatchSize = 10
	DefaultInterval  = time.Minute
)

// RecordStore is the subset of the SQLite repository the worker needs.
type RecordStore interface {
	GetRecord(ctx context.Context, id int64) (storage.StoredRecord, error)
	PendingSync(ctx context.Context, limit int) ([]storage.StoredRecord, error)
	ClaimForSync(ctx context.Context, id int64) (bool, error)
	MarkSynced(ctx context.Context, id int64, sheetsRef string) error
	MarkSyncError(ctx context.Context, id int64, cause error) error
}

// errClaimed means another syncer holds or already finished the record.
var errClaimed = errors.New("record claimed by another syncer")

// SyncStats summarizes one sweep of pending records.
type SyncStats struct {
	Found   int
	Synced  int
	Failed  int
	Skipped int
}

// SyncWorker copies locally stored ledger records to Google Sheets.
type SyncWorker struct {
	store     RecordStore
	sheets    sheets.RecordAppender
	metrics   *telemetry.Metrics
	batchSize int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(store RecordStore, sheets sheets.RecordAppender, metrics *telemetry.Metrics, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SyncWorker{
		store:     store,
		sheets:    sheets,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single record sync message from AMQP.
// A returned error asks the broker to redeliver.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"message_id", msg.MessageID,
		"source", msg.Source)

	rec, err := w.store.GetRecord(ctx, msg.ID)
	if errors.Is(err, storage.ErrRecordNotFound) {
		slog.WarnContext(ctx, "Sync message for unknown record, dropping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get record from storage: %w", err)
	}
	if rec.SyncStatus == storage.SyncSynced {
		slog.DebugContext(ctx, "Record already synced", "id", rec.ID, "ref", rec.SheetsRef)
		return nil
	}

	err = w.syncRecord(ctx, rec)
	if errors.Is(err, errClaimed) {
		slog.DebugContext(ctx, "Record is being synced elsewhere", "id", rec.ID)
		return nil
	}
	if err != nil {
		if rec.SyncAttempts+1 >= storage.MaxSyncAttempts {
			slog.ErrorContext(ctx, "Record sync failed permanently", "id", rec.ID, "attempts", rec.SyncAttempts+1)
			return nil
		}
		return err
	}
	return nil
}

// ProcessPending sweeps records that were never synced, e.g. because the
// broker was down when they were recorded.
func (w *SyncWorker) ProcessPending(ctx context.Context) (SyncStats, error) {
	pending, err := w.store.PendingSync(ctx, w.batchSize)
	if err != nil {
		return SyncStats{}, fmt.Errorf("get pending records: %w", err)
	}
	stats := SyncStats{Found: len(pending)}
	if len(pending) == 0 {
		return stats, nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	for _, rec := range pending {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		err := w.syncRecord(ctx, rec)
		if errors.Is(err, errClaimed) {
			stats.Skipped++
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sync record", "id", rec.ID, "error", err)
			stats.Failed++
			continue
		}
		stats.Synced++
	}

	slog.InfoContext(ctx, "Pending sweep completed",
		"found", stats.Found,
		"synced", stats.Synced,
		"failed", stats.Failed,
		"skipped", stats.Skipped)
	return stats, nil
}

// syncRecord appends rec once the record is claimed, so the AMQP consumer
// and the sweeper never both write the same row.
func (w *SyncWorker) syncRecord(ctx context.Context, rec storage.StoredRecord) error {
	claimed, err := w.store.ClaimForSync(ctx, rec.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return errClaimed
	}

	ref, err := w.sheets.Append(ctx, rec.Record)
	if err != nil {
		w.metrics.SyncResult(ctx, "failed", 1)
		if markErr := w.store.MarkSyncError(ctx, rec.ID, err); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.metrics.SyncResult(ctx, "synced", 1)

	// the row exists in the sheet now, so a bookkeeping failure is only logged
	if err := w.store.MarkSynced(ctx, rec.ID, ref); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", rec.ID, "error", err)
	}

	slog.InfoContext(ctx, "Synced record",
		"id", rec.ID,
		"sheets_ref", ref,
		"category", rec.Record.Category,
		"amount", rec.Record.Amount.String())
	return nil
}

// Start runs ProcessPending immediately and then every interval until
// Stop is called or ctx ends. It fails if the worker is already running.
func (w *SyncWorker) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, interval, stopCh, doneCh)

	slog.InfoContext(ctx, "Sync sweeper started", "interval", interval, "batch_size", w.batchSize)
	return nil
}

// Stop signals the sweep loop and waits for it to finish.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync sweeper stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync sweeper stop timed out")
		return ctx.Err()
	}
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context, interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SyncWorker) sweep(ctx context.Context) {
	if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
	}
}
