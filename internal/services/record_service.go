package services

import (
	"context"
	"fmt"
	"strconv"

	"expensebot/internal/core"
	"expensebot/internal/log"
	"expensebot/internal/sheets"
)

// RecordStore persists ledger records locally and hands back their ids.
type RecordStore interface {
	SaveRecord(ctx context.Context, rec core.LedgerRecord, source string) (int64, error)
	SaveBatch(ctx context.Context, recs []core.LedgerRecord, source string) ([]int64, error)
}

// SyncPublisher announces a stored record that still has to reach the sheet.
type SyncPublisher interface {
	PublishRecordSync(ctx context.Context, id int64, source string) error
}

var (
	_ sheets.RecordAppender = (*RecordService)(nil)
	_ sheets.BatchAppender  = (*RecordService)(nil)
)

// RecordService saves records in SQLite and queues them for the sheet
// sync. The local save is authoritative; publishing is best effort because
// the sync worker also sweeps pending records.
type RecordService struct {
	store     RecordStore
	publisher SyncPublisher
	source    string
	logger    *log.Logger
}

// NewRecordService builds a service tagging records with source. A nil
// publisher leaves records for the pending sweep.
func NewRecordService(store RecordStore, publisher SyncPublisher, source string, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &RecordService{
		store:     store,
		publisher: publisher,
		source:    source,
		logger:    logger.WithComponent(log.ComponentStorage),
	}
}

// Record saves rec and publishes its sync message. It returns the local id.
func (s *RecordService) Record(ctx context.Context, rec core.LedgerRecord) (int64, error) {
	id, err := s.store.SaveRecord(ctx, rec, s.source)
	if err != nil {
		return 0, fmt.Errorf("save record: %w", err)
	}
	s.publish(ctx, id)
	return id, nil
}

// Append implements sheets.RecordAppender with the local id as row ref.
func (s *RecordService) Append(ctx context.Context, rec core.LedgerRecord) (string, error) {
	id, err := s.Record(ctx, rec)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// AppendBatch saves recs in one transaction, then publishes each id in order.
func (s *RecordService) AppendBatch(ctx context.Context, recs []core.LedgerRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	ids, err := s.store.SaveBatch(ctx, recs, s.source)
	if err != nil {
		return 0, fmt.Errorf("save batch: %w", err)
	}
	for _, id := range ids {
		s.publish(ctx, id)
	}
	return len(ids), nil
}

func (s *RecordService) publish(ctx context.Context, id int64) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No sync publisher, record left for sweep", log.FieldRecordID, id)
		return
	}
	if err := s.publisher.PublishRecordSync(ctx, id, s.source); err != nil {
		fields := log.NewFields().WithOperation(log.OpSync).WithError(err)
		fields[log.FieldRecordID] = id
		s.logger.ErrorContext(ctx, "Failed to publish sync message, record left for sweep", fields.ToSlice()...)
	}
}
