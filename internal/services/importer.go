package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"expensebot/internal/bot"
	"expensebot/internal/core"
	"expensebot/internal/ledger"
	"expensebot/internal/log"
	"expensebot/internal/notes"
	"expensebot/internal/sheets"
	"expensebot/internal/telemetry"
)

// Notifier reports the outcome of an import to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, outcome bot.SyncOutcome) error
}

// ImportSink receives imported rows. Its ledger is read back so rows from
// an earlier run of the same export are not appended twice.
type ImportSink interface {
	sheets.BatchAppender
	sheets.LedgerReader
}

// ImportOptions tune one Importer.
type ImportOptions struct {
	Order ledger.Order
	// DryRun processes and writes the artifact but uploads nothing.
	DryRun bool
	// ArtifactPath receives the processed CSV when set.
	ArtifactPath string
	// NotifyChatID of zero disables notifications.
	NotifyChatID int64
}

// ImportResult describes one Run.
type ImportResult struct {
	BatchID  string
	Stats    ledger.ProcessStats
	Entries  []ledger.Entry
	Uploaded int
	// Skipped counts entries already present in the sink.
	Skipped int
	DryRun   bool
}

// Importer turns a notes export into ledger rows.
type Importer struct {
	processor *ledger.BatchProcessor
	sink      ImportSink
	notifier  Notifier
	metrics   *telemetry.Metrics
	opts      ImportOptions
	logger    *log.Logger
}

// NewImporter wires an importer. sink may be nil only in dry-run mode and
// notifier may be nil to skip chat notifications.
func NewImporter(b *ledger.Builder, sink ImportSink, notifier Notifier, metrics *telemetry.Metrics, opts ImportOptions, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Importer{
		processor: ledger.NewBatchProcessor(b),
		sink:      sink,
		notifier:  notifier,
		metrics:   metrics,
		opts:      opts,
		logger:    logger.WithComponent(log.ComponentImport),
	}
}

// Run processes notes, sorts the entries, writes the artifact and uploads
// the entries the sink does not hold yet in one batch, so re-running an
// unchanged export appends nothing. The chat is notified of success and of upload
// failures; a failed notification is only logged.
func (im *Importer) Run(ctx context.Context, batch []ledger.Note) (ImportResult, error) {
	res := ImportResult{BatchID: uuid.NewString(), DryRun: im.opts.DryRun}
	logger := im.logger.With("batch_id", res.BatchID)

	res.Entries, res.Stats = im.processor.Process(batch)
	ledger.Sort(res.Entries, im.opts.Order)

	logger.InfoContext(ctx, "Processed notes",
		"notes", res.Stats.Notes,
		"matched", res.Stats.Matched,
		"bad_title", res.Stats.BadTitle,
		"lines_parsed", res.Stats.LinesParsed,
		"lines_skipped", res.Stats.LinesSkipped)

	if im.opts.ArtifactPath != "" {
		if err := writeArtifact(im.opts.ArtifactPath, res.Entries); err != nil {
			return res, err
		}
		logger.InfoContext(ctx, "Wrote processed CSV", "path", im.opts.ArtifactPath, log.FieldCount, len(res.Entries))
	}

	if im.opts.DryRun {
		im.metrics.Imported(ctx, len(res.Entries), true)
		logger.InfoContext(ctx, "Dry run, skipping upload", log.FieldCount, len(res.Entries))
		return res, nil
	}

	fresh, err := im.unseen(ctx, res.Entries)
	if err != nil {
		return res, im.fail(ctx, logger, fmt.Errorf("read existing ledger: %w", err))
	}
	res.Skipped = len(res.Entries) - len(fresh)
	if res.Skipped > 0 {
		logger.InfoContext(ctx, "Skipping entries already in the ledger", log.FieldCount, res.Skipped)
	}

	if len(fresh) > 0 {
		n, err := im.sink.AppendBatch(ctx, ledger.Records(fresh))
		if err != nil {
			return res, im.fail(ctx, logger, fmt.Errorf("upload entries: %w", err))
		}
		res.Uploaded = n
		im.metrics.Imported(ctx, n, false)
	}

	logger.InfoContext(ctx, "Import completed", log.FieldCount, res.Uploaded)
	im.notify(ctx, bot.SyncOutcome{Records: res.Uploaded})
	return res, nil
}

func (im *Importer) fail(ctx context.Context, logger *log.Logger, err error) error {
	logger.ErrorContext(ctx, "Import upload failed",
		log.NewFields().WithOperation(log.OpImport).WithError(err).ToSlice()...)
	im.notify(ctx, bot.SyncOutcome{Err: err})
	return err
}

// unseen drops entries whose row is already in the sink. Matching is a
// multiset over date, category, description and amount, so an export that
// legitimately repeats a line keeps every copy beyond those stored.
func (im *Importer) unseen(ctx context.Context, entries []ledger.Entry) ([]ledger.Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	existing, err := im.sink.ReadLedger(ctx)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]int, len(existing))
	for _, r := range existing {
		stored[rowKey(r)]++
	}
	fresh := make([]ledger.Entry, 0, len(entries))
	for _, e := range entries {
		k := rowKey(e.Record)
		if stored[k] > 0 {
			stored[k]--
			continue
		}
		fresh = append(fresh, e)
	}
	return fresh, nil
}

func rowKey(r core.LedgerRecord) string {
	return r.Date.String() + "|" + string(r.Category) + "|" + r.Description + "|" + r.Amount.StringFixed(2)
}

func (im *Importer) notify(ctx context.Context, outcome bot.SyncOutcome) {
	if im.notifier == nil || im.opts.NotifyChatID == 0 {
		return
	}
	if err := im.notifier.Notify(ctx, im.opts.NotifyChatID, outcome); err != nil {
		im.logger.WarnContext(ctx, "Failed to send import notification",
			log.NewFields().WithOperation(log.OpNotify).WithError(err).ToSlice()...)
	}
}

func writeArtifact(path string, entries []ledger.Entry) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	if err := notes.WriteProcessedCSV(f, entries); err != nil {
		f.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	return f.Close()
}
