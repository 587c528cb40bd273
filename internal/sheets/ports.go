package sheets

import (
	"context"

	"expensebot/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordAppender appends a single ledger row.
	RecordAppender interface {
		Append(ctx context.Context, r core.LedgerRecord) (rowRef string, err error)
	}

	// BatchAppender appends many ledger rows in one call, preserving order.
	BatchAppender interface {
		AppendBatch(ctx context.Context, rs []core.LedgerRecord) (appended int, err error)
	}

	// LedgerReader returns every ledger row in column order
	// [date, category, description, amount, uncleared].
	LedgerReader interface {
		ReadLedger(ctx context.Context) ([]core.LedgerRecord, error)
	}

	// PivotReader returns the precomputed year × month pivot grid as text cells.
	PivotReader interface {
		ReadPivot(ctx context.Context) ([][]string, error)
	}
)
