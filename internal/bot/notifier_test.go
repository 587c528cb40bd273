package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncStatusText(t *testing.T) {
	tests := []struct {
		name    string
		outcome SyncOutcome
		want    string
	}{
		{"synced", SyncOutcome{Records: 3}, "✅ *Expense to Sheets Sync Status*\n\nExpenses fetched and synced successfully. (3 records)"},
		{"nothing new", SyncOutcome{}, "ℹ️ *Expense to Sheets Sync Status*\n\nNo new expenses found to process."},
		{"plain error", SyncOutcome{Err: errors.New("quota exceeded")}, "❌ *Expense to Sheets Sync Status*\n\nSync failed: quota exceeded"},
		{
			"error with markdown characters",
			SyncOutcome{Err: errors.New("no such table: ledger_records [*tmp*] `x`")},
			"❌ *Expense to Sheets Sync Status*\n\nSync failed: no such table: ledger\\_records \\[\\*tmp\\*] \\`x\\`",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SyncStatusText(tt.outcome))
		})
	}
}

func TestSyncNotifierNotify(t *testing.T) {
	m, c := newChat(t)
	n := NewSyncNotifier(m, "https://sheet.example", "https://logs.example")

	require.NoError(t, n.Notify(context.Background(), 42, SyncOutcome{Err: errors.New("bad sync_status")}))
	msg := c.last()
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, MarkupMarkdown, msg.Markup)
	assert.Contains(t, msg.Text, "bad\\_sync\\_status")
	require.Len(t, msg.Buttons, 2)
	assert.Equal(t, "https://logs.example", msg.Buttons[1].URL)
}
