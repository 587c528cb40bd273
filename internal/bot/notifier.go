package bot

import (
	"context"
	"fmt"
	"strings"
)

// SyncOutcome is the result of one notes-to-sheets import.
type SyncOutcome struct {
	Records int
	Err     error
}

// SyncNotifier posts import results to a chat.
type SyncNotifier struct {
	messenger  Messenger
	sheetURL   string
	runLogsURL string
}

// NewSyncNotifier builds a notifier. Empty URLs omit their buttons.
func NewSyncNotifier(m Messenger, sheetURL, runLogsURL string) *SyncNotifier {
	return &SyncNotifier{messenger: m, sheetURL: sheetURL, runLogsURL: runLogsURL}
}

func (n *SyncNotifier) Notify(ctx context.Context, chatID int64, outcome SyncOutcome) error {
	msg := OutgoingMessage{
		ChatID:  chatID,
		Text:    SyncStatusText(outcome),
		Markup:  MarkupMarkdown,
		Buttons: n.buttons(),
	}
	if _, err := n.messenger.Send(ctx, msg); err != nil {
		return fmt.Errorf("send sync notification: %w", err)
	}
	return nil
}

func (n *SyncNotifier) buttons() []Button {
	var out []Button
	if n.sheetURL != "" {
		out = append(out, Button{Text: "📊 View Google Sheet", URL: n.sheetURL})
	}
	if n.runLogsURL != "" {
		out = append(out, Button{Text: "🔍 View Run Logs", URL: n.runLogsURL})
	}
	return out
}

// SyncStatusText renders the status message for an outcome.
func SyncStatusText(o SyncOutcome) string {
	var symbol, status string
	switch {
	case o.Err != nil:
		symbol, status = "❌", "Sync failed: "+escapeMarkdown(o.Err.Error())
	case o.Records > 0:
		symbol = "✅"
		status = fmt.Sprintf("Expenses fetched and synced successfully. (%d records)", o.Records)
	default:
		symbol, status = "ℹ️", "No new expenses found to process."
	}
	return symbol + " *Expense to Sheets Sync Status*\n\n" + status
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown makes free text safe inside a legacy Markdown message.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
