// Package bot routes chat commands to the ledger and report pipeline.
package bot

import "context"

// Markup selects how the chat platform renders message text.
type Markup int

const (
	MarkupNone Markup = iota
	MarkupMarkdown
	MarkupMarkdownV2
)

// Update is an incoming chat message.
type Update struct {
	UpdateID int64
	ChatID   int64
	UserID   int64
	Username string
	Text     string
}

// Button is an inline URL button. Buttons are laid out one per row.
type Button struct {
	Text string
	URL  string
}

type OutgoingMessage struct {
	ChatID  int64
	Text    string
	Markup  Markup
	Buttons []Button
}

//go:generate mockgen -source=messenger.go -destination=messenger_mock.go -package=bot

// Messenger sends and deletes chat messages.
type Messenger interface {
	Send(ctx context.Context, msg OutgoingMessage) (messageID int, err error)
	Delete(ctx context.Context, chatID int64, messageID int) error
}
