// Package telegram adapts the Telegram Bot API to the bot package ports.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"expensebot/internal/bot"
)

// SecretTokenHeader carries the webhook secret configured with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const (
	pollTimeoutSeconds = 60
	requestTimeout     = 75 * time.Second
)

// ErrNoMessage marks updates that carry no text message, e.g. edits or
// callback queries.
var ErrNoMessage = errors.New("update has no message")

// Client implements bot.Messenger on top of the Bot API.
type Client struct {
	api *tgbotapi.BotAPI
}

var _ bot.Messenger = (*Client)(nil)

// New authenticates the token against the Bot API.
func New(token string) (*Client, error) {
	if token == "" {
		return nil, errors.New("missing bot token")
	}
	httpClient := &http.Client{Timeout: requestTimeout}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", api.Self.UserName)
	return &Client{api: api}, nil
}

func (c *Client) Username() string {
	return c.api.Self.UserName
}

func (c *Client) Send(ctx context.Context, msg bot.OutgoingMessage) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sent, err := c.api.Send(messageConfig(msg))
	if err != nil {
		return 0, fmt.Errorf("send message to chat %d: %w", msg.ChatID, err)
	}
	return sent.MessageID, nil
}

func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

// Poll long-polls for updates and hands text messages to handle until ctx
// is done. Any registered webhook is removed first because Telegram
// refuses getUpdates while one is set.
func (c *Client) Poll(ctx context.Context, handle func(context.Context, bot.Update) error) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := c.api.GetUpdatesChan(cfg)
	defer c.api.StopReceivingUpdates()

	slog.InfoContext(ctx, "Polling for Telegram updates", "username", c.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return errors.New("update channel closed")
			}
			upd, err := fromAPI(u)
			if err != nil {
				continue
			}
			if err := handle(ctx, upd); err != nil {
				slog.ErrorContext(ctx, "Failed to handle update", "update_id", upd.UpdateID, "error", err)
			}
		}
	}
}

// DecodeUpdate reads a webhook payload. It returns ErrNoMessage for
// updates the bot does not act on.
func DecodeUpdate(r io.Reader) (bot.Update, error) {
	var u tgbotapi.Update
	if err := json.NewDecoder(r).Decode(&u); err != nil {
		return bot.Update{}, fmt.Errorf("decode update: %w", err)
	}
	return fromAPI(u)
}

func fromAPI(u tgbotapi.Update) (bot.Update, error) {
	m := u.Message
	if m == nil || m.Chat == nil {
		return bot.Update{}, ErrNoMessage
	}
	out := bot.Update{
		UpdateID: int64(u.UpdateID),
		ChatID:   m.Chat.ID,
		Text:     m.Text,
	}
	if m.From != nil {
		out.UserID = m.From.ID
		out.Username = m.From.UserName
	}
	return out, nil
}

func messageConfig(msg bot.OutgoingMessage) tgbotapi.MessageConfig {
	cfg := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	switch msg.Markup {
	case bot.MarkupMarkdown:
		cfg.ParseMode = tgbotapi.ModeMarkdown
	case bot.MarkupMarkdownV2:
		cfg.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if len(msg.Buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL)))
		}
		cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	return cfg
}
