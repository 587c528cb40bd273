package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"expensebot/internal/bot"
	"expensebot/internal/log"
	"expensebot/internal/telegram"
)

const (
	maxUpdateBytes = 1 << 20
	handleTimeout  = 45 * time.Second
)

// UpdateHandler consumes decoded chat updates.
type UpdateHandler interface {
	Handle(ctx context.Context, u bot.Update) error
}

// WebhookHandler receives Telegram updates. Apart from a wrong secret it
// answers 200 to everything, so Telegram never redelivers an update the
// bot already saw.
type WebhookHandler struct {
	handler UpdateHandler
	secret  string
}

func NewWebhookHandler(h UpdateHandler, secret string) *WebhookHandler {
	return &WebhookHandler{handler: h, secret: secret}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentBot)

	if h.secret != "" {
		got := r.Header.Get(telegram.SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			logger.Warn("Rejected webhook call with bad secret token")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	upd, err := telegram.DecodeUpdate(http.MaxBytesReader(w, r.Body, maxUpdateBytes))
	switch {
	case errors.Is(err, telegram.ErrNoMessage):
		logger.Debug("Ignoring update without message")
	case err != nil:
		logger.Warn("Failed to decode update", log.FieldError, err)
	default:
		// the chat reply must not die with the webhook connection
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), handleTimeout)
		defer cancel()
		if err := h.handler.Handle(ctx, upd); err != nil {
			logger.Error("Failed to handle update", "update_id", upd.UpdateID, log.FieldError, err)
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}
