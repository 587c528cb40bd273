package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"expensebot/internal/bot"
	"expensebot/internal/log"
	"expensebot/internal/telegram"
)

type recordingHandler struct {
	mu      sync.Mutex
	updates []bot.Update
	err     error
}

func (h *recordingHandler) Handle(_ context.Context, u bot.Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u)
	return h.err
}

func newTestServer(t *testing.T, h UpdateHandler, secret string, ready ReadyFunc) *Server {
	t.Helper()
	srv := NewServer(Options{
		Addr:    ":0",
		Webhook: NewWebhookHandler(h, secret),
		Ready:   ready,
		Logger:  log.New(log.Config{Output: &bytes.Buffer{}}),
	})
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

const updateJSON = `{"update_id": 7, "message": {"message_id": 1, "date": 0,
	"from": {"id": 42, "is_bot": false, "first_name": "A"},
	"chat": {"id": 42, "type": "private"}, "text": "/report"}}`

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &recordingHandler{}, "", nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id", path)
		}
	}
}

func TestReadyFailure(t *testing.T) {
	srv := newTestServer(t, &recordingHandler{}, "", func(context.Context) error {
		return errors.New("database is locked")
	})
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &recordingHandler{}, "", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestWebhook(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		header   string
		body     string
		handlerE error
		status   int
		handled  int
	}{
		{name: "delivered", body: updateJSON, status: 200, handled: 1},
		{name: "with secret", secret: "s3cret", header: "s3cret", body: updateJSON, status: 200, handled: 1},
		{name: "wrong secret", secret: "s3cret", header: "nope", body: updateJSON, status: 401},
		{name: "bad json still 200", body: "{", status: 200},
		{name: "no message still 200", body: `{"update_id": 8}`, status: 200},
		{name: "handler error still 200", body: updateJSON, handlerE: errors.New("boom"), status: 200, handled: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{err: tt.handlerE}
			srv := newTestServer(t, h, tt.secret, nil)

			req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(tt.body))
			if tt.header != "" {
				req.Header.Set(telegram.SecretTokenHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("status=%d, want %d", rr.Code, tt.status)
			}
			if len(h.updates) != tt.handled {
				t.Fatalf("handled %d updates, want %d", len(h.updates), tt.handled)
			}
			if tt.handled > 0 && (h.updates[0].ChatID != 42 || h.updates[0].Text != "/report") {
				t.Errorf("unexpected update %+v", h.updates[0])
			}
		})
	}
}

func TestWebhookRejectsGet(t *testing.T) {
	srv := newTestServer(t, &recordingHandler{}, "", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, WebhookPath, nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d, want 405", rr.Code)
	}
}

func TestSuspiciousPathBlocked(t *testing.T) {
	srv := newTestServer(t, &recordingHandler{}, "", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/.env", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rr.Code)
	}
}
