package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Component: ComponentBot, Output: &buf}), &buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithComponent(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	logger.With(FieldChatID, 42).WithComponent(ComponentReport).Info("hello")

	out := buf.String()
	if strings.Count(out, "component=") != 1 {
		t.Errorf("expected a single component attribute, got %q", out)
	}
	if !strings.Contains(out, "component=report") {
		t.Errorf("missing report component in %q", out)
	}
}

func TestFromContext(t *testing.T) {
	logger, _ := newBufferLogger(slog.LevelInfo)
	ctx := NewContext(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("FromContext should return the stored logger")
	}
	if got := FromContext(context.Background()); got == nil || got.Component() != "unknown" {
		t.Errorf("FromContext fallback = %+v", got)
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithOperation(OpImport).
		WithError(errors.New("boom")).
		WithUpdate(7, 9, "report")

	if fields[FieldOperation] != OpImport {
		t.Errorf("operation = %v", fields[FieldOperation])
	}
	if fields[FieldError] != "boom" {
		t.Errorf("error = %v", fields[FieldError])
	}
	if got := len(fields.ToSlice()); got != 2*len(fields) {
		t.Errorf("ToSlice() length = %d, want %d", got, 2*len(fields))
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	sl := NewStructuredLogger(logger)
	req := httptest.NewRequest("POST", "/telegram/webhook", nil)

	sl.LogHTTPEnd(context.Background(), req, 200, 3, "10.0.0.1")
	sl.LogHTTPEnd(context.Background(), req, 429, 1, "10.0.0.1")
	sl.LogHTTPEnd(context.Background(), req, 503, 1, "10.0.0.1")

	out := buf.String()
	for _, want := range []string{"level=INFO", "level=WARN", "level=ERROR", "status_code=429"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
