package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "expensebot"

// Init installs a Prometheus-backed meter provider as the global provider.
// The returned shutdown function flushes and releases it.
func Init(_ context.Context) (shutdown func(context.Context) error, err error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics holds the application counters. A nil *Metrics records nothing.
type Metrics struct {
	commands metric.Int64Counter
	records  metric.Int64Counter
	reports  metric.Int64Counter
	synced   metric.Int64Counter
	imported metric.Int64Counter
}

// NewMetrics creates the counters on meter, or on the global provider when
// meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	var (
		m   Metrics
		err error
	)
	if m.commands, err = meter.Int64Counter("expensebot.bot.commands",
		metric.WithDescription("Chat commands handled")); err != nil {
		return nil, err
	}
	if m.records, err = meter.Int64Counter("expensebot.ledger.records",
		metric.WithDescription("Ledger records accepted from chat")); err != nil {
		return nil, err
	}
	if m.reports, err = meter.Int64Counter("expensebot.reports",
		metric.WithDescription("Reports requested")); err != nil {
		return nil, err
	}
	if m.synced, err = meter.Int64Counter("expensebot.sync.records",
		metric.WithDescription("Records processed by the sheets sync")); err != nil {
		return nil, err
	}
	if m.imported, err = meter.Int64Counter("expensebot.import.records",
		metric.WithDescription("Records produced by notes imports")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) CommandHandled(ctx context.Context, command string) {
	if m == nil {
		return
	}
	m.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("command", command)))
}

// RecordAccepted counts a ledger record; kind is "expense" or "income".
func (m *Metrics) RecordAccepted(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.records.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// ReportServed counts a report by source ("ledger", "pivot") and outcome
// ("ok", "empty", "error").
func (m *Metrics) ReportServed(ctx context.Context, source, outcome string) {
	if m == nil {
		return
	}
	m.reports.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome)))
}

// SyncResult counts n records with the given outcome ("synced", "failed").
func (m *Metrics) SyncResult(ctx context.Context, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.synced.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) Imported(ctx context.Context, n int, dryRun bool) {
	if m == nil || n <= 0 {
		return
	}
	m.imported.Add(ctx, int64(n), metric.WithAttributes(attribute.Bool("dry_run", dryRun)))
}
