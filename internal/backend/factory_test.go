package backend

import (
	"context"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"expensebot/internal/config"
	"expensebot/internal/core"
	"expensebot/internal/storage"
)

func sampleRecord() core.LedgerRecord {
	return core.LedgerRecord{
		Date:        civil.Date{Year: 2026, Month: 2, Day: 14},
		Category:    core.Entertainment,
		Description: "cinema",
		Amount:      decimal.NewFromInt(240),
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if res.Ledger == nil || res.Pivot == nil {
		t.Fatal("memory backend should provide ledger and pivot")
	}
	if res.Repo != nil || res.Sheets != nil {
		t.Error("memory backend should not open SQLite or Sheets")
	}
	if err := res.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)
	res, err := f.CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db"),
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	if res.AMQP != nil {
		t.Error("AMQP should be disabled without a URL")
	}
	if res.Pivot != nil {
		t.Error("pivot needs a spreadsheet")
	}
	if err := res.Ready(ctx); err != nil {
		t.Errorf("Ready() error = %v", err)
	}

	ref, err := res.Ledger.Append(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "1" {
		t.Errorf("Append() ref = %q, want 1", ref)
	}

	stored, err := res.Repo.GetRecord(ctx, 1)
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if stored.Source != storage.SourceBot {
		t.Errorf("Source = %q, want %q", stored.Source, storage.SourceBot)
	}

	records, err := res.Ledger.ReadLedger(ctx)
	if err != nil {
		t.Fatalf("ReadLedger() error = %v", err)
	}
	if len(records) != 1 || records[0].Description != "cinema" {
		t.Errorf("ReadLedger() = %+v", records)
	}
}

func TestCreateBackend_Invalid(t *testing.T) {
	f := NewFactory(nil)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown type", Config{Type: "postgres"}},
		{"sqlite without path", Config{Type: SQLiteBackend}},
		{"sheets without spreadsheet", Config{Type: SheetsBackend}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.CreateBackend(context.Background(), tt.cfg); err == nil {
				t.Error("CreateBackend() expected error")
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) expected error")
	}

	app := &config.Config{
		DataBackend:         config.BackendSheets,
		GoogleSpreadsheetID: "sheet-123",
		GoogleLedgerSheet:   "Ledger",
		GooglePivotRange:    "Pivot!A1:Z200",
		SQLiteDBPath:        "./data/expenses.db",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SheetsBackend {
		t.Errorf("Type = %v, want sheets", cfg.Type)
	}
	if cfg.Google.SpreadsheetID != "sheet-123" || cfg.Google.PivotRange != "Pivot!A1:Z200" {
		t.Errorf("Google options = %+v", cfg.Google)
	}
	if cfg.Source != storage.SourceBot {
		t.Errorf("Source = %q, want bot", cfg.Source)
	}

	app.DataBackend = "excel"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("FromAppConfig() expected error for unknown backend")
	}
}
