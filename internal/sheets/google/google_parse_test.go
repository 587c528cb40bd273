package google

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"expensebot/internal/core"
)

func TestDecodeLedger(t *testing.T) {
	values := [][]interface{}{
		{"Date", "Category", "Description", "Amount", "Uncleared"},
		{"2026-01-05", "Food", "pad thai", 120.0, false},
		{"2026-01-06", "housing/car", "  fuel   station ", "1,500.50", true},
		{45658.0, "Income", "salary", "50000"},
		{},
		{"", "", "", ""},
		{"2026-01-07", "Pets", "cat food", 300.0},
		{"not a date", "Food", "bad", 10.0},
		{"2026-01-08", "Food", "", 10.0},
		{"2026-01-09", "Food", "negative", -5.0},
		{"2026-01-10", "Food", "words", "ten"},
	}

	records, skipped := decodeLedger(values)
	if skipped != 4 {
		t.Errorf("skipped = %d, want 4", skipped)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4: %+v", len(records), records)
	}

	want := []struct {
		date      civil.Date
		category  core.Category
		desc      string
		amount    string
		uncleared bool
	}{
		{civil.Date{Year: 2026, Month: 1, Day: 5}, core.Food, "pad thai", "120", false},
		{civil.Date{Year: 2026, Month: 1, Day: 6}, core.HousingCar, "fuel station", "1500.5", true},
		{civil.Date{Year: 2025, Month: 1, Day: 1}, core.Income, "salary", "50000", false},
		{civil.Date{Year: 2026, Month: 1, Day: 7}, core.Other, "cat food", "300", false},
	}
	for i, w := range want {
		r := records[i]
		if r.Date != w.date || r.Category != w.category || r.Description != w.desc || r.Uncleared != w.uncleared {
			t.Errorf("record %d = %+v, want %+v", i, r, w)
		}
		if !r.Amount.Equal(decimal.RequireFromString(w.amount)) {
			t.Errorf("record %d amount = %s, want %s", i, r.Amount, w.amount)
		}
	}
}

func TestDecodeLedger_NoHeader(t *testing.T) {
	records, skipped := decodeLedger([][]interface{}{{"2026-02-01", "Transport", "bts", 44.0}})
	if skipped != 0 || len(records) != 1 {
		t.Fatalf("got %d records, %d skipped", len(records), skipped)
	}
}

func TestEncodeRecord(t *testing.T) {
	row := encodeRecord(core.LedgerRecord{
		Date:        civil.Date{Year: 2026, Month: 3, Day: 9},
		Category:    core.Utilities,
		Description: "electricity bill",
		Amount:      decimal.RequireFromString("1234.50"),
		Uncleared:   true,
	})
	if len(row) != len(ledgerHeader()) {
		t.Fatalf("row has %d cells, header has %d", len(row), len(ledgerHeader()))
	}
	if row[colDate] != "2026-03-09" || row[colCategory] != "Utilities" || row[colDescription] != "electricity bill" {
		t.Errorf("unexpected row: %v", row)
	}
	if row[colAmount] != "1234.5" || row[colUncleared] != true {
		t.Errorf("unexpected amount or flag: %v", row)
	}

	// encoded rows decode back to the same record
	back, err := decodeRow(toStrings(row))
	if err != nil {
		t.Fatalf("decodeRow: %v", err)
	}
	if back.Category != core.Utilities || !back.Amount.Equal(decimal.RequireFromString("1234.5")) || !back.Uncleared {
		t.Errorf("decoded %+v", back)
	}
}

func TestParseSheetDate(t *testing.T) {
	tests := []struct {
		in   string
		want civil.Date
		ok   bool
	}{
		{"2026-12-31", civil.Date{Year: 2026, Month: 12, Day: 31}, true},
		{"45658", civil.Date{Year: 2025, Month: 1, Day: 1}, true},
		{"45658.75", civil.Date{Year: 2025, Month: 1, Day: 1}, true},
		{"", civil.Date{}, false},
		{"0", civil.Date{}, false},
		{"31/12/2026", civil.Date{}, false},
	}
	for _, tt := range tests {
		got, err := parseSheetDate(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseSheetDate(%q) err = %v", tt.in, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("parseSheetDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := map[string]core.Category{
		"food":          core.Food,
		"ENTERTAINMENT": core.Entertainment,
		"Housing/Car":   core.HousingCar,
		"income":        core.Income,
		"":              core.Other,
		"Groceries":     core.Other,
	}
	for in, want := range tests {
		if got := normalizeCategory(in); got != want {
			t.Errorf("normalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"  text ", "text"},
		{120.0, "120"},
		{0.1, "0.1"},
		{true, "true"},
		{int64(7), "7"},
	}
	for _, tt := range tests {
		if got := cellString(tt.in); got != tt.want {
			t.Errorf("cellString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
