package google

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"expensebot/internal/core"
)

// Ledger column layout: [date, category, description, amount, uncleared].
const (
	colDate = iota
	colCategory
	colDescription
	colAmount
	colUncleared
)

// Sheets stores dates as days since this epoch.
var serialEpoch = civil.Date{Year: 1899, Month: 12, Day: 30}

func ledgerHeader() []interface{} {
	return []interface{}{"Date", "Category", "Description", "Amount", "Uncleared"}
}

func encodeRecord(r core.LedgerRecord) []interface{} {
	return []interface{}{
		r.Date.String(),
		string(r.Category),
		r.Description,
		r.Amount.String(),
		r.Uncleared,
	}
}

// decodeLedger converts a values matrix into records, skipping the header
// row and blank rows. Rows that cannot be decoded are counted in skipped.
func decodeLedger(values [][]interface{}) (records []core.LedgerRecord, skipped int) {
	for i, raw := range values {
		row := toStrings(raw)
		if isBlankRow(row) {
			continue
		}
		if i == 0 && strings.EqualFold(safeGet(row, colDate), "date") {
			continue
		}
		r, err := decodeRow(row)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, r)
	}
	return records, skipped
}

func decodeRow(row []string) (core.LedgerRecord, error) {
	date, err := parseSheetDate(safeGet(row, colDate))
	if err != nil {
		return core.LedgerRecord{}, err
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(safeGet(row, colAmount), ",", ""))
	if err != nil {
		return core.LedgerRecord{}, fmt.Errorf("amount %q: %w", safeGet(row, colAmount), core.ErrInvalidAmount)
	}
	r := core.LedgerRecord{
		Date:        date,
		Category:    normalizeCategory(safeGet(row, colCategory)),
		Description: strings.Join(strings.Fields(safeGet(row, colDescription)), " "),
		Amount:      amount,
		Uncleared:   parseFlag(safeGet(row, colUncleared)),
	}
	if err := r.Validate(); err != nil {
		return core.LedgerRecord{}, err
	}
	return r, nil
}

// parseSheetDate accepts ISO dates and serial day numbers.
func parseSheetDate(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, core.ErrInvalidDate
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 1 {
		return serialEpoch.AddDays(int(f)), nil
	}
	return civil.Date{}, fmt.Errorf("date %q: %w", s, core.ErrInvalidDate)
}

// normalizeCategory matches known categories case-insensitively.
// Anything else is treated as Other.
func normalizeCategory(s string) core.Category {
	for _, c := range append(core.SpendingCategories(), core.Income) {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return core.Other
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "x", "1", "uncleared":
		return true
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cellString(v)
	}
	return out
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func safeGet(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}
