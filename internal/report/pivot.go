package report

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"expensebot/internal/core"
)

// PivotTarget selects a pivot row by year marker and month abbreviation.
type PivotTarget struct {
	Month string // "Jan"
	Year  string // "2026"
}

// TargetFor converts a period to the pivot table's row keys.
func TargetFor(p core.Period) PivotTarget {
	return PivotTarget{Month: p.Abbrev(), Year: strconv.Itoa(p.Year)}
}

// Label is the heading form, e.g. "Feb 2026".
func (t PivotTarget) Label() string {
	return t.Month + " " + t.Year
}

// AggregatePivot extracts one month from a year × month pivot grid.
//
// Row 0 is a title, row 1 holds headers: two key columns, one column per
// category, and a trailing grand total. Column 0 carries the year only on
// the first row of each year block and is filled down; cells containing
// "Total" never set the year.
func AggregatePivot(rows [][]string, target PivotTarget) (core.AggregationResult, bool) {
	if len(rows) < 3 {
		return core.AggregationResult{}, false
	}
	headers := rows[1]
	if len(headers) < 3 {
		return core.AggregationResult{}, false
	}
	categories := headers[2 : len(headers)-1]

	var (
		currentYear string
		row         []string
	)
	for _, r := range rows[2:] {
		if y := cell(r, 0); y != "" && !strings.Contains(y, "Total") {
			currentYear = y
		}
		if currentYear == target.Year && cell(r, 1) == target.Month {
			row = r
			break
		}
	}
	if row == nil {
		return core.AggregationResult{}, false
	}

	res := core.AggregationResult{
		Source:       core.SourcePivot,
		PeriodLabel:  target.Label(),
		TotalExpense: decimal.Zero,
		TotalIncome:  decimal.Zero,
	}
	sum := decimal.Zero
	for i, name := range categories {
		amount, ok := parseCell(cell(row, i+2))
		if !ok || !amount.IsPositive() {
			continue
		}
		res.Categories = append(res.Categories, core.CategoryAmount{
			Category: core.Category(strings.TrimSpace(name)),
			Amount:   amount,
		})
		sum = sum.Add(amount)
	}

	res.TotalExpense = sum
	if len(row) >= len(headers) {
		if total, ok := parseCell(cell(row, len(headers)-1)); ok {
			res.TotalExpense = total
		}
	}
	return res, true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseCell accepts plain or comma-grouped decimals, optionally signed.
func parseCell(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
