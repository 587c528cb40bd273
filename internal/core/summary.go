package core

import "github.com/shopspring/decimal"

const (
	SourceLedger Source = "ledger"
	SourcePivot  Source = "pivot"
)

// Source identifies which data source produced an aggregation.
type Source string

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category
	Amount   decimal.Decimal
}

// AggregationResult is the unified output of both aggregation modes.
// Categories keeps first-seen order; sorting is a rendering concern.
type AggregationResult struct {
	Source       Source
	PeriodLabel  string
	Categories   []CategoryAmount
	TotalExpense decimal.Decimal
	TotalIncome  decimal.Decimal
}

// Balance is TotalIncome minus TotalExpense.
func (r AggregationResult) Balance() decimal.Decimal {
	return r.TotalIncome.Sub(r.TotalExpense)
}

// Amount returns the summed amount for c, if present.
func (r AggregationResult) Amount(c Category) (decimal.Decimal, bool) {
	for _, ca := range r.Categories {
		if ca.Category == c {
			return ca.Amount, true
		}
	}
	return decimal.Zero, false
}
