// Package report aggregates ledger data by period and renders summaries.
package report

import (
	"github.com/shopspring/decimal"

	"expensebot/internal/core"
)

// Aggregate sums the records of period by category. Income records feed
// TotalIncome instead of the category list. ok is false when no record
// falls in the period.
func Aggregate(records []core.LedgerRecord, period core.Period) (core.AggregationResult, bool) {
	res := core.AggregationResult{
		Source:       core.SourceLedger,
		PeriodLabel:  period.Label(),
		TotalExpense: decimal.Zero,
		TotalIncome:  decimal.Zero,
	}

	index := make(map[core.Category]int)
	matched := 0
	for _, r := range records {
		if !period.Contains(r.Date) {
			continue
		}
		matched++
		if r.IsIncome() {
			res.TotalIncome = res.TotalIncome.Add(r.Amount)
			continue
		}
		i, ok := index[r.Category]
		if !ok {
			i = len(res.Categories)
			index[r.Category] = i
			res.Categories = append(res.Categories, core.CategoryAmount{Category: r.Category, Amount: decimal.Zero})
		}
		res.Categories[i].Amount = res.Categories[i].Amount.Add(r.Amount)
	}
	if matched == 0 {
		return core.AggregationResult{}, false
	}

	for _, ca := range res.Categories {
		res.TotalExpense = res.TotalExpense.Add(ca.Amount)
	}
	return res, true
}
