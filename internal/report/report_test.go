package report

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensebot/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rec(day int, month time.Month, cat core.Category, amount string) core.LedgerRecord {
	return core.LedgerRecord{
		Date:        civil.Date{Year: 2026, Month: month, Day: day},
		Category:    cat,
		Description: "item",
		Amount:      dec(amount),
	}
}

var january = core.Period{Year: 2026, Month: time.January}

func TestAggregate(t *testing.T) {
	records := []core.LedgerRecord{
		rec(2, time.January, core.Food, "150"),
		rec(3, time.January, core.Transport, "90.50"),
		rec(4, time.January, core.Food, "100.25"),
		rec(5, time.January, core.Income, "5000"),
		rec(6, time.February, core.Food, "999"),
		rec(31, time.December, core.Food, "1"),
	}

	res, ok := Aggregate(records, january)
	require.True(t, ok)

	assert.Equal(t, core.SourceLedger, res.Source)
	assert.Equal(t, "January 2026", res.PeriodLabel)
	require.Len(t, res.Categories, 2)
	assert.Equal(t, core.Food, res.Categories[0].Category)
	assert.True(t, res.Categories[0].Amount.Equal(dec("250.25")))
	assert.Equal(t, core.Transport, res.Categories[1].Category)
	assert.True(t, res.TotalExpense.Equal(dec("340.75")))
	assert.True(t, res.TotalIncome.Equal(dec("5000")))
	assert.True(t, res.Balance().Equal(dec("4659.25")))

	_, hasIncome := res.Amount(core.Income)
	assert.False(t, hasIncome, "income must not appear among categories")
}

func TestAggregateEmpty(t *testing.T) {
	_, ok := Aggregate(nil, january)
	assert.False(t, ok)

	_, ok = Aggregate([]core.LedgerRecord{rec(1, time.March, core.Food, "10")}, january)
	assert.False(t, ok)
}

func TestAggregateIncomeOnly(t *testing.T) {
	res, ok := Aggregate([]core.LedgerRecord{rec(1, time.January, core.Income, "100")}, january)
	require.True(t, ok)
	assert.Empty(t, res.Categories)
	assert.True(t, res.TotalExpense.IsZero())
	assert.True(t, res.Balance().Equal(dec("100")))
}

func TestBalanceIdentityDecimalSafe(t *testing.T) {
	var records []core.LedgerRecord
	for i := 0; i < 10; i++ {
		records = append(records, rec(1, time.January, core.Food, "0.1"))
	}
	records = append(records, rec(2, time.January, core.Income, "1"))

	res, ok := Aggregate(records, january)
	require.True(t, ok)
	assert.True(t, res.TotalExpense.Equal(dec("1")))
	assert.True(t, res.Balance().IsZero())
	assert.True(t, res.Balance().Equal(res.TotalIncome.Sub(res.TotalExpense)))
}

func pivotGrid() [][]string {
	return [][]string{
		{"Expense pivot"},
		{"Year", "Month", "Food", "Transport", "Shopping", "Grand Total"},
		{"2025", "Nov", "100", "50", "", "150"},
		{"", "Dec", "200", "0", "-5", "195"},
		{"2025 Total", "", "300", "50", "-5", "345"},
		{"2026", "Jan", "300", "120.5", "80", "500.5"},
		{"", "Feb", "10", "abc", "5", ""},
		{"", "Mar", "1,200", "30"},
		{"2026 Total", "", "1510", "150.5", "85", "1745.5"},
		{"Grand Total", "", "1810", "200.5", "80", "2090.5"},
	}
}

func TestAggregatePivot(t *testing.T) {
	res, ok := AggregatePivot(pivotGrid(), PivotTarget{Month: "Jan", Year: "2026"})
	require.True(t, ok)

	assert.Equal(t, core.SourcePivot, res.Source)
	assert.Equal(t, "Jan 2026", res.PeriodLabel)
	require.Len(t, res.Categories, 3)
	assert.Equal(t, core.Category("Food"), res.Categories[0].Category)
	assert.True(t, res.Categories[1].Amount.Equal(dec("120.5")))
	assert.True(t, res.TotalExpense.Equal(dec("500.5")))
	assert.True(t, res.TotalIncome.IsZero())
}

func TestAggregatePivotFillDown(t *testing.T) {
	res, ok := AggregatePivot(pivotGrid(), PivotTarget{Month: "Dec", Year: "2025"})
	require.True(t, ok)
	// zero and negative category values are dropped
	require.Len(t, res.Categories, 1)
	assert.Equal(t, core.Category("Food"), res.Categories[0].Category)
	assert.True(t, res.TotalExpense.Equal(dec("195")))

	grid := [][]string{
		{"title"},
		{"", "", "Food", "Total"},
		{"2024", "Jan", "1", "1"},
		{"", "Feb", "2", "2"},
		{"", "Mar", "3", "3"},
	}
	for _, m := range []string{"Jan", "Feb", "Mar"} {
		_, ok := AggregatePivot(grid, PivotTarget{Month: m, Year: "2024"})
		assert.True(t, ok, m)
	}
}

func TestAggregatePivotGrandTotalFallback(t *testing.T) {
	// blank grand total falls back to the computed sum; "abc" is skipped
	res, ok := AggregatePivot(pivotGrid(), PivotTarget{Month: "Feb", Year: "2026"})
	require.True(t, ok)
	require.Len(t, res.Categories, 2)
	assert.True(t, res.TotalExpense.Equal(dec("15")))

	// short row has no grand total column at all
	res, ok = AggregatePivot(pivotGrid(), PivotTarget{Month: "Mar", Year: "2026"})
	require.True(t, ok)
	assert.True(t, res.TotalExpense.Equal(dec("1230")))
}

func TestAggregatePivotNoMatch(t *testing.T) {
	grid := pivotGrid()
	cases := []PivotTarget{
		{Month: "Jan", Year: "2024"},
		{Month: "Apr", Year: "2026"},
		{Month: "jan", Year: "2026"},
	}
	for _, target := range cases {
		_, ok := AggregatePivot(grid, target)
		assert.False(t, ok, target.Label())
	}

	_, ok := AggregatePivot(grid[:2], PivotTarget{Month: "Jan", Year: "2026"})
	assert.False(t, ok)
	_, ok = AggregatePivot(nil, PivotTarget{Month: "Jan", Year: "2026"})
	assert.False(t, ok)
}

func TestAggregatePivotFirstMatchWins(t *testing.T) {
	grid := [][]string{
		{"title"},
		{"Year", "Month", "Food", "Grand Total"},
		{"2026", "Jan", "10", "10"},
		{"", "Jan", "20", "20"},
	}
	res, ok := AggregatePivot(grid, PivotTarget{Month: "Jan", Year: "2026"})
	require.True(t, ok)
	assert.True(t, res.TotalExpense.Equal(dec("10")))
}

func TestTargetFor(t *testing.T) {
	assert.Equal(t, PivotTarget{Month: "Feb", Year: "2026"}, TargetFor(core.Period{Year: 2026, Month: time.February}))
}

func ledgerResult() core.AggregationResult {
	return core.AggregationResult{
		Source:      core.SourceLedger,
		PeriodLabel: "January 2026",
		Categories: []core.CategoryAmount{
			{Category: core.Transport, Amount: dec("90.5")},
			{Category: core.Food, Amount: dec("1250.25")},
			{Category: core.Shopping, Amount: dec("90.5")},
		},
		TotalExpense: dec("1431.25"),
		TotalIncome:  dec("1000"),
	}
}

func TestFormatPlain(t *testing.T) {
	got := Formatter{}.Format(ledgerResult(), Plain)
	want := "*Report for January 2026*\n\n" +
		"*Expenses by Category:*\n" +
		"- Food: ฿1,250.25\n" +
		"- Transport: ฿90.50\n" +
		"- Shopping: ฿90.50\n" +
		"\n" +
		"*Total Expense:* ฿1,431.25\n" +
		"*Total Income:* ฿1,000.00\n" +
		"*Balance:* ฿-431.25"
	assert.Equal(t, want, got)
}

func TestFormatPlainPivot(t *testing.T) {
	res := core.AggregationResult{
		Source:       core.SourcePivot,
		PeriodLabel:  "Feb 2026",
		Categories:   []core.CategoryAmount{{Category: "Food", Amount: dec("10")}},
		TotalExpense: dec("10"),
	}
	want := "*Annual Report: Feb 2026*\n\n" +
		"*Expenses by Category:*\n" +
		"- Food: ฿10.00\n" +
		"\n" +
		"*Total Monthly Expense:* ฿10.00"
	assert.Equal(t, want, NewFormatter("฿").Format(res, Plain))
}

func TestFormatRichMasked(t *testing.T) {
	res := ledgerResult()
	res.Categories = append(res.Categories, core.CategoryAmount{Category: "Pets (misc)", Amount: dec("1")})

	got := Formatter{}.Format(res, RichMasked)
	want := ">*📊 Report for January 2026*\n" +
		">\n" +
		">*Expenses by Category:*\n" +
		">🍜 Food: ||฿1,250\\.25||\n" +
		">🚕 Transport: ||฿90\\.50||\n" +
		">🛍️ Shopping: ||฿90\\.50||\n" +
		">🏷️ Pets \\(misc\\): ||฿1\\.00||\n" +
		">\n" +
		">*Total Expense:* ||฿1,431\\.25||\n" +
		">*Total Income:* ||฿1,000\\.00||\n" +
		">*Balance:* ||฿\\-431\\.25||"
	assert.Equal(t, want, got)
}

func TestFormatIsIdempotent(t *testing.T) {
	f := Formatter{}
	for _, style := range []Style{Plain, RichMasked} {
		assert.Equal(t, f.Format(ledgerResult(), style), f.Format(ledgerResult(), style))
	}
}

func TestFormatDoesNotReorderInput(t *testing.T) {
	res := ledgerResult()
	_ = Formatter{}.Format(res, Plain)
	assert.Equal(t, core.Transport, res.Categories[0].Category)
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `a\_b\*c\[d\]\(e\)\~f\`+"`"+`g\>h\#i\+j\-k\=l\|m\{n\}o\.p\!q\\r`,
		EscapeMarkdownV2("a_b*c[d](e)~f`g>h#i+j-k=l|m{n}o.p!q\\r"))
	assert.Equal(t, "plain text", EscapeMarkdownV2("plain text"))
}

func TestParseStyle(t *testing.T) {
	s, ok := ParseStyle("RICH")
	assert.True(t, ok)
	assert.Equal(t, RichMasked, s)

	s, ok = ParseStyle("plain")
	assert.True(t, ok)
	assert.Equal(t, Plain, s)

	_, ok = ParseStyle("fancy")
	assert.False(t, ok)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "No records found for January 2026.", NoRecordsMessage(january.Label()))
	assert.Equal(t, "No report data found for this period.", NoPivotDataMessage)
}
