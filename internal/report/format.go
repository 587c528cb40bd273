package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"expensebot/internal/core"
)

const (
	Plain Style = iota
	RichMasked
)

// DefaultCurrency is the Thai baht sign.
const DefaultCurrency = "฿"

const fallbackEmoji = "🏷️"

// Style selects the presentation form of a report.
type Style int

func (s Style) String() string {
	if s == RichMasked {
		return "rich"
	}
	return "plain"
}

// ParseStyle maps "plain" and "rich" (any case) to a Style.
func ParseStyle(s string) (Style, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain":
		return Plain, true
	case "rich", "richmasked", "masked":
		return RichMasked, true
	}
	return Plain, false
}

var categoryEmoji = map[core.Category]string{
	core.Shopping:      "🛍️",
	core.Food:          "🍜",
	core.Transport:     "🚕",
	core.Utilities:     "💡",
	core.Entertainment: "🎬",
	core.Personal:      "💆",
	core.HousingCar:    "🏠",
	core.Other:         "📦",
	core.Income:        "💰",
}

// Formatter renders aggregation results. The zero value uses DefaultCurrency.
type Formatter struct {
	Currency string
}

func NewFormatter(currency string) Formatter {
	return Formatter{Currency: currency}
}

func (f Formatter) currency() string {
	if f.Currency == "" {
		return DefaultCurrency
	}
	return f.Currency
}

type reportLine struct {
	label  string
	amount decimal.Decimal
}

type layout struct {
	heading    string
	categories []core.CategoryAmount
	totals     []reportLine
}

// Format renders res in the given style. Output depends only on its inputs.
func (f Formatter) Format(res core.AggregationResult, style Style) string {
	l := f.layout(res)
	if style == RichMasked {
		return f.rich(l)
	}
	return f.plain(l)
}

func (f Formatter) layout(res core.AggregationResult) layout {
	l := layout{categories: sortedByAmount(res.Categories)}
	if res.Source == core.SourcePivot {
		l.heading = "Annual Report: " + res.PeriodLabel
		l.totals = []reportLine{{"Total Monthly Expense:", res.TotalExpense}}
		return l
	}
	l.heading = "Report for " + res.PeriodLabel
	l.totals = []reportLine{
		{"Total Expense:", res.TotalExpense},
		{"Total Income:", res.TotalIncome},
		{"Balance:", res.Balance()},
	}
	return l
}

func (f Formatter) plain(l layout) string {
	var b strings.Builder
	b.WriteString("*" + l.heading + "*\n\n")
	if len(l.categories) > 0 {
		b.WriteString("*Expenses by Category:*\n")
		for _, ca := range l.categories {
			b.WriteString("- " + string(ca.Category) + ": " + f.Money(ca.Amount) + "\n")
		}
		b.WriteString("\n")
	}
	for i, t := range l.totals {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("*" + t.label + "* " + f.Money(t.amount))
	}
	return b.String()
}

// rich renders Telegram MarkdownV2: escaped text, amounts as spoilers,
// every line inside a block quote.
func (f Formatter) rich(l layout) string {
	lines := []string{"*📊 " + EscapeMarkdownV2(l.heading) + "*", ""}
	if len(l.categories) > 0 {
		lines = append(lines, "*Expenses by Category:*")
		for _, ca := range l.categories {
			lines = append(lines, emojiFor(ca.Category)+" "+EscapeMarkdownV2(string(ca.Category))+": "+f.spoiler(ca.Amount))
		}
		lines = append(lines, "")
	}
	for _, t := range l.totals {
		lines = append(lines, "*"+EscapeMarkdownV2(t.label)+"* "+f.spoiler(t.amount))
	}
	for i, line := range lines {
		lines[i] = ">" + line
	}
	return strings.Join(lines, "\n")
}

// Money renders an amount with the currency sign, e.g. ฿1,234.50.
func (f Formatter) Money(d decimal.Decimal) string {
	return f.currency() + core.FormatAmount(d)
}

func (f Formatter) spoiler(d decimal.Decimal) string {
	return "||" + EscapeMarkdownV2(f.Money(d)) + "||"
}

func emojiFor(c core.Category) string {
	if e, ok := categoryEmoji[c]; ok {
		return e
	}
	return fallbackEmoji
}

func sortedByAmount(in []core.CategoryAmount) []core.CategoryAmount {
	out := append([]core.CategoryAmount(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// EscapeMarkdownV2 escapes the characters Telegram's MarkdownV2 reserves.
func EscapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune("_*[]()~`>#+-=|{}.!\\", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NoRecordsMessage is shown when a ledger period has no records.
func NoRecordsMessage(label string) string {
	return "No records found for " + label + "."
}

// NoPivotDataMessage is shown when the pivot table has no matching row.
const NoPivotDataMessage = "No report data found for this period."
