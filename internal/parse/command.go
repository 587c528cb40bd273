// Package parse turns loosely structured text into parsed ledger lines.
// Nothing here performs I/O; malformed input yields ok == false.
package parse

import (
	"regexp"
	"strings"

	"expensebot/internal/core"
)

const (
	Expense Mode = iota
	Income
)

// Mode selects the command grammar.
type Mode int

func (m Mode) String() string {
	if m == Income {
		return "income"
	}
	return "expense"
}

// CategoryLookup resolves an override token to a known category.
type CategoryLookup interface {
	Lookup(token string) (core.Category, bool)
}

// Result is a parsed chat command. Override is empty unless the last
// token named a category.
type Result struct {
	Line     core.ParsedLine
	Override core.Category
}

var commandPrefixRe = regexp.MustCompile(`(?i)^/(expense|income)(@\S+)?\s*`)

// Command parses "<amount> <description...> [category]". A leading
// /expense or /income command word is stripped first.
func Command(text string, mode Mode, known CategoryLookup) (Result, bool) {
	clean := strings.TrimSpace(commandPrefixRe.ReplaceAllString(strings.TrimSpace(text), ""))
	parts := strings.Fields(clean)
	if len(parts) < 2 {
		return Result{}, false
	}
	amount, err := core.ParseAmount(parts[0])
	if err != nil {
		return Result{}, false
	}

	words := parts[1:]
	var override core.Category
	if mode == Expense && known != nil && len(words) > 1 {
		if cat, ok := known.Lookup(words[len(words)-1]); ok {
			override = cat
			words = words[:len(words)-1]
		}
	}

	return Result{
		Line: core.ParsedLine{
			Description: strings.Join(words, " "),
			Amount:      amount,
		},
		Override: override,
	}, true
}
