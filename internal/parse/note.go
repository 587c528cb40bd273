package parse

import (
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"expensebot/internal/core"
)

const (
	UncheckedBox = "☐"
	CheckedBox   = "☑"
)

var (
	// Greedy prefix so the last number on the line is the amount.
	// Thousands separators are not understood: "Coffee 1,200" reads as 1
	// and the rest of the line is ignored, like trailing notes are.
	noteLineRe    = regexp.MustCompile(`(?i)^(.*)\s+(\d+(?:\.\d+)?)(?:\s+UNCLEARED)?.*$`)
	ordinalRe     = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)
	noteTitleForm = "January 2, 2006"
)

// NoteLine parses a checklist line such as "☐ Grocery run 450 UNCLEARED".
// Only unchecked items are accepted.
func NoteLine(line string) (core.ParsedLine, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, UncheckedBox) {
		return core.ParsedLine{}, false
	}
	body := strings.TrimSpace(strings.Replace(trimmed, UncheckedBox, "", 1))
	if body == "" {
		return core.ParsedLine{}, false
	}

	m := noteLineRe.FindStringSubmatch(body)
	if m == nil {
		return core.ParsedLine{}, false
	}
	desc := strings.Join(strings.Fields(m[1]), " ")
	if desc == "" {
		return core.ParsedLine{}, false
	}
	amount, err := core.ParseAmount(m[2])
	if err != nil {
		return core.ParsedLine{}, false
	}

	return core.ParsedLine{
		Description: desc,
		Amount:      amount,
		Uncleared:   strings.Contains(strings.ToUpper(body), "UNCLEARED"),
	}, true
}

// NoteTitle parses a note title like "November 22nd, 2025".
func NoteTitle(title string) (civil.Date, bool) {
	clean := ordinalRe.ReplaceAllString(strings.TrimSpace(title), "$1")
	t, err := time.Parse(noteTitleForm, clean)
	if err != nil {
		return civil.Date{}, false
	}
	return civil.DateOf(t), true
}
