package ledger

import (
	"sort"
	"strings"
	"time"

	"expensebot/internal/core"
	"expensebot/internal/parse"
)

const (
	Ascending Order = iota
	Descending
)

// ExpenseLabel is the label substring that marks a note for import.
const ExpenseLabel = "expense"

// Order selects the date direction of a sorted batch.
type Order int

// Note is a notes-app note as supplied by an export.
type Note struct {
	ID      string
	Title   string
	Text    string
	Labels  []string
	Created time.Time
	Updated time.Time
}

// Entry is a record tagged with its origin. Sequence grows monotonically
// across a batch so it preserves the reading order of every note's lines.
type Entry struct {
	Record   core.LedgerRecord
	NoteID   string
	Sequence int
}

// ProcessStats counts what a batch run kept and skipped.
type ProcessStats struct {
	Notes        int
	Matched      int
	BadTitle     int
	LinesParsed  int
	LinesSkipped int
}

// BatchProcessor converts labelled checklist notes into ledger entries.
type BatchProcessor struct {
	builder *Builder
}

func NewBatchProcessor(b *Builder) *BatchProcessor {
	return &BatchProcessor{builder: b}
}

// Process returns entries in input order. Notes without the expense label
// or with an unparseable title contribute nothing.
func (p *BatchProcessor) Process(notes []Note) ([]Entry, ProcessStats) {
	var (
		out   []Entry
		stats ProcessStats
		seq   int
	)
	for _, n := range notes {
		stats.Notes++
		if !HasExpenseLabel(n.Labels) {
			continue
		}
		stats.Matched++

		date, ok := parse.NoteTitle(n.Title)
		if !ok {
			stats.BadTitle++
			continue
		}

		for _, line := range strings.Split(n.Text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			parsed, ok := parse.NoteLine(line)
			if !ok {
				stats.LinesSkipped++
				continue
			}
			rec, err := p.builder.Build(parsed, date, "", false)
			if err != nil {
				stats.LinesSkipped++
				continue
			}
			out = append(out, Entry{Record: rec, NoteID: n.ID, Sequence: seq})
			seq++
			stats.LinesParsed++
		}
	}
	return out, stats
}

// HasExpenseLabel reports whether any label contains "expense", ignoring case.
func HasExpenseLabel(labels []string) bool {
	for _, l := range labels {
		if strings.Contains(strings.ToLower(l), ExpenseLabel) {
			return true
		}
	}
	return false
}

// Sort orders entries in place by date then sequence. Descending reverses
// the dates only; entries sharing a date keep their reading order.
func Sort(entries []Entry, order Order) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Record.Date != b.Record.Date {
			if order == Descending {
				return a.Record.Date.After(b.Record.Date)
			}
			return a.Record.Date.Before(b.Record.Date)
		}
		return a.Sequence < b.Sequence
	})
}

// Records strips the entry metadata.
func Records(entries []Entry) []core.LedgerRecord {
	out := make([]core.LedgerRecord, len(entries))
	for i, e := range entries {
		out[i] = e.Record
	}
	return out
}
