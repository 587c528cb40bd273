// Package notes reads notes-app exports into ledger notes and writes the
// processed ledger artifact.
package notes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"expensebot/internal/ledger"
)

var ErrMissingColumn = errors.New("notes export is missing a required column")

// Columns of the CSV export. Extra columns are ignored.
const (
	colID      = "id"
	colTitle   = "title"
	colText    = "text"
	colCreated = "created"
	colUpdated = "updated"
	colLabels  = "labels"
	colTrashed = "trashed"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Load reads a notes export. A directory is read as a Google Takeout Keep
// folder, anything else as the CSV export.
func Load(path string) ([]ledger.Note, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat notes export: %w", err)
	}
	if info.IsDir() {
		return LoadTakeoutDir(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open notes export: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads the tabular export (id, title, text, created, updated,
// labels, ...). Trashed notes are dropped.
func LoadCSV(r io.Reader) ([]ledger.Note, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colTitle, colText, colLabels} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []ledger.Note
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if isTrue(get(row, colTrashed)) {
			continue
		}
		out = append(out, ledger.Note{
			ID:      get(row, colID),
			Title:   strings.TrimSpace(get(row, colTitle)),
			Text:    unescapeNewlines(get(row, colText)),
			Labels:  ParseLabels(get(row, colLabels)),
			Created: parseTimestamp(get(row, colCreated)),
			Updated: parseTimestamp(get(row, colUpdated)),
		})
	}
	return out, nil
}

// ParseLabels accepts a list literal such as "['💸 expense', 'bills']" or
// a plain comma or semicolon separated list.
func ParseLabels(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })

	var labels []string
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}

// unescapeNewlines turns literal "\n" sequences written by some exporters
// into real line breaks.
func unescapeNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
