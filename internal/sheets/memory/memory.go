package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"expensebot/internal/core"
	ports "expensebot/internal/sheets"
)

// Store is an in-process ledger and pivot grid, used for local runs and tests.
type Store struct {
	mu    sync.Mutex
	items []core.LedgerRecord
	pivot [][]string
}

var (
	_ ports.RecordAppender = (*Store)(nil)
	_ ports.BatchAppender  = (*Store)(nil)
	_ ports.LedgerReader   = (*Store)(nil)
	_ ports.PivotReader    = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// NewFromFiles seeds the store from seed_ledger.csv and seed_pivot.csv in
// base. Missing files leave the store empty; malformed ledger rows are
// skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for _, row := range readCSV(filepath.Join(base, "seed_ledger.csv")) {
		if r, ok := decodeSeedRow(row); ok {
			s.items = append(s.items, r)
		}
	}
	s.pivot = readCSV(filepath.Join(base, "seed_pivot.csv"))
	return s
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r core.LedgerRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// AppendBatch stores all records or none.
func (s *Store) AppendBatch(_ context.Context, rs []core.LedgerRecord) (int, error) {
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, rs...)
	return len(rs), nil
}

func (s *Store) ReadLedger(_ context.Context) ([]core.LedgerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LedgerRecord(nil), s.items...), nil
}

func (s *Store) ReadPivot(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.pivot))
	for i, row := range s.pivot {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

// SetPivot replaces the pivot grid.
func (s *Store) SetPivot(rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pivot = rows
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func readCSV(path string) [][]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	rows, err := cr.ReadAll()
	if err != nil {
		return nil
	}
	return rows
}

// decodeSeedRow reads [date, category, description, amount, uncleared?].
func decodeSeedRow(row []string) (core.LedgerRecord, bool) {
	if len(row) < 4 {
		return core.LedgerRecord{}, false
	}
	date, err := civil.ParseDate(strings.TrimSpace(row[0]))
	if err != nil {
		return core.LedgerRecord{}, false
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(row[3]))
	if err != nil {
		return core.LedgerRecord{}, false
	}
	r := core.LedgerRecord{
		Date:        date,
		Category:    core.Category(strings.TrimSpace(row[1])),
		Description: strings.TrimSpace(row[2]),
		Amount:      amount,
		Uncleared:   len(row) > 4 && strings.EqualFold(strings.TrimSpace(row[4]), "true"),
	}
	if r.Validate() != nil {
		return core.LedgerRecord{}, false
	}
	return r, true
}
