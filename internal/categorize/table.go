package categorize

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"expensebot/internal/core"

	"gopkg.in/yaml.v3"
)

// Rule maps a category to the keyword substrings that select it.
type Rule struct {
	Category core.Category `yaml:"category"`
	Keywords []string      `yaml:"keywords"`
}

// Table is an ordered list of rules. Earlier rules win.
type Table []Rule

var ErrEmptyTable = errors.New("category table has no rules")

// DefaultTable returns a fresh copy of the built-in keyword table.
func DefaultTable() Table {
	return Table{
		{core.Shopping, []string{
			"book", "gift", "clothes", "shoes", "bag", "amazon", "lazada",
			"shopee", "sofa", "tuya", "adapter", "phone", "belt", "coffee table",
			"battery", "key", "ladle", "lamp", "perfume", "rug", "stairs",
			"home appliance", "housewares", "shirt", "shorts", "toothpaste",
		}},
		{core.Food, []string{
			"food", "lunch", "dinner", "breakfast", "snack", "meal", "drink",
		}},
		{core.Transport, []string{
			"mrt", "bts", "taxi", "motorcycle", "bus", "rabbit", "grab", "uber",
			"train", "flight", "tsubaru", "airport", "express", "two row car",
			"arl", "srt",
		}},
		{core.Utilities, []string{
			"mobile", "top-up", "mobile top up", "icloud", "internet", "bill",
			"subscription", "netflix", "spotify",
		}},
		{core.Entertainment, []string{
			"movie", "cinema", "game", "concert", "ticket", "show", "party",
			"bar", "club", "youtube", "disney", "badminton",
		}},
		{core.Personal, []string{
			"haircut", "gym", "sport", "massage", "spa", "doctor", "medicine",
			"driving", "medical", "personal care",
		}},
		{core.HousingCar, []string{
			"car", "rent", "condo", "electricity", "water", "home", "house",
		}},
	}
}

// LoadTable decodes a YAML sequence of {category, keywords} entries,
// keeping declaration order.
func LoadTable(r io.Reader) (Table, error) {
	var t Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("decode category table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTableFile reads a YAML table from path.
func LoadTableFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category table: %w", err)
	}
	return LoadTable(bytes.NewReader(data))
}

// Validate checks that every rule names a spending category at most once
// and carries at least one non-blank keyword.
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	seen := make(map[core.Category]bool, len(t))
	for i, r := range t {
		if !r.Category.IsExpense() || r.Category == core.Other {
			return fmt.Errorf("rule %d: %w: %q", i, core.ErrUnknownCategory, r.Category)
		}
		if seen[r.Category] {
			return fmt.Errorf("rule %d: duplicate category %q", i, r.Category)
		}
		seen[r.Category] = true
		if len(r.Keywords) == 0 {
			return fmt.Errorf("rule %d (%s): no keywords", i, r.Category)
		}
		for _, kw := range r.Keywords {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("rule %d (%s): blank keyword", i, r.Category)
			}
		}
	}
	return nil
}
