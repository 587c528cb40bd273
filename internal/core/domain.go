package core

import (
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const (
	Shopping      Category = "Shopping"
	Food          Category = "Food"
	Transport     Category = "Transport"
	Utilities     Category = "Utilities"
	Entertainment Category = "Entertainment"
	Personal      Category = "Personal"
	HousingCar    Category = "Housing/Car"
	Other         Category = "Other"
	Income        Category = "Income"
)

type (
	// Category is a spending category label or the reserved Income label.
	Category string

	// LedgerRecord is one financial event as appended to the ledger.
	LedgerRecord struct {
		Date        civil.Date
		Category    Category
		Description string
		Amount      decimal.Decimal
		Uncleared   bool
	}

	// ParsedLine is the transient output of the line parser.
	ParsedLine struct {
		Description string
		Amount      decimal.Decimal
		Uncleared   bool
	}

	// User is a chat user known to the bot.
	User struct {
		ID           int64
		Username     string
		Authorized   bool
		RegisteredAt time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidDate      = errors.New("invalid date")
)

// SpendingCategories lists the closed set of expense categories, Other included.
func SpendingCategories() []Category {
	return []Category{Shopping, Food, Transport, Utilities, Entertainment, Personal, HousingCar, Other}
}

// IsExpense reports whether c is one of the spending categories.
func (c Category) IsExpense() bool {
	for _, s := range SpendingCategories() {
		if c == s {
			return true
		}
	}
	return false
}

// Valid reports whether c is a spending category or Income.
func (c Category) Valid() bool {
	return c == Income || c.IsExpense()
}

func (c Category) String() string { return string(c) }

func (r LedgerRecord) Validate() error {
	if !r.Date.IsValid() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	if r.Description != strings.TrimSpace(r.Description) {
		return errors.New("description must be trimmed")
	}
	if r.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !r.Category.Valid() {
		return ErrUnknownCategory
	}
	return nil
}

// IsIncome reports whether the record carries the reserved Income category.
func (r LedgerRecord) IsIncome() bool {
	return r.Category == Income
}
