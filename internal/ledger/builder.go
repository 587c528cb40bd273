// Package ledger builds ledger records from parsed lines and turns batches of
// dated notes into ordered record sequences.
package ledger

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"expensebot/internal/core"
	"expensebot/internal/parse"
)

// Classifier resolves a description to a spending category.
type Classifier interface {
	Classify(description string) core.Category
}

// Builder combines parsed lines, dates and categories into records.
type Builder struct {
	classifier Classifier
	now        func() time.Time
	loc        *time.Location
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the process clock used by Today.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithLocation sets the time zone used to turn the clock into a date.
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) {
		if loc != nil {
			b.loc = loc
		}
	}
}

func NewBuilder(classifier Classifier, opts ...Option) *Builder {
	b := &Builder{
		classifier: classifier,
		now:        time.Now,
		loc:        time.Local,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Today is the current date in the builder's location.
func (b *Builder) Today() civil.Date {
	return civil.DateOf(b.now().In(b.loc))
}

// Now is the builder's clock in its location.
func (b *Builder) Now() time.Time {
	return b.now().In(b.loc)
}

// Build assigns the category and returns a validated record. Income forces
// the Income category; a non-empty explicit category is used verbatim.
func (b *Builder) Build(parsed core.ParsedLine, date civil.Date, explicit core.Category, isIncome bool) (core.LedgerRecord, error) {
	var category core.Category
	switch {
	case isIncome:
		category = core.Income
	case explicit != "":
		category = explicit
	default:
		category = b.classifier.Classify(parsed.Description)
	}

	r := core.LedgerRecord{
		Date:        date,
		Category:    category,
		Description: parsed.Description,
		Amount:      parsed.Amount,
		Uncleared:   parsed.Uncleared,
	}
	if err := r.Validate(); err != nil {
		return core.LedgerRecord{}, fmt.Errorf("build record: %w", err)
	}
	return r, nil
}

// FromCommand builds a record dated today from a parsed chat command.
// Chat records are never uncleared.
func (b *Builder) FromCommand(res parse.Result, mode parse.Mode) (core.LedgerRecord, error) {
	line := res.Line
	line.Uncleared = false
	return b.Build(line, b.Today(), res.Override, mode == parse.Income)
}
