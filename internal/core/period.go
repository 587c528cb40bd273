package core

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

var periodArgRe = regexp.MustCompile(`^(\d{1,2})-(\d{4})$`)

// CurrentPeriod returns the month containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: now.Month()}
}

// ParsePeriod reads an optional MM-YYYY command argument. Anything that is
// not a valid month falls back to the period containing now.
func ParsePeriod(arg string, now time.Time) Period {
	m := periodArgRe.FindStringSubmatch(arg)
	if m == nil {
		return CurrentPeriod(now)
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return CurrentPeriod(now)
	}
	return Period{Year: year, Month: time.Month(month)}
}

// Contains reports whether d falls in the period.
func (p Period) Contains(d civil.Date) bool {
	return d.Year == p.Year && d.Month == p.Month
}

// Label is the long form used in report headings, e.g. "January 2026".
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// Abbrev is the three-letter month name used by the pivot table, e.g. "Jan".
func (p Period) Abbrev() string {
	return p.Month.String()[:3]
}

// Key is the YYYY-MM form.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
