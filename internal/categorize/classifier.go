// Package categorize maps free-text descriptions to spending categories
// using an ordered keyword table.
package categorize

import (
	"strings"

	"expensebot/internal/core"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules []Rule
	names map[string]core.Category
}

// New builds a classifier from a copy of t with lowercased keywords.
func New(t Table) *Classifier {
	c := &Classifier{
		rules: make([]Rule, 0, len(t)),
		names: make(map[string]core.Category, len(t)),
	}
	for _, r := range t {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kws = append(kws, strings.ToLower(kw))
		}
		c.rules = append(c.rules, Rule{Category: r.Category, Keywords: kws})
		c.names[string(r.Category)] = r.Category
	}
	return c
}

// NewDefault builds a classifier over DefaultTable.
func NewDefault() *Classifier {
	return New(DefaultTable())
}

// Classify returns the first category, in table order, having a keyword
// contained in the lowercased description. Other when nothing matches.
func (c *Classifier) Classify(description string) core.Category {
	desc := strings.ToLower(description)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, kw) {
				return r.Category
			}
		}
	}
	return core.Other
}

// Lookup title-cases token and reports whether it names a table category.
func (c *Classifier) Lookup(token string) (core.Category, bool) {
	name := cases.Title(language.English).String(strings.TrimSpace(token))
	cat, ok := c.names[name]
	return cat, ok
}

// Categories returns the table's categories in declaration order.
func (c *Classifier) Categories() []core.Category {
	out := make([]core.Category, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.Category)
	}
	return out
}
