package categorize

import (
	"strings"
	"testing"

	"expensebot/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := NewDefault()

	tests := []struct {
		desc string
		want core.Category
	}{
		{"new shoes", core.Shopping},
		{"Lunch with team", core.Food},
		{"BTS to Siam", core.Transport},
		{"Netflix", core.Utilities},
		{"cinema night", core.Entertainment},
		{"haircut", core.Personal},
		{"condo fee", core.HousingCar},
		{"grab coffee", core.Transport},
		{"coffee", core.Other},
		{"", core.Other},
		{"12345", core.Other},
		// "phone" (Shopping) is declared before "mobile" (Utilities)
		{"mobile phone top up", core.Shopping},
		// "bar" sits inside "barber" and Entertainment precedes Personal
		{"barber haircut", core.Entertainment},
		// plain substring match
		{"scarf", core.HousingCar},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.desc))
		})
	}
}

func TestClassifyOrderIsTableOrder(t *testing.T) {
	shared := "ticket"
	first := New(Table{
		{core.Transport, []string{shared}},
		{core.Entertainment, []string{shared}},
	})
	second := New(Table{
		{core.Entertainment, []string{shared}},
		{core.Transport, []string{shared}},
	})

	assert.Equal(t, core.Transport, first.Classify("train ticket"))
	assert.Equal(t, core.Entertainment, second.Classify("train ticket"))
}

func TestClassifierCopiesTable(t *testing.T) {
	table := Table{{core.Food, []string{"Lunch"}}}
	c := New(table)
	table[0].Keywords[0] = "dinner"
	table[0].Category = core.Shopping

	assert.Equal(t, core.Food, c.Classify("late LUNCH"))
	assert.Equal(t, core.Other, c.Classify("dinner"))
}

func TestLookup(t *testing.T) {
	c := NewDefault()

	tests := []struct {
		token string
		want  core.Category
		ok    bool
	}{
		{"Transport", core.Transport, true},
		{"transport", core.Transport, true},
		{"FOOD", core.Food, true},
		{"housing/car", core.HousingCar, true},
		{"Other", "", false},
		{"Income", "", false},
		{"airport", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := c.Lookup(tt.token)
		assert.Equal(t, tt.ok, ok, tt.token)
		assert.Equal(t, tt.want, got, tt.token)
	}
}

func TestDefaultTableIsFresh(t *testing.T) {
	a := DefaultTable()
	a[0].Keywords[0] = "mutated"
	b := DefaultTable()
	assert.Equal(t, "book", b[0].Keywords[0])
	require.NoError(t, b.Validate())
	assert.Equal(t, []core.Category{
		core.Shopping, core.Food, core.Transport, core.Utilities,
		core.Entertainment, core.Personal, core.HousingCar,
	}, New(b).Categories())
}

func TestLoadTable(t *testing.T) {
	src := `
- category: Food
  keywords: [coffee, lunch]
- category: Transport
  keywords: [grab]
`
	table, err := LoadTable(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, table, 2)

	c := New(table)
	assert.Equal(t, core.Food, c.Classify("grab coffee"))
	assert.Equal(t, core.Transport, c.Classify("grab"))
}

func TestLoadTableErrors(t *testing.T) {
	tests := map[string]string{
		"empty":            "",
		"unknown category": "- category: Groceries\n  keywords: [milk]\n",
		"other category":   "- category: Other\n  keywords: [misc]\n",
		"duplicate":        "- category: Food\n  keywords: [a]\n- category: Food\n  keywords: [b]\n",
		"no keywords":      "- category: Food\n  keywords: []\n",
		"blank keyword":    "- category: Food\n  keywords: [\" \"]\n",
		"unknown field":    "- category: Food\n  words: [a]\n",
		"not a list":       "category: Food\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTable(strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}
