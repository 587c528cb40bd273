package notes

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensebot/internal/core"
	"expensebot/internal/ledger"
)

const exportCSV = `id,title,text,created,updated,labels,archived,trashed
n1,"November 22nd, 2025","☐ coffee 65\n☐ taxi 120",2025-11-22 10:15:30,2025-11-22 18:00:00,['💸 expense'],False,False
n2,Shopping list,"milk
eggs",2025-11-20T08:00:00Z,,[],False,False
n3,"November 21st, 2025",☐ old 10,,,['💸 expense'],False,True
`

func TestLoadCSV(t *testing.T) {
	got, err := LoadCSV(strings.NewReader(exportCSV))
	require.NoError(t, err)
	require.Len(t, got, 2, "trashed notes are dropped")

	first := got[0]
	assert.Equal(t, "n1", first.ID)
	assert.Equal(t, "November 22nd, 2025", first.Title)
	assert.Equal(t, "☐ coffee 65\n☐ taxi 120", first.Text)
	assert.Equal(t, []string{"💸 expense"}, first.Labels)
	assert.Equal(t, time.Date(2025, 11, 22, 10, 15, 30, 0, time.UTC), first.Created)

	second := got[1]
	assert.Equal(t, "milk\neggs", second.Text)
	assert.Empty(t, second.Labels)
	assert.Equal(t, time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC), second.Created)
	assert.True(t, second.Updated.IsZero())
}

func TestLoadCSVErrors(t *testing.T) {
	got, err := LoadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = LoadCSV(strings.NewReader("id,title\n1,x\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseLabels(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"['💸 expense']", []string{"💸 expense"}},
		{`["a", "b"]`, []string{"a", "b"}},
		{"expense; bills", []string{"expense", "bills"}},
		{"[]", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLabels(tt.in))
		})
	}
}

func TestLoadTakeoutDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b.json", `{
		"title": "December 1st, 2025",
		"listContent": [{"text": "lunch 90", "isChecked": false}, {"text": "paid 10", "isChecked": true}],
		"labels": [{"name": "💸 expense"}],
		"createdTimestampUsec": 1764547200000000,
		"isTrashed": false
	}`)
	write("a.json", `{"title": "Ideas", "textContent": "plain text", "isTrashed": false}`)
	write("c.json", `{"title": "gone", "isTrashed": true}`)
	write("notes.html", `<html></html>`)

	got, err := LoadTakeoutDir(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "plain text", got[0].Text)

	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "☐ lunch 90\n☑ paid 10", got[1].Text)
	assert.Equal(t, []string{"💸 expense"}, got[1].Labels)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), got[1].Created)
}

func TestLoadDispatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keep_notes.csv")
	require.NoError(t, os.WriteFile(path, []byte(exportCSV), 0o644))

	fromFile, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, fromFile, 2)

	fromDir, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, fromDir, "csv files are not takeout notes")

	_, err = Load(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestWriteProcessedCSV(t *testing.T) {
	entries := []ledger.Entry{
		{Record: core.LedgerRecord{
			Date:        civil.Date{Year: 2025, Month: 11, Day: 22},
			Category:    core.Food,
			Description: "coffee, iced",
			Amount:      decimal.RequireFromString("65"),
		}},
		{Record: core.LedgerRecord{
			Date:        civil.Date{Year: 2025, Month: 11, Day: 21},
			Category:    core.Transport,
			Description: "taxi",
			Amount:      decimal.RequireFromString("120.5"),
			Uncleared:   true,
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteProcessedCSV(&buf, entries))
	want := "date,category,description,amount,uncleared\n" +
		"2025-11-22,Food,\"coffee, iced\",65.00,false\n" +
		"2025-11-21,Transport,taxi,120.50,true\n"
	assert.Equal(t, want, buf.String())
}
