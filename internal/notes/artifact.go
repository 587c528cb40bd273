package notes

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"expensebot/internal/ledger"
)

var artifactHeader = []string{"date", "category", "description", "amount", "uncleared"}

// WriteProcessedCSV writes entries in their current order as
// date,category,description,amount,uncleared.
func WriteProcessedCSV(w io.Writer, entries []ledger.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(artifactHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		r := e.Record
		row := []string{
			r.Date.String(),
			string(r.Category),
			r.Description,
			r.Amount.StringFixed(2),
			strconv.FormatBool(r.Uncleared),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
