package notes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"expensebot/internal/ledger"
)

const (
	uncheckedBox = "☐"
	checkedBox   = "☑"
)

type takeoutNote struct {
	Title       string `json:"title"`
	TextContent string `json:"textContent"`
	ListContent []struct {
		Text      string `json:"text"`
		IsChecked bool   `json:"isChecked"`
	} `json:"listContent"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	CreatedUsec int64 `json:"createdTimestampUsec"`
	EditedUsec  int64 `json:"userEditedTimestampUsec"`
	IsTrashed   bool  `json:"isTrashed"`
}

// LoadTakeoutDir reads every *.json note in a Google Takeout Keep folder,
// in file name order. Checklist items become "☐ text" or "☑ text" lines.
func LoadTakeoutDir(dir string) ([]ledger.Note, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list takeout notes: %w", err)
	}
	sort.Strings(paths)

	var out []ledger.Note
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(p), err)
		}
		var tn takeoutNote
		if err := json.Unmarshal(data, &tn); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
		}
		if tn.IsTrashed {
			continue
		}
		id := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		out = append(out, tn.toNote(id))
	}
	return out, nil
}

func (tn takeoutNote) toNote(id string) ledger.Note {
	var lines []string
	if tn.TextContent != "" {
		lines = append(lines, tn.TextContent)
	}
	for _, item := range tn.ListContent {
		box := uncheckedBox
		if item.IsChecked {
			box = checkedBox
		}
		lines = append(lines, box+" "+item.Text)
	}

	labels := make([]string, 0, len(tn.Labels))
	for _, l := range tn.Labels {
		labels = append(labels, l.Name)
	}

	return ledger.Note{
		ID:      id,
		Title:   strings.TrimSpace(tn.Title),
		Text:    strings.Join(lines, "\n"),
		Labels:  labels,
		Created: usecTime(tn.CreatedUsec),
		Updated: usecTime(tn.EditedUsec),
	}
}

func usecTime(usec int64) time.Time {
	if usec == 0 {
		return time.Time{}
	}
	return time.UnixMicro(usec).UTC()
}
