// Package sheet reads the booking spreadsheet template and fills it with
// the weekly and dated tables.
//
// Template layout (first worksheet):
//
//	| ...  | Day       | Main Hall | Kitchen | ... |   <- header row
//	|      | Sunday    |           |         |     |   <- weekly section
//	|      | Monday    |           |         |     |
//	|      | ...       |           |         |     |
//	|      | (blank)   |           |         |     |   <- monthly section
//
// An optional "Config" sheet carries classification rules below a header
// row whose first cell reads "Name in feed". Its columns are pattern,
// published name, weekly, time rule and term time.
package sheet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	appLog "vhevents/internal/log"
	"vhevents/internal/model"
	"vhevents/internal/rules"
)

const (
	dayHeader       = "Day"
	configSheetName = "Config"
	// monthlySearch is how many rows below the header are searched for the
	// first non-weekday row.
	monthlySearch = 8
)

var (
	ErrTemplateNotFound = errors.New("spreadsheet template not found")
	ErrNoDayCell        = errors.New(`"Day" cell not found in template spreadsheet`)
	ErrNoConfigSheet    = errors.New("no Config sheet found in template")
	ErrNoMonthlySection = errors.New("no monthly section found in template")

	configHeaderRe = regexp.MustCompile(`(?i)name in feed`)
)

// Template is an opened spreadsheet template. Row and column numbers are
// 1-based, as excelize uses them.
type Template struct {
	f     *excelize.File
	Sheet string

	DayRow int
	DayCol int

	// Rooms lists room headers left to right; RoomColumns maps the
	// lower-cased header to its column.
	Rooms       []string
	RoomColumns map[string]int

	WeekdayRows map[time.Weekday]int
	// MonthlyRow is 0 when the template has no monthly section.
	MonthlyRow int

	wrapStyle int
}

// Open parses the template at path and locates the Day header.
func Open(path string) (*Template, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w", path, err)
	}

	t := &Template{f: f}
	if err := t.parse(); err != nil {
		f.Close()
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	t.wrapStyle = style

	appLog.Debug("template parsed",
		"path", path,
		"sheet", t.Sheet,
		"day_cell", cellName(t.DayCol, t.DayRow),
		"rooms", strings.Join(t.Rooms, ","),
		"monthly_row", t.MonthlyRow,
	)
	return t, nil
}

func (t *Template) parse() error {
	sheets := t.f.GetSheetList()
	if len(sheets) == 0 {
		return ErrNoDayCell
	}
	t.Sheet = sheets[0]

	rows, err := t.f.GetRows(t.Sheet)
	if err != nil {
		return err
	}

	for r, row := range rows {
		for c, v := range row {
			if v == dayHeader {
				t.DayRow, t.DayCol = r+1, c+1
				break
			}
		}
		if t.DayRow != 0 {
			break
		}
	}
	if t.DayRow == 0 {
		return ErrNoDayCell
	}

	t.RoomColumns = make(map[string]int)
	header := rows[t.DayRow-1]
	for c := t.DayCol; c < len(header); c++ {
		name := strings.TrimSpace(header[c])
		if name == "" {
			continue
		}
		t.Rooms = append(t.Rooms, name)
		t.RoomColumns[strings.ToLower(name)] = c + 1
	}

	t.WeekdayRows = make(map[time.Weekday]int)
	for r := t.DayRow; r < len(rows) && r < t.DayRow+monthlySearch; r++ {
		v := cellAt(rows, r, t.DayCol-1)
		if d, ok := weekdayOf(v); ok {
			t.WeekdayRows[d] = r + 1
			continue
		}
		if t.MonthlyRow == 0 {
			t.MonthlyRow = r + 1
		}
	}
	if t.MonthlyRow == 0 && t.DayRow+monthlySearch > len(rows) {
		// Rows past the end of the sheet are blank, so the first one
		// starts the monthly section.
		t.MonthlyRow = len(rows) + 1
	}
	return nil
}

// Rules reads classification rules from the Config sheet.
func (t *Template) Rules() ([]rules.Rule, error) {
	found := false
	for _, s := range t.f.GetSheetList() {
		if s == configSheetName {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNoConfigSheet
	}

	rows, err := t.f.GetRows(configSheetName)
	if err != nil {
		return nil, err
	}

	out := make([]rules.Rule, 0)
	inRules := false
	for _, row := range rows {
		first := rowCell(row, 0)
		if !inRules {
			inRules = configHeaderRe.MatchString(first)
			continue
		}
		if strings.TrimSpace(first) == "" {
			continue
		}
		out = append(out, rules.Rule{
			Pattern:  first,
			Name:     strings.TrimSpace(rowCell(row, 1)),
			Weekly:   rules.ParseYes(rowCell(row, 2)),
			Time:     strings.TrimSpace(rowCell(row, 3)),
			TermTime: rules.ParseYes(rowCell(row, 4)),
		})
	}
	return out, nil
}

// Column returns the template column for room, matching case-insensitively.
func (t *Template) Column(room string) (int, bool) {
	c, ok := t.RoomColumns[strings.ToLower(strings.TrimSpace(room))]
	return c, ok
}

// SaveAs writes the filled workbook to path.
func (t *Template) SaveAs(path string) error {
	return t.f.SaveAs(path)
}

func (t *Template) Close() error {
	return t.f.Close()
}

func weekdayOf(s string) (time.Weekday, bool) {
	s = strings.TrimSpace(s)
	for i, n := range model.DayNames {
		if strings.EqualFold(n, s) {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

func cellAt(rows [][]string, r, c int) string {
	if r < 0 || r >= len(rows) {
		return ""
	}
	return rowCell(rows[r], c)
}

func rowCell(row []string, c int) string {
	if c < 0 || c >= len(row) {
		return ""
	}
	return row[c]
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", row, col)
	}
	return name
}
