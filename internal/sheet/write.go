package sheet

import (
	"strings"
	"time"

	appLog "vhevents/internal/log"
	"vhevents/internal/model"
	"vhevents/internal/schedule"
)

// WriteWeekly fills the weekday rows. Weekdays without a template row and
// rooms without a column are logged and skipped.
func (t *Template) WriteWeekly(table schedule.WeeklyTable) error {
	for _, day := range table {
		row, ok := t.WeekdayRows[day.Day]
		if !ok {
			appLog.Warn("template has no row for weekday", "day", day.Name)
			continue
		}
		if err := t.writeRooms(row, day.Rooms); err != nil {
			return err
		}
	}
	return nil
}

// WriteDates fills the monthly section, one row per date. Extra rows are
// inserted below the first so the rest of the template moves down.
func (t *Template) WriteDates(table schedule.DateTable) error {
	if len(table) == 0 {
		return nil
	}
	if t.MonthlyRow == 0 {
		return ErrNoMonthlySection
	}
	if len(table) > 1 {
		if err := t.f.InsertRows(t.Sheet, t.MonthlyRow+1, len(table)-1); err != nil {
			return err
		}
	}

	for i, group := range table {
		row := t.MonthlyRow + i
		label := group.Date.Time(time.UTC).Format("Monday 2 Jan")
		if err := t.f.SetCellValue(t.Sheet, cellName(t.DayCol, row), label); err != nil {
			return err
		}
		if err := t.writeRooms(row, group.Rooms); err != nil {
			return err
		}
	}
	return nil
}

func (t *Template) writeRooms(row int, rooms []schedule.RoomEvents) error {
	for _, re := range rooms {
		col, ok := t.Column(re.Room)
		if !ok {
			appLog.Warn("template has no column for room", "room", re.Room, "events", len(re.Events))
			continue
		}
		cell := cellName(col, row)
		if err := t.f.SetCellValue(t.Sheet, cell, CellText(re.Events)); err != nil {
			return err
		}
		if err := t.f.SetCellStyle(t.Sheet, cell, cell, t.wrapStyle); err != nil {
			return err
		}
		if len(re.Events) == 1 && re.Events[0].URL != "" {
			if err := t.f.SetCellHyperLink(t.Sheet, cell, re.Events[0].URL, "External"); err != nil {
				return err
			}
		}
	}
	return nil
}

// CellText renders one room cell: one "Label HH:MM - HH:MM" line per event.
func CellText(events []model.Event) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, ev.LabelAndTimes())
	}
	return strings.Join(lines, "\n")
}

// Write opens the template, fills both tables and saves to outPath.
func Write(templatePath, outPath string, weekly schedule.WeeklyTable, dated schedule.DateTable) error {
	t, err := Open(templatePath)
	if err != nil {
		return err
	}
	defer t.Close()

	if err := t.WriteWeekly(weekly); err != nil {
		return err
	}
	if err := t.WriteDates(dated); err != nil {
		return err
	}
	if err := t.SaveAs(outPath); err != nil {
		return err
	}
	appLog.Info("spreadsheet written", "path", outPath, "weekly_days", len(weekly), "dates", len(dated))
	return nil
}
