package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vhevents/internal/model"
	"vhevents/internal/schedule"
)

func weeklyTable() schedule.WeeklyTable {
	start := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	return schedule.GroupByDay([]model.Event{{
		Label:  "Yoga",
		Start:  start,
		End:    start.Add(90 * time.Minute),
		Day:    time.Monday,
		Room:   "Main Hall",
		Weekly: true,
	}})
}

func TestWriteWeekly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWeekly(&buf, weeklyTable()))

	var got []DayDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Day)
	assert.Equal(t, "Monday", got[0].Name)
	require.Len(t, got[0].Rooms, 1)
	assert.Equal(t, "Main Hall", got[0].Rooms[0].Room)
	require.Len(t, got[0].Rooms[0].Events, 1)
	assert.Equal(t, "10:00 - 11:30", got[0].Rooms[0].Events[0].Times)
}

func TestWriteWeeklyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekly.json")
	require.NoError(t, WriteWeeklyFile(path, weeklyTable()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"label": "Yoga"`)
}

func TestDates(t *testing.T) {
	start := time.Date(2025, 1, 5, 14, 0, 0, 0, time.UTC)
	table := schedule.GroupByDate([]model.Event{{Label: "Party", Start: start, End: start.Add(time.Hour), Room: "Hall, Kitchen"}})

	got := Dates(table)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-01-05", got[0].Date)
	assert.Len(t, got[0].Rooms, 2)
}
