package export

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"vhevents/internal/model"
	"vhevents/internal/schedule"
)

// EventDTO is the JSON view of one booking.
type EventDTO struct {
	Label  string    `json:"label"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Times  string    `json:"times"`
	Room   string    `json:"room"`
	URL    string    `json:"url,omitempty"`
	Weekly bool      `json:"weekly"`
}

// RoomDTO holds one room's bookings.
type RoomDTO struct {
	Room   string     `json:"room"`
	Events []EventDTO `json:"events"`
}

// DayDTO is one weekday of the weekly table.
type DayDTO struct {
	Day   int       `json:"day"`
	Name  string    `json:"name"`
	Rooms []RoomDTO `json:"rooms"`
}

// DateDTO is one date of the dated table.
type DateDTO struct {
	Date  string    `json:"date"`
	Rooms []RoomDTO `json:"rooms"`
}

func Event(ev model.Event) EventDTO {
	return EventDTO{
		Label:  ev.Label,
		Start:  ev.Start,
		End:    ev.End,
		Times:  ev.Start.Format("15:04") + " - " + ev.End.Format("15:04"),
		Room:   ev.Room,
		URL:    ev.URL,
		Weekly: ev.Weekly,
	}
}

func rooms(in []schedule.RoomEvents) []RoomDTO {
	out := make([]RoomDTO, 0, len(in))
	for _, r := range in {
		evs := make([]EventDTO, 0, len(r.Events))
		for _, ev := range r.Events {
			evs = append(evs, Event(ev))
		}
		out = append(out, RoomDTO{Room: r.Room, Events: evs})
	}
	return out
}

// Weekly converts the weekly table.
func Weekly(table schedule.WeeklyTable) []DayDTO {
	out := make([]DayDTO, 0, len(table))
	for _, d := range table {
		out = append(out, DayDTO{Day: int(d.Day), Name: d.Name, Rooms: rooms(d.Rooms)})
	}
	return out
}

// Dates converts the dated table.
func Dates(table schedule.DateTable) []DateDTO {
	out := make([]DateDTO, 0, len(table))
	for _, d := range table {
		out = append(out, DateDTO{Date: d.Date.String(), Rooms: rooms(d.Rooms)})
	}
	return out
}

// WriteWeekly encodes the weekly table as indented JSON.
func WriteWeekly(w io.Writer, table schedule.WeeklyTable) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Weekly(table))
}

// WriteWeeklyFile writes the weekly table to path, replacing it atomically.
func WriteWeeklyFile(path string, table schedule.WeeklyTable) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".vhevents-weekly-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := WriteWeekly(tmp, table); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
