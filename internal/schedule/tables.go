package schedule

import (
	"sort"
	"strings"
	"time"

	"vhevents/internal/model"
)

// RoomEvents is the list of bookings shown in one room's column.
type RoomEvents struct {
	Room   string
	Events []model.Event
}

// DayGroup is one row of the weekly table.
type DayGroup struct {
	Day   time.Weekday
	Name  string
	Rooms []RoomEvents
}

// Room returns the events booked in room, or nil.
func (g DayGroup) Room(room string) []model.Event {
	return findRoom(g.Rooms, room)
}

// DateGroup is one row of the dated (one-off) table.
type DateGroup struct {
	Date  model.Date
	Rooms []RoomEvents
}

func (g DateGroup) Room(room string) []model.Event {
	return findRoom(g.Rooms, room)
}

type WeeklyTable []DayGroup

type DateTable []DateGroup

// Partition splits events by their weekly flag, keeping order.
func Partition(events []model.Event) (weekly, other []model.Event) {
	for _, ev := range events {
		if ev.Weekly {
			weekly = append(weekly, ev)
		} else {
			other = append(other, ev)
		}
	}
	return weekly, other
}

type signature struct {
	label string
	start string
	end   string
}

func signatureOf(ev model.Event) signature {
	return signature{
		label: ev.Label,
		start: ev.Start.Format("15:04"),
		end:   ev.End.Format("15:04"),
	}
}

// Dedupe collapses weekly events that share label and start/end clock
// times. Events are visited in weekday order (then start), and the first of
// each signature is kept. The result is in that visiting order.
func Dedupe(weekly []model.Event) []model.Event {
	ordered := make([]model.Event, len(weekly))
	copy(ordered, weekly)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Day != ordered[j].Day {
			return ordered[i].Day < ordered[j].Day
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})

	seen := make(map[signature]struct{}, len(ordered))
	out := make([]model.Event, 0, len(ordered))
	for _, ev := range ordered {
		sig := signatureOf(ev)
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, ev)
	}
	return out
}

// Rooms splits a room field on commas. A blank field yields a single
// empty room so the event is not lost.
func Rooms(field string) []string {
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// BuildTables partitions events, dedupes the weekly ones and groups both
// sets by room. Multi-room events are fanned out after dedupe.
func BuildTables(events []model.Event) (WeeklyTable, DateTable) {
	weekly, other := Partition(events)
	return GroupByDay(Dedupe(weekly)), GroupByDate(other)
}

// GroupByDay groups weekly events by weekday. Within a room, events run in
// time-of-day order, ties broken by start.
func GroupByDay(weekly []model.Event) WeeklyTable {
	byDay := make(map[time.Weekday][]model.Event)
	for _, ev := range weekly {
		byDay[ev.Day] = append(byDay[ev.Day], ev)
	}

	table := make(WeeklyTable, 0, len(byDay))
	for d := time.Sunday; d <= time.Saturday; d++ {
		evs, ok := byDay[d]
		if !ok {
			continue
		}
		table = append(table, DayGroup{
			Day:   d,
			Name:  model.DayName(d),
			Rooms: groupRooms(evs, byClock),
		})
	}
	return table
}

// GroupByDate groups one-off events by the date of their start.
func GroupByDate(other []model.Event) DateTable {
	byDate := make(map[model.Date][]model.Event)
	dates := make([]model.Date, 0)
	for _, ev := range other {
		d := ev.Date()
		if _, ok := byDate[d]; !ok {
			dates = append(dates, d)
		}
		byDate[d] = append(byDate[d], ev)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	table := make(DateTable, 0, len(dates))
	for _, d := range dates {
		table = append(table, DateGroup{
			Date:  d,
			Rooms: groupRooms(byDate[d], byStart),
		})
	}
	return table
}

func byStart(a, b model.Event) bool { return a.Start.Before(b.Start) }

func byClock(a, b model.Event) bool {
	ca, cb := clockMinutes(a.Start), clockMinutes(b.Start)
	if ca != cb {
		return ca < cb
	}
	return a.Start.Before(b.Start)
}

func clockMinutes(t time.Time) int {
	h, m, _ := t.Clock()
	return h*60 + m
}

func groupRooms(events []model.Event, less func(a, b model.Event) bool) []RoomEvents {
	byRoom := make(map[string][]model.Event)
	for _, ev := range events {
		for _, room := range Rooms(ev.Room) {
			byRoom[room] = append(byRoom[room], ev)
		}
	}

	names := make([]string, 0, len(byRoom))
	for name := range byRoom {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]RoomEvents, 0, len(names))
	for _, name := range names {
		evs := byRoom[name]
		sort.SliceStable(evs, func(i, j int) bool { return less(evs[i], evs[j]) })
		out = append(out, RoomEvents{Room: name, Events: evs})
	}
	return out
}

func findRoom(rooms []RoomEvents, room string) []model.Event {
	for _, r := range rooms {
		if r.Room == room {
			return r.Events
		}
	}
	return nil
}
