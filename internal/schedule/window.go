package schedule

import (
	"time"

	"vhevents/internal/model"
)

// Window is the range of bookings a run reports on. The zero Window is
// unbounded and selects everything.
type Window struct {
	Start   time.Time
	End     time.Time
	bounded bool
}

// AllWindow is the select-all sentinel.
func AllWindow() Window { return Window{} }

// NewWindow returns a bounded window [start, end].
func NewWindow(start, end time.Time) Window {
	return Window{Start: start, End: end, bounded: true}
}

// MonthWindow covers one calendar month in loc, from midnight on the 1st to
// midnight on the 1st of the next month.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return NewWindow(start, start.AddDate(0, 1, 0))
}

func (w Window) Bounded() bool { return w.bounded }

// Contains reports whether ev lies entirely inside w. Events straddling
// either bound are excluded, not clipped.
func (w Window) Contains(ev model.Event) bool {
	if !w.bounded {
		return true
	}
	return !ev.Start.Before(w.Start) && !ev.End.After(w.End)
}

func (w Window) String() string {
	if !w.bounded {
		return "all"
	}
	return w.Start.Format(time.RFC3339) + "/" + w.End.Format(time.RFC3339)
}

// Select keeps the events inside w, preserving order. An unbounded window
// returns events unchanged.
func Select(events []model.Event, w Window) []model.Event {
	if !w.bounded {
		return events
	}
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if w.Contains(ev) {
			out = append(out, ev)
		}
	}
	return out
}
