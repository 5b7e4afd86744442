// Package schedule turns raw feed entries into the weekly and dated tables
// the outputs are built from: normalize, select a window, then group.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"vhevents/internal/directive"
	"vhevents/internal/model"
	"vhevents/internal/rules"
)

var (
	ErrUnknownZone  = errors.New("unknown timezone")
	ErrBadTimestamp = errors.New("invalid timestamp")
	ErrMissingRoom  = errors.New("description has no room line")
)

// roomLine is the description line (0-based) that names the room.
const roomLine = 2

// NormalizeError identifies the feed entry that could not be normalized.
type NormalizeError struct {
	Summary string
	Start   model.TimeParts
	Err     error
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("event %q at %s: %v", e.Summary, e.Start, e.Err)
}

func (e *NormalizeError) Unwrap() error { return e.Err }

// Zones resolves zone names to locations, caching each lookup.
type Zones struct {
	mu    sync.Mutex
	cache map[string]*time.Location
	// Default is used for entries that carry no zone name. Nil means UTC.
	Default *time.Location
}

func NewZones(def *time.Location) *Zones {
	return &Zones{cache: make(map[string]*time.Location), Default: def}
}

func (z *Zones) Resolve(name string) (*time.Location, error) {
	if name == "" {
		if z.Default != nil {
			return z.Default, nil
		}
		return time.UTC, nil
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	if z.cache == nil {
		z.cache = make(map[string]*time.Location)
	}
	if loc, ok := z.cache[name]; ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownZone, name, err)
	}
	z.cache[name] = loc
	return loc, nil
}

// Normalizer builds model.Events from raw feed entries.
type Normalizer struct {
	Rules *rules.Set
	Zones *Zones
}

// Normalize classifies raw and derives its display fields. The weekday is
// taken from the start before any time directive is applied.
func (n *Normalizer) Normalize(raw model.RawEvent) (model.Event, error) {
	fail := func(err error) (model.Event, error) {
		return model.Event{}, &NormalizeError{Summary: raw.Summary, Start: raw.Start, Err: err}
	}

	zones := n.Zones
	if zones == nil {
		zones = NewZones(nil)
	}

	start, err := instant(raw.Start, zones)
	if err != nil {
		return fail(err)
	}
	end, err := instant(raw.End, zones)
	if err != nil {
		return fail(err)
	}

	room, err := roomOf(raw.Description)
	if err != nil {
		return fail(err)
	}

	out := n.Rules.Classify(raw.Summary)
	day := start.Weekday()
	start, end = directive.ApplyString(out.Directive, start, end)

	return model.Event{
		Label:   out.Label,
		Summary: raw.Summary,
		Start:   start,
		End:     end,
		Day:     day,
		Room:    room,
		URL:     raw.URL,
		Weekly:  out.Weekly,
	}, nil
}

// NormalizeAll normalizes every entry and sorts the result by start,
// keeping feed order for ties. The first failure aborts the run.
func (n *Normalizer) NormalizeAll(raws []model.RawEvent) ([]model.Event, error) {
	events := make([]model.Event, 0, len(raws))
	for _, raw := range raws {
		ev, err := n.Normalize(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	SortByStart(events)
	return events, nil
}

// SortByStart orders events by start instant, stable.
func SortByStart(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}

func instant(p model.TimeParts, zones *Zones) (time.Time, error) {
	loc, err := zones.Resolve(p.Zone)
	if err != nil {
		return time.Time{}, err
	}
	if p.Month < 1 || p.Month > 12 || p.Day < 1 || p.Day > 31 ||
		p.Hour < 0 || p.Hour > 23 || p.Minute < 0 || p.Minute > 59 ||
		p.Second < 0 || p.Second > 60 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrBadTimestamp, p)
	}
	t := time.Date(p.Year, time.Month(p.Month), p.Day, p.Hour, p.Minute, p.Second, 0, loc)
	if t.Day() != p.Day {
		// time.Date normalizes Feb 30 into March.
		return time.Time{}, fmt.Errorf("%w: %s", ErrBadTimestamp, p)
	}
	return t, nil
}

func roomOf(description string) (string, error) {
	lines := strings.Split(description, "\n")
	if len(lines) <= roomLine {
		return "", ErrMissingRoom
	}
	return strings.TrimSuffix(lines[roomLine], "\r"), nil
}
