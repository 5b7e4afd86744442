package schedule

import (
	appLog "vhevents/internal/log"
	"vhevents/internal/model"
	"vhevents/internal/rules"
)

// Options configures one pipeline run.
type Options struct {
	Rules  *rules.Set
	Zones  *Zones
	Window Window
}

// Result is everything a run produces for the output writers.
type Result struct {
	Window Window

	// Events is every normalized event inside the window, by start.
	Events []model.Event
	Weekly []model.Event
	Other  []model.Event

	WeeklyTable WeeklyTable
	DateTable   DateTable
}

// Run normalizes raws, selects the window and builds both tables. Any
// malformed entry aborts the whole run.
func Run(raws []model.RawEvent, opts Options) (*Result, error) {
	n := &Normalizer{Rules: opts.Rules, Zones: opts.Zones}
	all, err := n.NormalizeAll(raws)
	if err != nil {
		return nil, err
	}

	selected := Select(all, opts.Window)
	weekly, other := Partition(selected)
	weeklyTable := GroupByDay(Dedupe(weekly))
	dateTable := GroupByDate(other)

	appLog.Info("events selected",
		"window", opts.Window.String(),
		"total", len(selected),
		"weekly", len(weekly),
		"other", len(other),
		"feed_entries", len(raws),
		"weekly_days", len(weeklyTable),
		"dates", len(dateTable),
	)

	return &Result{
		Window:      opts.Window,
		Events:      selected,
		Weekly:      weekly,
		Other:       other,
		WeeklyTable: weeklyTable,
		DateTable:   dateTable,
	}, nil
}
