package model

import (
	"fmt"
	"time"
)

// TimeParts is a calendar timestamp as it appears in the feed: broken-down
// wall-clock fields plus the name of the zone they are expressed in.
type TimeParts struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
	// Zone is an IANA zone name ("Europe/London") or "UTC".
	Zone string
}

func (p TimeParts) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d %s",
		p.Year, p.Month, p.Day, p.Hour, p.Minute, p.Second, p.Zone)
}

// RawEvent is one booking exactly as read from the calendar feed, before
// classification. It is never modified after the feed reader produces it.
type RawEvent struct {
	Start       TimeParts
	End         TimeParts
	Summary     string
	Description string
	URL         string
}

// Event is a normalized booking. All fields are fixed by the normalizer.
type Event struct {
	// Label is the display name: the summary, or the replacement name of the
	// last matching rule that set one.
	Label string
	// Summary is the unmodified feed summary, kept for diagnostics.
	Summary string

	// Start / End carry the feed's timezone, after any time directive.
	Start time.Time
	End   time.Time

	// Day is the weekday of the unadjusted start.
	Day time.Weekday

	// Room is line three of the description, verbatim. It may name several
	// rooms separated by commas.
	Room string
	URL  string

	Weekly bool
}

// Date returns the calendar date of the event's start.
func (e Event) Date() Date {
	return DateOf(e.Start)
}

// ShortTimes formats like "Friday 5 Jan 10:00 - 11:00".
func (e Event) ShortTimes() string {
	return e.Start.Format("Monday 2 Jan 15:04") + " - " + e.End.Format("15:04")
}

// LabelAndTimes formats like "Yoga 10:00 - 11:00".
func (e Event) LabelAndTimes() string {
	return e.Label + " " + e.Start.Format("15:04") + " - " + e.End.Format("15:04")
}

func (e Event) String() string {
	return e.Date().String() + " " + e.LabelAndTimes()
}

// Date is a civil date with no time or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DayNames maps weekday index (Sunday=0) to its display name.
var DayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// DayName returns the display name of a weekday.
func DayName(d time.Weekday) string {
	if d < 0 || int(d) >= len(DayNames) {
		return d.String()
	}
	return DayNames[d]
}

// IsDayName reports whether s is one of DayNames.
func IsDayName(s string) bool {
	for _, n := range DayNames {
		if n == s {
			return true
		}
	}
	return false
}
