// Package directive parses and applies time directives: short strings in the
// rule configuration that override or shift a booking's clock times.
//
// Grammar:
//
//	=HH:MM[-HH:MM]   set start (and optionally end) time of day
//	+N[+N2|-N2]      add N minutes to start (and optionally N2 to end)
//	-N               take N minutes off the end
package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	appLog "vhevents/internal/log"
)

// Kind tags the variant held by a Directive.
type Kind int

const (
	None Kind = iota
	ReplaceTime
	ShiftStart
	TrimEnd
	Invalid
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case ReplaceTime:
		return "replace-time"
	case ShiftStart:
		return "shift-start"
	case TrimEnd:
		return "trim-end"
	default:
		return "invalid"
	}
}

// Directive is the parsed form of a directive string. Which fields are
// meaningful depends on Kind:
//
//	ReplaceTime: Hour, Minute, and EndHour/EndMinute when HasEnd
//	ShiftStart:  Delta, and EndDelta when HasEnd
//	TrimEnd:     Delta
type Directive struct {
	Kind Kind
	Raw  string

	Hour, Minute       int
	EndHour, EndMinute int

	Delta    int
	EndDelta int

	HasEnd bool
}

var (
	replaceRe = regexp.MustCompile(`^=(\d{1,2}):(\d{2})(?:\s*-\s*(\d{1,2}):(\d{2}))?$`)
	shiftRe   = regexp.MustCompile(`^\+(\d+)(?:\s*([+-])\s*(\d+))?$`)
	trimRe    = regexp.MustCompile(`^-(\d+)$`)
)

// Parse recognizes a directive string. An empty string yields Kind None;
// anything outside the grammar yields Kind Invalid.
func Parse(s string) Directive {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Directive{Kind: None, Raw: raw}
	}

	if m := replaceRe.FindStringSubmatch(s); m != nil {
		d := Directive{Kind: ReplaceTime, Raw: raw}
		d.Hour, d.Minute = atoi(m[1]), atoi(m[2])
		if m[3] != "" {
			d.EndHour, d.EndMinute = atoi(m[3]), atoi(m[4])
			d.HasEnd = true
		}
		if !validClock(d.Hour, d.Minute) || (d.HasEnd && !validClock(d.EndHour, d.EndMinute)) {
			return Directive{Kind: Invalid, Raw: raw}
		}
		return d
	}

	if m := shiftRe.FindStringSubmatch(s); m != nil {
		delta, ok := minutes(m[1])
		if !ok {
			return Directive{Kind: Invalid, Raw: raw}
		}
		d := Directive{Kind: ShiftStart, Raw: raw, Delta: delta}
		if m[2] != "" {
			end, ok := minutes(m[3])
			if !ok {
				return Directive{Kind: Invalid, Raw: raw}
			}
			d.EndDelta = end
			if m[2] == "-" {
				d.EndDelta = -d.EndDelta
			}
			d.HasEnd = true
		}
		return d
	}

	if m := trimRe.FindStringSubmatch(s); m != nil {
		delta, ok := minutes(m[1])
		if !ok {
			return Directive{Kind: Invalid, Raw: raw}
		}
		return Directive{Kind: TrimEnd, Raw: raw, Delta: delta}
	}

	return Directive{Kind: Invalid, Raw: raw}
}

// Apply returns start/end adjusted by d. None and Invalid leave both times
// unchanged. Results keep the locations of the inputs.
func Apply(d Directive, start, end time.Time) (time.Time, time.Time) {
	switch d.Kind {
	case ReplaceTime:
		start = atClock(start, d.Hour, d.Minute)
		if d.HasEnd {
			end = atClock(end, d.EndHour, d.EndMinute)
		}
	case ShiftStart:
		start = addMinutes(start, d.Delta)
		if d.HasEnd {
			end = addMinutes(end, d.EndDelta)
		}
	case TrimEnd:
		end = addMinutes(end, -d.Delta)
	}
	return start, end
}

// ApplyString parses s and applies it. An invalid directive is logged as a
// warning and the times are returned unchanged.
func ApplyString(s string, start, end time.Time) (time.Time, time.Time) {
	d := Parse(s)
	if d.Kind == Invalid {
		appLog.Warn("ignoring invalid time directive", "directive", s, "start", start.Format(time.RFC3339))
		return start, end
	}
	return Apply(d, start, end)
}

// Validate returns an error when s is non-empty and not a valid directive.
func Validate(s string) error {
	if Parse(s).Kind == Invalid {
		return fmt.Errorf("invalid time directive %q", s)
	}
	return nil
}

// atClock keeps t's date and location and replaces its time of day.
func atClock(t time.Time, hour, minute int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, t.Location())
}

// addMinutes does wall-clock arithmetic, so a shift across a DST change
// still lands on the expected clock reading.
func addMinutes(t time.Time, n int) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi+n, s, t.Nanosecond(), t.Location())
}

func validClock(h, m int) bool {
	return h >= 0 && h < 24 && m >= 0 && m < 60
}

// minutes converts a matched digit run; false when it overflows int.
func minutes(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// atoi is only used on one- or two-digit clock fields.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
