package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "vhevents/internal/log"
	"vhevents/internal/model"
)

// ParseFeed parses a single ICS payload into raw events, one per VEVENT, in
// feed order.
//
//   - DTSTART/DTEND are kept as broken-down parts plus the TZID parameter
//     (or "UTC" for Z-suffixed values); zone resolution happens later.
//   - Date-only values become midnight.
//   - SUMMARY and DESCRIPTION arrive already unescaped by the ICS parser.
//
// A VEVENT without a usable DTSTART makes the whole feed invalid.
func ParseFeed(src Source, body []byte) ([]model.RawEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]model.RawEvent, 0)
	for i, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			return nil, fmt.Errorf("ics %s: vevent %d: %w", src.ID, i+1, perr)
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (model.RawEvent, error) {
	var out model.RawEvent

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil {
		out.URL = strings.TrimSpace(p.Value)
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, fmt.Errorf("%q: missing DTSTART", out.Summary)
	}
	start, err := partsOf(startProp.Value, tzid(startProp.ICalParameters))
	if err != nil {
		return out, fmt.Errorf("%q: DTSTART: %w", out.Summary, err)
	}
	out.Start = start

	// Without DTEND the booking is treated as zero-length.
	out.End = start
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		end, err := partsOf(endProp.Value, tzid(endProp.ICalParameters))
		if err != nil {
			return out, fmt.Errorf("%q: DTEND: %w", out.Summary, err)
		}
		out.End = end
	}

	return out, nil
}

func tzid(params map[string][]string) string {
	if params == nil {
		return ""
	}
	if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
		return strings.Trim(tzs[0], `"`)
	}
	return ""
}

// partsOf splits an ICS DATE or DATE-TIME value:
//
//	20250105T090000Z  -> UTC
//	20250105T090000   -> zone (TZID, or floating when empty)
//	20250105          -> midnight in zone
func partsOf(v, zone string) (model.TimeParts, error) {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "Z") {
		v = strings.TrimSuffix(v, "Z")
		zone = "UTC"
	}

	date, clock, hasClock := strings.Cut(v, "T")
	if len(date) != 8 || (hasClock && len(clock) != 6) {
		return model.TimeParts{}, fmt.Errorf("malformed time value %q", v)
	}

	p := model.TimeParts{Zone: zone}
	fields := []numField{
		{&p.Year, date[0:4]},
		{&p.Month, date[4:6]},
		{&p.Day, date[6:8]},
	}
	if hasClock {
		fields = append(fields,
			numField{&p.Hour, clock[0:2]},
			numField{&p.Minute, clock[2:4]},
			numField{&p.Second, clock[4:6]},
		)
	}
	for _, f := range fields {
		n, err := strconv.Atoi(f.s)
		if err != nil {
			return model.TimeParts{}, fmt.Errorf("malformed time value %q", v)
		}
		*f.dst = n
	}
	return p, nil
}

type numField struct {
	dst *int
	s   string
}
