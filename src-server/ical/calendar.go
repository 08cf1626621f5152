// The `ical` package serializes events into iCalendar files.
//
// # References:
// - RFC5545: https://datatracker.ietf.org/doc/html/rfc5545
//
// # Notes:
//   - Lines are folded at 75 octets and terminated by CRLF.
//   - Datetimes are written in UTC; a start at UTC midnight becomes an all-day
//     DATE value.
//
// # Example usage:
//
//	calendar := ical.NewCalendar("My events")
//	calendar.AddEvent(ical.Event{ID: "42", Summary: "AI Summit", Start: start})
//	output, _ := calendar.ToIcal()
package ical

import (
	"fmt"
	"strings"
	"time"

	"eventfair/src-server/ical/utils"
)

const PRODID = "-//eventfair//registrations//EN"

type Event struct {
	ID          string // required
	Summary     string // required
	Start       time.Time
	End         *time.Time
	Location    string
	Description string
	URL         string
	RRule       string // RRULE value without the property name
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Calendar struct {
	name   string
	events []Event
	now    func() time.Time
}

func NewCalendar(name string) *Calendar {
	return &Calendar{
		name: name,
		now:  time.Now,
	}
}

func (cal *Calendar) AddEvent(event Event) {
	cal.events = append(cal.events, event)
}

// Marshal the calendar into an iCalendar string.
func (cal *Calendar) ToIcal() (string, error) {
	var sb strings.Builder
	writer := utils.Split75wrapper(sb.WriteString)

	writer("BEGIN:VCALENDAR")
	writer("PRODID:" + PRODID)
	writer("VERSION:2.0")
	writer("CALSCALE:GREGORIAN")
	if cal.name != "" {
		writer("X-WR-CALNAME:" + utils.EscapeText(cal.name))
	}

	stamp := cal.now().UTC().Format("20060102T150405Z")
	for _, event := range cal.events {
		if err := event.toIcal(writer, stamp); err != nil {
			return "", fmt.Errorf("(*Calendar).ToIcal: event %s: %w", event.ID, err)
		}
	}
	writer("END:VCALENDAR")

	return sb.String(), nil
}

func (e *Event) toIcal(writer func(string) (int, error), stamp string) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("id is blank")
	case e.Summary == "":
		return fmt.Errorf("summary is blank")
	}

	startDateStr, err := utils.TimeToIcalDatetime(e.Start)
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	allDay := len(startDateStr) == 8

	writer("BEGIN:VEVENT")
	writer("UID:" + e.ID)
	writer("DTSTAMP:" + stamp)
	writer("SUMMARY:" + utils.EscapeText(e.Summary))
	if allDay {
		writer("DTSTART;VALUE=DATE:" + startDateStr)
	} else {
		writer("DTSTART:" + startDateStr)
	}
	if e.End != nil {
		end := e.End.UTC()
		if allDay {
			// DTEND of a DATE event is exclusive
			writer("DTEND;VALUE=DATE:" + end.AddDate(0, 0, 1).Format("20060102"))
		} else {
			writer("DTEND:" + end.Format("20060102T150405Z"))
		}
	}
	if e.Location != "" {
		writer("LOCATION:" + utils.EscapeText(e.Location))
	}
	if e.Description != "" {
		writer("DESCRIPTION:" + utils.EscapeText(e.Description))
	}
	if e.URL != "" {
		writer("URL:" + e.URL)
	}
	if e.RRule != "" {
		writer("RRULE:" + strings.TrimPrefix(e.RRule, "RRULE:"))
	}
	if !e.CreatedAt.IsZero() {
		writer("CREATED:" + e.CreatedAt.UTC().Format("20060102T150405Z"))
	}
	if !e.UpdatedAt.IsZero() {
		writer("LAST-MODIFIED:" + e.UpdatedAt.UTC().Format("20060102T150405Z"))
	}
	writer("END:VEVENT")

	return nil
}
