package domain

import (
	"strings"
	"time"
)

// CalendarEventRef is a read-only copy of an event owned by the calendar
type CalendarEventRef struct {
	ID             string    `json:"id"`
	SeriesID       string    `json:"seriesId,omitempty"` // set for occurrences of a recurring series
	Title          string    `json:"title"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"` // exclusive for all-day events
	IsAllDay       bool      `json:"isAllDay"`
	Location       string    `json:"location,omitempty"`
	Description    string    `json:"description,omitempty"`
	RecurrenceRule string    `json:"recurrenceRule,omitempty"`
	ExternalLink   string    `json:"externalLink,omitempty"`
}

// IsRecurring reports whether the event belongs to a series
func (e *CalendarEventRef) IsRecurring() bool {
	if e.SeriesID != "" || e.RecurrenceRule != "" {
		return true
	}
	_, _, ok := SplitOccurrenceID(e.ID)
	return ok
}

// DurationDays returns the number of calendar days the event covers
func (e *CalendarEventRef) DurationDays() int {
	if e.IsAllDay {
		n := DaysBetween(e.Start, e.End)
		if n < 1 {
			return 1
		}
		return n
	}
	end := e.End
	if end.After(e.Start) && end.Equal(StartOfDay(end)) {
		// a timed event ending exactly at midnight does not touch that day
		end = end.Add(-time.Nanosecond)
	}
	return DaysBetween(e.Start, end) + 1
}

// LastDay returns the inclusive last calendar day of the event
func (e *CalendarEventRef) LastDay() time.Time {
	if e.IsAllDay {
		last := e.End.AddDate(0, 0, -1)
		if last.Before(e.Start) {
			return StartOfDay(e.Start)
		}
		return StartOfDay(last)
	}
	return StartOfDay(e.Start.AddDate(0, 0, e.DurationDays()-1))
}

// ToCandidate converts an existing event back into candidate form. The
// recurrence rule is not carried over, so a recreated occurrence stands alone.
func (e *CalendarEventRef) ToCandidate() ScheduleCandidate {
	c := ScheduleCandidate{
		Title:       e.Title,
		Date:        e.Start.Format(DateLayout),
		IsAllDay:    e.IsAllDay,
		Location:    e.Location,
		Description: e.Description,
	}
	if last := e.LastDay(); !last.Equal(StartOfDay(e.Start)) {
		c.EndDate = last.Format(DateLayout)
	}
	if !e.IsAllDay {
		c.StartTime = e.Start.Format(ClockLayout)
		c.EndTime = e.End.Format(ClockLayout)
	}
	return c
}

// Series describes a recurring series as a whole
type Series struct {
	ID             string
	Title          string
	RecurrenceRule string
	Start          time.Time
	End            time.Time
	IsAllDay       bool
}

// EventSpec is the input for creating an event
type EventSpec struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	IsAllDay    bool
}

// EventPatch carries in-place attribute changes; nil fields stay as they are
type EventPatch struct {
	Title    *string
	Location *string
	Start    *time.Time
	End      *time.Time
}

// IsEmpty reports whether the patch changes nothing
func (p *EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Location == nil && p.Start == nil && p.End == nil
}

const occurrenceSep = "_"

// OccurrenceID builds the id of one occurrence of a series
func OccurrenceID(seriesID string, start time.Time) string {
	return seriesID + occurrenceSep + start.Format("20060102")
}

// SplitOccurrenceID splits an occurrence id into series id and YYYYMMDD date
func SplitOccurrenceID(id string) (seriesID, date string, ok bool) {
	idx := strings.LastIndex(id, occurrenceSep)
	if idx <= 0 || idx == len(id)-1 {
		return "", "", false
	}
	date = id[idx+1:]
	if len(date) != 8 {
		return "", "", false
	}
	if _, err := time.Parse("20060102", date); err != nil {
		return "", "", false
	}
	return id[:idx], date, true
}
