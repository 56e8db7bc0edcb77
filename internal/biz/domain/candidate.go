package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format for calendar dates
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format for times of day
	ClockLayout = "15:04"

	DefaultStartClock = "09:00"
	DefaultEndClock   = "10:00"
)

// ScheduleCandidate is an extracted, not-yet-committed event proposal
type ScheduleCandidate struct {
	Title       string             `json:"title"`
	Date        string             `json:"date"`              // YYYY-MM-DD
	EndDate     string             `json:"endDate,omitempty"` // inclusive last day of a multi-day event
	StartTime   string             `json:"startTime,omitempty"`
	EndTime     string             `json:"endTime,omitempty"`
	IsAllDay    bool               `json:"isAllDay"`
	Location    string             `json:"location,omitempty"`
	Recurrence  *RecurrencePattern `json:"recurrence,omitempty"`
	Description string             `json:"description,omitempty"`
	SourceTag   string             `json:"sourceTag,omitempty"`
}

// IsMultiDay reports whether the candidate spans more than one calendar day
func (c *ScheduleCandidate) IsMultiDay() bool {
	return c.EndDate != "" && c.EndDate != c.Date
}

// DayCount returns the number of calendar days covered, inclusive of both ends
func (c *ScheduleCandidate) DayCount() int {
	if !c.IsMultiDay() {
		return 1
	}
	start, err1 := ParseDate(c.Date, time.UTC)
	end, err2 := ParseDate(c.EndDate, time.UTC)
	if err1 != nil || err2 != nil || end.Before(start) {
		return 1
	}
	return DaysBetween(start, end) + 1
}

// LastDate returns EndDate for multi-day candidates and Date otherwise
func (c *ScheduleCandidate) LastDate() string {
	if c.IsMultiDay() {
		return c.EndDate
	}
	return c.Date
}

// Validate checks the invariants every candidate must hold after normalization
func (c *ScheduleCandidate) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return &ValidationError{Field: "title", Message: "required"}
	}
	start, err := ParseDate(c.Date, time.UTC)
	if err != nil {
		return &ValidationError{Field: "date", Message: err.Error()}
	}
	if c.EndDate != "" {
		end, err := ParseDate(c.EndDate, time.UTC)
		if err != nil {
			return &ValidationError{Field: "endDate", Message: err.Error()}
		}
		if end.Before(start) {
			return &ValidationError{Field: "endDate", Message: "before date"}
		}
	}
	if !c.IsAllDay && c.StartTime == "" && c.EndTime == "" {
		return &ValidationError{Field: "startTime", Message: "timed candidate without any time"}
	}
	return nil
}

// ParseDate strictly parses a YYYY-MM-DD date in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// NormalizeClock accepts H:MM or HH:MM and returns HH:MM
func NormalizeClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[1]) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return "", false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return "", false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}

// CombineDateClock builds a time from a date and an HH:MM clock
func CombineDateClock(date time.Time, clock string) (time.Time, error) {
	norm, ok := NormalizeClock(clock)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time %q", clock)
	}
	t, _ := time.Parse(ClockLayout, norm)
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// ShiftClock moves an HH:MM clock by d, clamping to the same day
func ShiftClock(clock string, d time.Duration) string {
	norm, ok := NormalizeClock(clock)
	if !ok {
		return clock
	}
	t, _ := time.Parse(ClockLayout, norm)
	shifted := t.Add(d)
	if shifted.Day() != t.Day() {
		if d > 0 {
			return "23:59"
		}
		return "00:00"
	}
	return shifted.Format(ClockLayout)
}

// DaysBetween counts whole calendar days from a to b
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
