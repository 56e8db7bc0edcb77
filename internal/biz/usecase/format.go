package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

// FormatDay renders a date as 2025/08/02(土)
func FormatDay(t time.Time) string {
	return fmt.Sprintf("%s(%s)", t.Format("2006/01/02"), domain.JaWeekday(t.Weekday()))
}

// FormatCandidateTime renders when a candidate happens. Multi-day ranges
// carry the inclusive day count.
func FormatCandidateTime(c domain.ScheduleCandidate) string {
	first, err := domain.ParseDate(c.Date, time.UTC)
	if err != nil {
		return c.Date
	}

	if !c.IsMultiDay() {
		if c.IsAllDay {
			return FormatDay(first) + " 終日"
		}
		return fmt.Sprintf("%s %s〜%s", FormatDay(first), c.StartTime, c.EndTime)
	}

	last, err := domain.ParseDate(c.EndDate, time.UTC)
	if err != nil {
		return c.Date
	}
	days := c.DayCount()
	if c.IsAllDay {
		return fmt.Sprintf("%s〜%s 終日（%d日間）", FormatDay(first), FormatDay(last), days)
	}
	return fmt.Sprintf("%s %s〜%s %s（%d日間）", FormatDay(first), c.StartTime, FormatDay(last), c.EndTime, days)
}

// FormatEventTime renders when an existing event happens
func FormatEventTime(ev *domain.CalendarEventRef) string {
	return FormatCandidateTime(ev.ToCandidate())
}

// FormatCandidate renders the full detail block of a candidate
func FormatCandidate(c domain.ScheduleCandidate) string {
	lines := []string{"*" + c.Title + "*", "🕒 " + FormatCandidateTime(c)}
	if c.Location != "" {
		lines = append(lines, "📍 "+c.Location)
	}
	if c.Recurrence != nil {
		lines = append(lines, "🔁 "+c.Recurrence.Describe())
	}
	return strings.Join(lines, "\n")
}

// FormatEvent renders the detail block of an existing event
func FormatEvent(ev *domain.CalendarEventRef) string {
	lines := []string{"*" + ev.Title + "*", "🕒 " + FormatEventTime(ev)}
	if ev.Location != "" {
		lines = append(lines, "📍 "+ev.Location)
	}
	if ev.IsRecurring() {
		lines = append(lines, "🔁 繰り返し予定")
	}
	return strings.Join(lines, "\n")
}

// FormatRange renders a half-open window as its inclusive days
func FormatRange(r domain.DateRange) string {
	last := r.End.AddDate(0, 0, -1)
	if !last.After(r.Start) {
		return FormatDay(r.Start)
	}
	return FormatDay(r.Start) + "〜" + FormatDay(last)
}
