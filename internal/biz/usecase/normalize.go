package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

// NormalizeCandidates validates raw model output and turns it into
// candidates. Entries that cannot be repaired are dropped silently; titles
// and dates are never invented.
func NormalizeCandidates(raw []RawCandidate, now time.Time) []domain.ScheduleCandidate {
	out := make([]domain.ScheduleCandidate, 0, len(raw))
	for _, r := range raw {
		c, err := normalizeOne(r, now)
		if err != nil {
			fmt.Printf("[Normalize] Dropped %q: %v\n", r.Title, err)
			continue
		}
		out = append(out, c)
	}
	return consolidate(out)
}

func normalizeOne(r RawCandidate, now time.Time) (domain.ScheduleCandidate, error) {
	loc := now.Location()
	c := domain.ScheduleCandidate{
		Title:       clean(r.Title),
		Location:    clean(r.Location),
		Description: clean(r.Description),
	}
	if c.Title == "" {
		return c, &domain.ValidationError{Field: "title", Message: "required"}
	}

	inferYear := r.YearSpecified != nil && !*r.YearSpecified
	start, err := parseCandidateDate(clean(r.Date), inferYear, now)
	if err != nil {
		return c, &domain.ValidationError{Field: "date", Message: err.Error()}
	}
	c.Date = start.Format(domain.DateLayout)

	if endRaw := clean(r.EndDate); endRaw != "" {
		end, err := parseCandidateDate(endRaw, inferYear, now)
		if err == nil && inferYear && end.Before(start) {
			// 12/30〜1/2 without a year crosses into the next year
			end = end.AddDate(1, 0, 0)
		}
		switch {
		case err != nil:
			fmt.Printf("[Normalize] Ignoring invalid endDate %q for %q\n", endRaw, c.Title)
		case end.Before(start):
			fmt.Printf("[Normalize] Ignoring endDate %s before date %s for %q\n", endRaw, c.Date, c.Title)
		case end.After(start):
			c.EndDate = end.Format(domain.DateLayout)
		}
	}

	startClock, _ := domain.NormalizeClock(clean(r.StartTime))
	endClock, _ := domain.NormalizeClock(clean(r.EndTime))
	allDay := r.IsAllDay != nil && *r.IsAllDay

	switch {
	case allDay || (startClock == "" && endClock == ""):
		c.IsAllDay = true
	case startClock == "":
		c.StartTime, c.EndTime = domain.ShiftClock(endClock, -time.Hour), endClock
	case endClock == "":
		c.StartTime, c.EndTime = startClock, domain.ShiftClock(startClock, time.Hour)
	default:
		c.StartTime, c.EndTime = startClock, endClock
		if !c.IsMultiDay() && endClock <= startClock {
			c.EndTime = domain.ShiftClock(startClock, time.Hour)
		}
	}

	if hint := clean(r.Recurrence); hint != "" {
		if p, ok := domain.ParseRecurrenceHint(hint, start.In(loc)); ok {
			c.Recurrence = p
		} else {
			fmt.Printf("[Normalize] Unsupported recurrence %q for %q\n", hint, c.Title)
		}
	}

	return c, c.Validate()
}

func parseCandidateDate(s string, inferYear bool, now time.Time) (time.Time, error) {
	d, err := domain.ParseDate(s, now.Location())
	if err != nil || !inferYear {
		return d, err
	}
	year := domain.InferYear(d.Month(), now)
	if year == d.Year() {
		return d, nil
	}
	moved := time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	if moved.Day() != d.Day() {
		return time.Time{}, fmt.Errorf("invalid date %d-%02d-%02d", year, d.Month(), d.Day())
	}
	return moved, nil
}

// consolidate merges runs of consecutive single-day all-day candidates with
// the same title and location into one multi-day candidate, and drops exact
// duplicates.
func consolidate(cs []domain.ScheduleCandidate) []domain.ScheduleCandidate {
	type runKey struct{ title, location string }

	out := make([]domain.ScheduleCandidate, 0, len(cs))
	runs := map[runKey]int{}
	for _, c := range cs {
		if isDuplicate(out, c) {
			continue
		}
		if !c.IsAllDay || c.IsMultiDay() || c.Recurrence != nil {
			out = append(out, c)
			continue
		}

		k := runKey{c.Title, c.Location}
		if i, ok := runs[k]; ok {
			prev := &out[i]
			prevStart, _ := domain.ParseDate(prev.Date, time.UTC)
			prevEnd, _ := domain.ParseDate(prev.LastDate(), time.UTC)
			day, _ := domain.ParseDate(c.Date, time.UTC)
			diff := domain.DaysBetween(prevEnd, day)
			if diff == 1 {
				prev.EndDate = c.Date
				continue
			}
			if diff <= 0 && !day.Before(prevStart) {
				continue
			}
		}
		out = append(out, c)
		runs[k] = len(out) - 1
	}
	return out
}

func isDuplicate(list []domain.ScheduleCandidate, c domain.ScheduleCandidate) bool {
	for _, x := range list {
		if x.Title == c.Title && x.Date == c.Date && x.EndDate == c.EndDate &&
			x.StartTime == c.StartTime && x.EndTime == c.EndTime &&
			x.IsAllDay == c.IsAllDay && x.Location == c.Location {
			return true
		}
	}
	return false
}

// clean trims s and maps the literal strings models use for "nothing" to ""
func clean(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "なし", "未定":
		return ""
	}
	return s
}
