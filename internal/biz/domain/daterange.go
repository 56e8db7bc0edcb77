package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Relative date tokens understood by the search engine
const (
	TokenToday     = "today"
	TokenTomorrow  = "tomorrow"
	TokenThisWeek  = "this_week"
	TokenNextWeek  = "next_week"
	TokenThisMonth = "this_month"
)

// DefaultSearchDays bounds a search with no date token, so past events are not surfaced
const DefaultSearchDays = 60

// DateRange is a half-open [Start, End) window
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

var tokenAliases = map[string]string{
	"今日": TokenToday, "本日": TokenToday,
	"明日": TokenTomorrow,
	"今週": TokenThisWeek, "this-week": TokenThisWeek, "this week": TokenThisWeek,
	"来週": TokenNextWeek, "next-week": TokenNextWeek, "next week": TokenNextWeek,
	"今月": TokenThisMonth, "this-month": TokenThisMonth, "this month": TokenThisMonth,
}

// ResolveDateRange turns a token into a concrete window relative to now.
// Unknown or empty tokens resolve to [today, today+60d).
func ResolveDateRange(token string, now time.Time) DateRange {
	today := StartOfDay(now)
	tok := strings.ToLower(strings.TrimSpace(token))
	if alias, ok := tokenAliases[tok]; ok {
		tok = alias
	}

	switch tok {
	case TokenToday:
		return DateRange{Start: today, End: today.AddDate(0, 0, 1)}
	case TokenTomorrow:
		return DateRange{Start: today.AddDate(0, 0, 1), End: today.AddDate(0, 0, 2)}
	case TokenThisWeek:
		monday := startOfWeek(today)
		return DateRange{Start: monday, End: monday.AddDate(0, 0, 7)}
	case TokenNextWeek:
		monday := startOfWeek(today).AddDate(0, 0, 7)
		return DateRange{Start: monday, End: monday.AddDate(0, 0, 7)}
	case TokenThisMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return DateRange{Start: first, End: first.AddDate(0, 1, 0)}
	}

	if d, err := ParseDate(tok, now.Location()); err == nil {
		return DateRange{Start: d, End: d.AddDate(0, 0, 1)}
	}
	return DateRange{Start: today, End: today.AddDate(0, 0, DefaultSearchDays)}
}

// startOfWeek returns the Monday on or before day
func startOfWeek(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

var (
	isoDateRe   = regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`)
	jaMonthDay  = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
)

// DetectDateToken finds the first date expression in text and returns a
// token ResolveDateRange understands, or "" when none is present.
func DetectDateToken(text string, now time.Time) string {
	t := FoldWidth(text)
	if m := isoDateRe.FindString(t); m != "" {
		parts := strings.Split(m, "-")
		y, _ := strconv.Atoi(parts[0])
		mo, _ := strconv.Atoi(parts[1])
		d, _ := strconv.Atoi(parts[2])
		return fmt.Sprintf("%04d-%02d-%02d", y, mo, d)
	}
	if m := jaMonthDay.FindStringSubmatch(t); m != nil {
		if tok, ok := monthDayToken(m[1], m[2], now); ok {
			return tok
		}
	}
	if m := slashDateRe.FindStringSubmatch(t); m != nil {
		if tok, ok := monthDayToken(m[1], m[2], now); ok {
			return tok
		}
	}

	lower := strings.ToLower(t)
	// longest aliases first so 明後日 never resolves as 明日
	switch {
	case strings.Contains(t, "明後日") || strings.Contains(t, "あさって"):
		return today(now).AddDate(0, 0, 2).Format(DateLayout)
	case strings.Contains(t, "今日") || strings.Contains(t, "本日") || strings.Contains(lower, "today"):
		return TokenToday
	case strings.Contains(t, "明日") || strings.Contains(lower, "tomorrow"):
		return TokenTomorrow
	case strings.Contains(t, "来週") || strings.Contains(lower, "next week"):
		return TokenNextWeek
	case strings.Contains(t, "今週") || strings.Contains(lower, "this week"):
		return TokenThisWeek
	case strings.Contains(t, "今月") || strings.Contains(lower, "this month"):
		return TokenThisMonth
	}
	return ""
}

func monthDayToken(ms, ds string, now time.Time) (string, bool) {
	mo, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return "", false
	}
	y := InferYear(time.Month(mo), now)
	date := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, now.Location())
	if date.Day() != d {
		return "", false
	}
	return date.Format(DateLayout), true
}

// InferYear resolves the year of a month given without one: a month earlier
// than the current month belongs to next year, otherwise to this year.
func InferYear(month time.Month, now time.Time) int {
	if month < now.Month() {
		return now.Year() + 1
	}
	return now.Year()
}

func today(now time.Time) time.Time {
	return StartOfDay(now)
}
