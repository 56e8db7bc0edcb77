package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// RecurrenceKind discriminates the RecurrencePattern variants
type RecurrenceKind string

const (
	RecurrenceDaily            RecurrenceKind = "daily"
	RecurrenceWeekly           RecurrenceKind = "weekly"
	RecurrenceMonthlyByOrdinal RecurrenceKind = "monthly_ordinal_weekday"
)

// LastOrdinal marks "last <weekday> of the month"
const LastOrdinal = -1

// RecurrencePattern is a closed variant: Daily, Weekly{DayOfWeek} or
// MonthlyByOrdinalWeekday{Ordinal, DayOfWeek}. It is produced only by the
// normalizer and never mutated afterwards.
type RecurrencePattern struct {
	Kind      RecurrenceKind `json:"kind"`
	DayOfWeek time.Weekday   `json:"dayOfWeek"`
	Ordinal   int            `json:"ordinal,omitempty"`
}

// Daily returns a daily pattern
func Daily() *RecurrencePattern {
	return &RecurrencePattern{Kind: RecurrenceDaily}
}

// Weekly returns a weekly pattern on day
func Weekly(day time.Weekday) *RecurrencePattern {
	return &RecurrencePattern{Kind: RecurrenceWeekly, DayOfWeek: day}
}

// MonthlyByOrdinalWeekday returns e.g. "2nd Tuesday of every month"
func MonthlyByOrdinalWeekday(ordinal int, day time.Weekday) *RecurrencePattern {
	return &RecurrencePattern{Kind: RecurrenceMonthlyByOrdinal, Ordinal: ordinal, DayOfWeek: day}
}

var jaWeekdays = []string{"日", "月", "火", "水", "木", "金", "土"}

// Describe renders the pattern for humans
func (p *RecurrencePattern) Describe() string {
	if p == nil {
		return ""
	}
	switch p.Kind {
	case RecurrenceDaily:
		return "毎日"
	case RecurrenceWeekly:
		return fmt.Sprintf("毎週%s曜日", jaWeekdays[p.DayOfWeek])
	case RecurrenceMonthlyByOrdinal:
		if p.Ordinal == LastOrdinal {
			return fmt.Sprintf("毎月最終%s曜日", jaWeekdays[p.DayOfWeek])
		}
		return fmt.Sprintf("毎月第%d%s曜日", p.Ordinal, jaWeekdays[p.DayOfWeek])
	}
	return ""
}

var rruleWeekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ROption converts the pattern to an rrule option anchored at dtstart
func (p *RecurrencePattern) ROption(dtstart time.Time) (rrule.ROption, error) {
	opt := rrule.ROption{Dtstart: dtstart}
	switch p.Kind {
	case RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{rruleWeekdays[p.DayOfWeek]}
	case RecurrenceMonthlyByOrdinal:
		if p.Ordinal == 0 || p.Ordinal < LastOrdinal || p.Ordinal > 5 {
			return opt, fmt.Errorf("invalid ordinal %d", p.Ordinal)
		}
		opt.Freq = rrule.MONTHLY
		opt.Byweekday = []rrule.Weekday{rruleWeekdays[p.DayOfWeek].Nth(p.Ordinal)}
	default:
		return opt, fmt.Errorf("unknown recurrence kind %q", p.Kind)
	}
	return opt, nil
}

// RRule renders the RFC 5545 RRULE value (without DTSTART)
func (p *RecurrencePattern) RRule() (string, error) {
	opt, err := p.ROption(time.Time{})
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

var (
	jaWeeklyRe     = regexp.MustCompile(`毎週\s*([日月火水木金土])曜`)
	jaMonthlyOrdRe = regexp.MustCompile(`毎月\s*第\s*([1-5１-５])\s*([日月火水木金土])曜`)
	jaMonthlyLast  = regexp.MustCompile(`毎月\s*最終\s*([日月火水木金土])曜`)
	enWeeklyRe     = regexp.MustCompile(`(?i)every\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)`)
	enMonthlyRe    = regexp.MustCompile(`(?i)(first|second|third|fourth|fifth|last|1st|2nd|3rd|4th|5th)\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\s+(of\s+)?(every|each)\s+month`)
)

var enOrdinals = map[string]int{
	"first": 1, "1st": 1, "second": 2, "2nd": 2, "third": 3, "3rd": 3,
	"fourth": 4, "4th": 4, "fifth": 5, "5th": 5, "last": LastOrdinal,
}

// ParseRecurrenceHint maps a free-text recurrence hint to a pattern.
// anchor supplies the weekday for bare "weekly" hints. Unsupported hints
// (every other week, yearly, ...) return false.
func ParseRecurrenceHint(hint string, anchor time.Time) (*RecurrencePattern, bool) {
	h := strings.TrimSpace(hint)
	if h == "" {
		return nil, false
	}
	lower := strings.ToLower(h)
	if strings.Contains(h, "隔週") || strings.Contains(lower, "every other") || strings.Contains(lower, "biweekly") {
		return nil, false
	}

	if m := jaMonthlyOrdRe.FindStringSubmatch(h); m != nil {
		n := fullWidthDigit(m[1])
		return MonthlyByOrdinalWeekday(n, jaWeekday(m[2])), true
	}
	if m := jaMonthlyLast.FindStringSubmatch(h); m != nil {
		return MonthlyByOrdinalWeekday(LastOrdinal, jaWeekday(m[1])), true
	}
	if m := enMonthlyRe.FindStringSubmatch(h); m != nil {
		day, _ := ParseWeekday(m[2])
		return MonthlyByOrdinalWeekday(enOrdinals[strings.ToLower(m[1])], day), true
	}
	if m := jaWeeklyRe.FindStringSubmatch(h); m != nil {
		return Weekly(jaWeekday(m[1])), true
	}
	if m := enWeeklyRe.FindStringSubmatch(h); m != nil {
		day, _ := ParseWeekday(m[1])
		return Weekly(day), true
	}
	if strings.Contains(h, "毎日") || lower == "daily" || strings.Contains(lower, "every day") {
		return Daily(), true
	}
	if strings.Contains(h, "毎週") || lower == "weekly" || strings.Contains(lower, "every week") {
		if anchor.IsZero() {
			return nil, false
		}
		return Weekly(anchor.Weekday()), true
	}
	return nil, false
}

// ParseWeekday parses an English or Japanese weekday name
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d, true
		}
	}
	for i, ja := range jaWeekdays {
		if strings.HasPrefix(s, ja) {
			return time.Weekday(i), true
		}
	}
	return time.Sunday, false
}

func jaWeekday(s string) time.Weekday {
	for i, ja := range jaWeekdays {
		if ja == s {
			return time.Weekday(i)
		}
	}
	return time.Sunday
}

func fullWidthDigit(s string) int {
	s = strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return '0' + (r - '０')
		}
		return r
	}, s)
	n, _ := strconv.Atoi(s)
	return n
}

// JaWeekday returns the one-character Japanese weekday name
func JaWeekday(d time.Weekday) string {
	return jaWeekdays[d]
}
