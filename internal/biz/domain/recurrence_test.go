package domain

import (
	"strings"
	"testing"
	"time"
)

func TestParseRecurrenceHint(t *testing.T) {
	anchor := time.Date(2025, 8, 6, 0, 0, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		hint string
		want *RecurrencePattern
	}{
		{"毎日", Daily()},
		{"daily", Daily()},
		{"毎週火曜日", Weekly(time.Tuesday)},
		{"every Friday", Weekly(time.Friday)},
		{"毎週", Weekly(time.Wednesday)},
		{"weekly", Weekly(time.Wednesday)},
		{"毎月第2火曜日", MonthlyByOrdinalWeekday(2, time.Tuesday)},
		{"毎月第３金曜", MonthlyByOrdinalWeekday(3, time.Friday)},
		{"毎月最終金曜日", MonthlyByOrdinalWeekday(LastOrdinal, time.Friday)},
		{"first Monday of every month", MonthlyByOrdinalWeekday(1, time.Monday)},
		{"last Friday of each month", MonthlyByOrdinalWeekday(LastOrdinal, time.Friday)},
	}

	for _, tt := range tests {
		got, ok := ParseRecurrenceHint(tt.hint, anchor)
		if !ok {
			t.Errorf("ParseRecurrenceHint(%q) not recognized", tt.hint)
			continue
		}
		if *got != *tt.want {
			t.Errorf("ParseRecurrenceHint(%q) = %+v, want %+v", tt.hint, *got, *tt.want)
		}
	}
}

func TestParseRecurrenceHint_Unsupported(t *testing.T) {
	for _, hint := range []string{"隔週水曜日", "every other week", "毎年", "", "yearly"} {
		if p, ok := ParseRecurrenceHint(hint, time.Now()); ok {
			t.Errorf("Expected %q to be unsupported, got %+v", hint, p)
		}
	}
	if _, ok := ParseRecurrenceHint("weekly", time.Time{}); ok {
		t.Error("Expected bare weekly without anchor to be unsupported")
	}
}

func TestRecurrenceRRule(t *testing.T) {
	rule, err := Weekly(time.Tuesday).RRule()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(rule, "FREQ=WEEKLY") || !strings.Contains(rule, "TU") {
		t.Errorf("Unexpected weekly rule: %s", rule)
	}
	if strings.Contains(rule, "DTSTART") {
		t.Errorf("Expected no DTSTART, got %s", rule)
	}

	rule, err = MonthlyByOrdinalWeekday(2, time.Tuesday).RRule()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(rule, "FREQ=MONTHLY") || !strings.Contains(rule, "2TU") {
		t.Errorf("Unexpected monthly rule: %s", rule)
	}

	if _, err := MonthlyByOrdinalWeekday(7, time.Tuesday).RRule(); err == nil {
		t.Error("Expected error for ordinal 7")
	}
}

func TestRecurrenceDescribe(t *testing.T) {
	tests := map[string]*RecurrencePattern{
		"毎日":      Daily(),
		"毎週火曜日":   Weekly(time.Tuesday),
		"毎月第2火曜日": MonthlyByOrdinalWeekday(2, time.Tuesday),
		"毎月最終金曜日": MonthlyByOrdinalWeekday(LastOrdinal, time.Friday),
	}
	for want, p := range tests {
		if got := p.Describe(); got != want {
			t.Errorf("Describe() = %q, want %q", got, want)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	if d, ok := ParseWeekday("Tue"); !ok || d != time.Tuesday {
		t.Errorf("Expected Tuesday, got %v %v", d, ok)
	}
	if d, ok := ParseWeekday("金曜日"); !ok || d != time.Friday {
		t.Errorf("Expected Friday, got %v %v", d, ok)
	}
	if _, ok := ParseWeekday("xyz"); ok {
		t.Error("Expected xyz to be rejected")
	}
}
