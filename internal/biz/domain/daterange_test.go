package domain

import (
	"testing"
	"time"
)

var tokyo = time.FixedZone("JST", 9*60*60)

// Wednesday
var testNow = time.Date(2025, 7, 30, 15, 4, 0, 0, tokyo)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, tokyo)
}

func TestResolveDateRange(t *testing.T) {
	tests := []struct {
		token      string
		start, end time.Time
	}{
		{"today", day(2025, 7, 30), day(2025, 7, 31)},
		{"今日", day(2025, 7, 30), day(2025, 7, 31)},
		{"tomorrow", day(2025, 7, 31), day(2025, 8, 1)},
		{"this_week", day(2025, 7, 28), day(2025, 8, 4)},
		{"next_week", day(2025, 8, 4), day(2025, 8, 11)},
		{"this_month", day(2025, 7, 1), day(2025, 8, 1)},
		{"2025-08-15", day(2025, 8, 15), day(2025, 8, 16)},
		{"", day(2025, 7, 30), day(2025, 9, 28)},
		{"someday", day(2025, 7, 30), day(2025, 9, 28)},
	}

	for _, tt := range tests {
		r := ResolveDateRange(tt.token, testNow)
		if !r.Start.Equal(tt.start) || !r.End.Equal(tt.end) {
			t.Errorf("ResolveDateRange(%q) = [%s, %s), want [%s, %s)", tt.token,
				r.Start.Format(DateLayout), r.End.Format(DateLayout),
				tt.start.Format(DateLayout), tt.end.Format(DateLayout))
		}
	}
}

func TestResolveDateRange_SundayBelongsToPreviousWeek(t *testing.T) {
	sunday := time.Date(2025, 8, 3, 10, 0, 0, 0, tokyo)
	r := ResolveDateRange(TokenThisWeek, sunday)
	if !r.Start.Equal(day(2025, 7, 28)) {
		t.Errorf("Expected week to start on 2025-07-28, got %s", r.Start.Format(DateLayout))
	}
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{Start: day(2025, 8, 1), End: day(2025, 8, 2)}
	if !r.Contains(day(2025, 8, 1)) {
		t.Error("Expected start to be inside")
	}
	if r.Contains(day(2025, 8, 2)) {
		t.Error("Expected end to be outside")
	}
}

func TestDetectDateToken(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"2025-8-5の会議", "2025-08-05"},
		{"8月5日の会議を削除", "2025-08-05"},
		{"3月1日の予定", "2026-03-01"},
		{"8/20の打ち合わせ", "2025-08-20"},
		{"明後日の予定", "2025-08-01"},
		{"明日の予定", TokenTomorrow},
		{"今日は何がある？", TokenToday},
		{"来週の予定", TokenNextWeek},
		{"今週の予定", TokenThisWeek},
		{"今月の予定", TokenThisMonth},
		{"2月30日", ""},
		{"定例会議", ""},
	}

	for _, tt := range tests {
		if got := DetectDateToken(tt.text, testNow); got != tt.want {
			t.Errorf("DetectDateToken(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestInferYear(t *testing.T) {
	if got := InferYear(time.August, testNow); got != 2025 {
		t.Errorf("Expected 2025 for a later month, got %d", got)
	}
	if got := InferYear(time.July, testNow); got != 2025 {
		t.Errorf("Expected 2025 for the current month, got %d", got)
	}
	if got := InferYear(time.January, testNow); got != 2026 {
		t.Errorf("Expected 2026 for an earlier month, got %d", got)
	}
}
