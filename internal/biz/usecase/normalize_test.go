package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

func boolPtr(b bool) *bool { return &b }

func TestNormalize_RangeIsOneCandidate(t *testing.T) {
	raw := []RawCandidate{{Title: "夏合宿", Date: "2025-08-02", EndDate: "2025-08-03", IsAllDay: boolPtr(true)}}

	got := NormalizeCandidates(raw, extractNow)
	if len(got) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.Date != "2025-08-02" || c.EndDate != "2025-08-03" || !c.IsAllDay {
		t.Errorf("Unexpected candidate: %+v", c)
	}
	if c.DayCount() != 2 {
		t.Errorf("Expected 2 days, got %d", c.DayCount())
	}
	if s := FormatCandidateTime(c); !strings.Contains(s, "2日間") {
		t.Errorf("Expected day count in %q", s)
	}
}

func TestNormalize_ConsecutiveDaysMerge(t *testing.T) {
	raw := []RawCandidate{
		{Title: "文化祭", Date: "2025-09-13", Location: "体育館"},
		{Title: "文化祭", Date: "2025-09-14", Location: "体育館"},
		{Title: "文化祭", Date: "2025-09-14", Location: "体育館"},
		{Title: "文化祭", Date: "2025-09-15", Location: "体育館"},
		{Title: "文化祭", Date: "2025-09-20", Location: "体育館"},
	}

	got := NormalizeCandidates(raw, extractNow)
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].Date != "2025-09-13" || got[0].EndDate != "2025-09-15" {
		t.Errorf("Expected 09-13..09-15, got %s..%s", got[0].Date, got[0].EndDate)
	}
	if got[1].Date != "2025-09-20" || got[1].IsMultiDay() {
		t.Errorf("Expected separate single day 09-20, got %+v", got[1])
	}
}

func TestNormalize_YearInference(t *testing.T) {
	now := time.Date(2025, 11, 20, 12, 0, 0, 0, tokyo)
	raw := []RawCandidate{
		{Title: "新年会", Date: "2025-01-10", StartTime: "19:00", YearSpecified: boolPtr(false)},
		{Title: "年末年始休暇", Date: "2025-12-29", EndDate: "2025-01-03", IsAllDay: boolPtr(true), YearSpecified: boolPtr(false)},
		{Title: "決算", Date: "2025-03-31", IsAllDay: boolPtr(true), YearSpecified: boolPtr(true)},
	}

	got := NormalizeCandidates(raw, now)
	if len(got) != 3 {
		t.Fatalf("Expected 3 candidates, got %d", len(got))
	}
	if got[0].Date != "2026-01-10" {
		t.Errorf("Expected January to roll into 2026, got %s", got[0].Date)
	}
	if got[1].Date != "2025-12-29" || got[1].EndDate != "2026-01-03" {
		t.Errorf("Expected 2025-12-29..2026-01-03, got %s..%s", got[1].Date, got[1].EndDate)
	}
	if got[2].Date != "2025-03-31" {
		t.Errorf("Expected explicit year kept, got %s", got[2].Date)
	}
}

func TestNormalize_TimeDefaults(t *testing.T) {
	raw := []RawCandidate{
		{Title: "start only", Date: "2025-08-05", StartTime: "9:30"},
		{Title: "end only", Date: "2025-08-05", EndTime: "18:00"},
		{Title: "inverted", Date: "2025-08-05", StartTime: "15:00", EndTime: "14:00"},
		{Title: "no time", Date: "2025-08-05", StartTime: "null"},
	}

	got := NormalizeCandidates(raw, extractNow)
	if len(got) != 4 {
		t.Fatalf("Expected 4 candidates, got %d", len(got))
	}
	want := [][2]string{{"09:30", "10:30"}, {"17:00", "18:00"}, {"15:00", "16:00"}, {"", ""}}
	for i, w := range want {
		if got[i].StartTime != w[0] || got[i].EndTime != w[1] {
			t.Errorf("%s: expected %s-%s, got %s-%s", got[i].Title, w[0], w[1], got[i].StartTime, got[i].EndTime)
		}
	}
	if !got[3].IsAllDay {
		t.Error("Expected candidate without times to be all-day")
	}
}

func TestNormalize_DropsInvalid(t *testing.T) {
	raw := []RawCandidate{
		{Title: "", Date: "2025-08-05"},
		{Title: "null", Date: "2025-08-05"},
		{Title: "no date", Date: "未定"},
		{Title: "bad date", Date: "2025-02-30"},
		{Title: "ok", Date: "2025-08-05", EndDate: "2025-08-01", IsAllDay: boolPtr(true)},
	}

	got := NormalizeCandidates(raw, extractNow)
	if len(got) != 1 {
		t.Fatalf("Expected only the valid candidate, got %+v", got)
	}
	if got[0].EndDate != "" {
		t.Errorf("Expected end before start to be ignored, got %s", got[0].EndDate)
	}
}

func TestNormalize_Recurrence(t *testing.T) {
	raw := []RawCandidate{
		{Title: "定例", Date: "2025-08-05", StartTime: "10:00", Recurrence: "毎週火曜日"},
		{Title: "隔週MTG", Date: "2025-08-06", StartTime: "10:00", Recurrence: "隔週"},
	}

	got := NormalizeCandidates(raw, extractNow)
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(got))
	}
	if got[0].Recurrence == nil || *got[0].Recurrence != *domain.Weekly(time.Tuesday) {
		t.Errorf("Expected weekly Tuesday, got %+v", got[0].Recurrence)
	}
	if got[1].Recurrence != nil {
		t.Errorf("Expected unsupported recurrence dropped, got %+v", got[1].Recurrence)
	}
}
