package data

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

var tokyo = time.FixedZone("JST", 9*60*60)

func newTestCalendar(t *testing.T) *CalendarStore {
	t.Helper()
	s, err := NewCalendarStore(filepath.Join(t.TempDir(), "calendar.db"), tokyo, "https://calendar.example/e/%s")
	if err != nil {
		t.Fatalf("Failed to open calendar: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func at(month time.Month, day, hour, min int) time.Time {
	return time.Date(2025, month, day, hour, min, 0, 0, tokyo)
}

// weeklyStandup creates a Tuesday 10:00-11:00 series starting 2025-08-05
func weeklyStandup(t *testing.T, s *CalendarStore) *domain.CalendarEventRef {
	t.Helper()
	ev, err := s.CreateRecurring(context.Background(), domain.EventSpec{
		Title: "定例",
		Start: at(8, 5, 10, 0),
		End:   at(8, 5, 11, 0),
	}, "FREQ=WEEKLY;BYDAY=TU")
	if err != nil {
		t.Fatalf("CreateRecurring failed: %v", err)
	}
	return ev
}

func searchAll(t *testing.T, s *CalendarStore, keyword string) []domain.CalendarEventRef {
	t.Helper()
	events, err := s.Search(context.Background(), keyword, at(8, 1, 0, 0), at(9, 1, 0, 0))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	return events
}

func TestCalendar_CreateAndGet(t *testing.T) {
	s := newTestCalendar(t)
	ctx := context.Background()

	ev, err := s.Create(ctx, domain.EventSpec{Title: "歯医者", Location: "駅前", Start: at(8, 2, 15, 0), End: at(8, 2, 16, 0)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(ev.ID) != 26 {
		t.Errorf("Expected ULID id, got %q", ev.ID)
	}
	if ev.ExternalLink != "https://calendar.example/e/"+ev.ID {
		t.Errorf("Unexpected link: %s", ev.ExternalLink)
	}

	got, err := s.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "歯医者" || got.Location != "駅前" || !got.Start.Equal(ev.Start) {
		t.Errorf("Unexpected event: %+v", got)
	}
	if got.Start.Location() != tokyo {
		t.Errorf("Expected times in calendar zone, got %v", got.Start.Location())
	}

	if _, err := s.GetByID(ctx, "nope"); !errors.Is(err, domain.ErrEventGone) {
		t.Errorf("Expected ErrEventGone, got %v", err)
	}
}

func TestCalendar_CreateRejectsInvalid(t *testing.T) {
	s := newTestCalendar(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, domain.EventSpec{Title: "x", Start: at(8, 2, 16, 0), End: at(8, 2, 15, 0)}); err == nil {
		t.Error("Expected error for end before start")
	}
	if _, err := s.Create(ctx, domain.EventSpec{Title: " ", Start: at(8, 2, 15, 0), End: at(8, 2, 16, 0)}); err == nil {
		t.Error("Expected error for blank title")
	}
	if _, err := s.CreateRecurring(ctx, domain.EventSpec{Title: "x", Start: at(8, 2, 15, 0), End: at(8, 2, 16, 0)}, "FREQ=SOMETIMES"); err == nil {
		t.Error("Expected error for invalid rrule")
	}
}

func TestCalendar_Search(t *testing.T) {
	s := newTestCalendar(t)
	ctx := context.Background()

	s.Create(ctx, domain.EventSpec{Title: "Team Meeting", Start: at(8, 4, 10, 0), End: at(8, 4, 11, 0)})
	s.Create(ctx, domain.EventSpec{Title: "夏休み", Start: at(8, 10, 0, 0), End: at(8, 13, 0, 0), IsAllDay: true})
	s.Create(ctx, domain.EventSpec{Title: "meeting prep", Start: at(9, 2, 10, 0), End: at(9, 2, 11, 0)})

	got := searchAll(t, s, "MEETING")
	if len(got) != 1 || got[0].Title != "Team Meeting" {
		t.Errorf("Expected case-insensitive match inside the range, got %+v", got)
	}
	if got := searchAll(t, s, ""); len(got) != 2 {
		t.Errorf("Expected empty keyword to match all in range, got %d", len(got))
	}

	overlap, _ := s.Search(ctx, "夏休み", at(8, 12, 0, 0), at(8, 12, 23, 59))
	if len(overlap) != 1 || !overlap[0].IsAllDay {
		t.Errorf("Expected multi-day event to overlap, got %+v", overlap)
	}
}

func TestCalendar_RecurringExpansion(t *testing.T) {
	s := newTestCalendar(t)
	series := weeklyStandup(t, s)

	got := searchAll(t, s, "定例")
	if len(got) != 4 {
		t.Fatalf("Expected 4 Tuesdays in August, got %d", len(got))
	}
	for i, day := range []int{5, 12, 19, 26} {
		if !got[i].Start.Equal(at(8, day, 10, 0)) {
			t.Errorf("Occurrence %d: expected 8/%d, got %v", i, day, got[i].Start)
		}
		if got[i].SeriesID != series.ID || got[i].ID != domain.OccurrenceID(series.ID, got[i].Start) {
			t.Errorf("Occurrence %d: unexpected ids %s / %s", i, got[i].ID, got[i].SeriesID)
		}
	}

	occ, err := s.GetByID(context.Background(), got[1].ID)
	if err != nil || !occ.Start.Equal(at(8, 12, 10, 0)) || !occ.End.Equal(at(8, 12, 11, 0)) {
		t.Errorf("Expected occurrence lookup, got %+v (%v)", occ, err)
	}
	if _, err := s.GetByID(context.Background(), series.ID+"_20250813"); !errors.Is(err, domain.ErrEventGone) {
		t.Errorf("Expected ErrEventGone for a non-occurrence date, got %v", err)
	}

	sr, err := s.GetSeriesByID(context.Background(), series.ID)
	if err != nil || sr.RecurrenceRule != "FREQ=WEEKLY;BYDAY=TU" {
		t.Errorf("Expected series, got %+v (%v)", sr, err)
	}
}

func TestCalendar_DeleteOccurrence(t *testing.T) {
	s := newTestCalendar(t)
	ctx := context.Background()
	series := weeklyStandup(t, s)

	id := domain.OccurrenceID(series.ID, at(8, 12, 10, 0))
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := searchAll(t, s, "定例"); len(got) != 3 {
		t.Errorf("Expected 3 occurrences left, got %d", len(got))
	}
	if _, err := s.GetByID(ctx, id); !errors.Is(err, domain.ErrEventGone) {
		t.Errorf("Expected deleted occurrence gone, got %v", err)
	}
}

func TestCalendar_UpdateOccurrenceDetaches(t *testing.T) {
	s := newTestCalendar(t)
	ctx := context.Background()
	series := weeklyStandup(t, s)

	title := "定例（拡大版）"
	id := domain.OccurrenceID(series.ID, at(8, 19, 10, 0))
	updated, err := s.Update(ctx, id, domain.EventPatch{Title: &title})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.ID == id || updated.RecurrenceRule != "" || !updated.Start.Equal(at(8, 19, 10, 0)) {
		t.Errorf("Expected standalone event at 8/19, got %+v", updated)
	}

	got := searchAll(t, s, "")
	if len(got) != 4 {
		t.Fatalf("Expected 3 occurrences and 1 detached event, got %d", len(got))
	}
	if got[2].Title != title {
		t.Errorf("Expected detached event in order, got %q", got[2].Title)
	}
}

func TestCalendar_UpdateSingle(t *testing.T) {
	s := newTestCalendar(t)
	ctx := context.Background()
	ev, _ := s.Create(ctx, domain.EventSpec{Title: "会議", Start: at(8, 4, 10, 0), End: at(8, 4, 11, 0)})

	loc := "会議室B"
	start, end := at(8, 4, 15, 0), at(8, 4, 16, 0)
	updated, err := s.Update(ctx, ev.ID, domain.EventPatch{Location: &loc, Start: &start, End: &end})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.ID != ev.ID || updated.Location != loc || !updated.Start.Equal(start) {
		t.Errorf("Unexpected update: %+v", updated)
	}

	bad := at(8, 4, 14, 0)
	if _, err := s.Update(ctx, ev.ID, domain.EventPatch{End: &bad}); err == nil {
		t.Error("Expected error for end before start")
	}
}

func TestCalendar_TruncateSeries(t *testing.T) {
	s := newTestCalendar(t)
	series := weeklyStandup(t, s)

	if err := s.TruncateSeries(context.Background(), series.ID, at(8, 19, 10, 0)); err != nil {
		t.Fatalf("TruncateSeries failed: %v", err)
	}
	got := searchAll(t, s, "定例")
	if len(got) != 2 {
		t.Fatalf("Expected 2 occurrences before the cut, got %d", len(got))
	}
	if !got[1].Start.Equal(at(8, 12, 10, 0)) {
		t.Errorf("Expected last occurrence 8/12, got %v", got[1].Start)
	}
	if !strings.Contains(got[0].RecurrenceRule, "UNTIL=") {
		t.Errorf("Expected UNTIL in rule, got %q", got[0].RecurrenceRule)
	}
}

func TestCalendar_DeleteSeries(t *testing.T) {
	s := newTestCalendar(t)
	ctx := context.Background()
	series := weeklyStandup(t, s)
	s.Delete(ctx, domain.OccurrenceID(series.ID, at(8, 12, 10, 0)))

	if err := s.DeleteSeries(ctx, series.ID); err != nil {
		t.Fatalf("DeleteSeries failed: %v", err)
	}
	if got := searchAll(t, s, ""); len(got) != 0 {
		t.Errorf("Expected empty calendar, got %d", len(got))
	}
	if err := s.DeleteSeries(ctx, series.ID); !errors.Is(err, domain.ErrEventGone) {
		t.Errorf("Expected ErrEventGone, got %v", err)
	}

	all, err := s.All(ctx)
	if err != nil || len(all) != 0 {
		t.Errorf("Expected no stored rows, got %d (%v)", len(all), err)
	}
}

func TestExportICS(t *testing.T) {
	s := newTestCalendar(t)
	ctx := context.Background()

	s.Create(ctx, domain.EventSpec{Title: "夏休み", Start: at(8, 2, 0, 0), End: at(8, 5, 0, 0), IsAllDay: true})
	series := weeklyStandup(t, s)
	s.Delete(ctx, domain.OccurrenceID(series.ID, at(8, 12, 10, 0)))

	out, err := s.ExportICS(ctx)
	if err != nil {
		t.Fatalf("ExportICS failed: %v", err)
	}
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"SUMMARY:夏休み",
		"SUMMARY:定例",
		"VALUE=DATE",
		"RRULE:FREQ=WEEKLY;BYDAY=TU",
		"EXDATE",
		"20250812T010000Z",
		series.ID + "@schedule-bridge",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected feed to contain %q", want)
		}
	}
}
