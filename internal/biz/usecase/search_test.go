package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

func TestSearch_UnionSortedByStart(t *testing.T) {
	cal := newMockCalendarRepo()
	at := func(d, h int) time.Time { return time.Date(2025, 8, d, h, 0, 0, 0, tokyo) }
	cal.add(domain.CalendarEventRef{Title: "週次定例", Start: at(5, 10), End: at(5, 11)})
	cal.add(domain.CalendarEventRef{Title: "定例 振り返り", Start: at(1, 15), End: at(1, 16)})
	cal.add(domain.CalendarEventRef{Title: "1on1", Start: at(3, 9), End: at(3, 10)})
	cal.add(domain.CalendarEventRef{Title: "ランチ", Start: at(2, 12), End: at(2, 13)})

	uc := NewSearchUsecase(cal)
	events, rng, err := uc.Search(context.Background(), []string{"定例", "1on1"}, "", extractNow)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	want := []string{"定例 振り返り", "1on1", "週次定例"}
	for i, w := range want {
		if events[i].Title != w {
			t.Errorf("events[%d] = %s, want %s", i, events[i].Title, w)
		}
	}
	if rng.End.Sub(rng.Start) != domain.DefaultSearchDays*24*time.Hour {
		t.Errorf("Expected default window, got %s..%s", rng.Start, rng.End)
	}
}

func TestSearch_NoKeywordsListsWindow(t *testing.T) {
	cal := newMockCalendarRepo()
	cal.add(domain.CalendarEventRef{Title: "A", Start: time.Date(2025, 7, 31, 10, 0, 0, 0, tokyo), End: time.Date(2025, 7, 31, 11, 0, 0, 0, tokyo)})
	cal.add(domain.CalendarEventRef{Title: "B", Start: time.Date(2025, 8, 1, 10, 0, 0, 0, tokyo), End: time.Date(2025, 8, 1, 11, 0, 0, 0, tokyo)})

	events, _, err := NewSearchUsecase(cal).Search(context.Background(), nil, domain.TokenTomorrow, extractNow)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Title != "A" {
		t.Errorf("Expected only tomorrow's event, got %+v", events)
	}
}
