package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
)

// SearchUsecase finds existing events for check, modify and delete
type SearchUsecase struct {
	calendar repo.CalendarRepo
}

// NewSearchUsecase creates a new search usecase
func NewSearchUsecase(calendar repo.CalendarRepo) *SearchUsecase {
	return &SearchUsecase{calendar: calendar}
}

// Search runs one calendar query per keyword inside the window named by
// token and returns the union, deduplicated by id and sorted by start
func (uc *SearchUsecase) Search(ctx context.Context, keywords []string, token string, now time.Time) ([]domain.CalendarEventRef, domain.DateRange, error) {
	rng := domain.ResolveDateRange(token, now)

	queries := keywords
	if len(queries) == 0 {
		queries = []string{""}
	}

	seen := make(map[string]bool)
	var out []domain.CalendarEventRef
	for _, kw := range queries {
		events, err := uc.calendar.Search(ctx, kw, rng.Start, rng.End)
		if err != nil {
			return nil, rng, fmt.Errorf("search %q: %w", kw, err)
		}
		for _, e := range events {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	fmt.Printf("[Search] %d events for %v in %s..%s\n", len(out), keywords,
		rng.Start.Format(domain.DateLayout), rng.End.Format(domain.DateLayout))
	return out, rng, nil
}
