package repo

import (
	"context"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

// CalendarRepo is the calendar store
// Events are owned by the store; callers only hold read-only copies
type CalendarRepo interface {
	// Create creates a single event
	Create(ctx context.Context, spec domain.EventSpec) (*domain.CalendarEventRef, error)

	// CreateRecurring creates a series from an RRULE value (without DTSTART)
	CreateRecurring(ctx context.Context, spec domain.EventSpec, rrule string) (*domain.CalendarEventRef, error)

	// Update patches an event or one occurrence in place
	Update(ctx context.Context, id string, patch domain.EventPatch) (*domain.CalendarEventRef, error)

	// Delete deletes an event or one occurrence
	Delete(ctx context.Context, id string) error

	// Search lists events overlapping [start, end) whose title contains keyword
	// An empty keyword matches every event
	Search(ctx context.Context, keyword string, start, end time.Time) ([]domain.CalendarEventRef, error)

	// GetByID returns domain.ErrEventGone when the event does not exist
	GetByID(ctx context.Context, id string) (*domain.CalendarEventRef, error)

	// GetSeriesByID returns domain.ErrSeriesUnsupported when series cannot be addressed
	GetSeriesByID(ctx context.Context, seriesID string) (*domain.Series, error)

	// DeleteSeries deletes every occurrence of a series
	DeleteSeries(ctx context.Context, seriesID string) error
}

// SeriesTruncater is implemented by stores that can end a series early
type SeriesTruncater interface {
	// TruncateSeries removes every occurrence starting at or after from
	TruncateSeries(ctx context.Context, seriesID string, from time.Time) error
}
