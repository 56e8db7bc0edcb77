package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

var tokyo = time.FixedZone("JST", 9*60*60)

// Mock implementations

type mockLedgerRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	err     error
}

func newMockLedgerRepo() *mockLedgerRepo {
	return &mockLedgerRepo{entries: make(map[string][]byte)}
}

func (m *mockLedgerRepo) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mockLedgerRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries[key] = value
	return nil
}

type llmCall struct {
	model  string
	prompt string
}

// mockLLMRepo answers per model from a queue of responses
type mockLLMRepo struct {
	responses map[string][]llmResponse
	calls     []llmCall
}

type llmResponse struct {
	text string
	err  error
}

func (m *mockLLMRepo) Generate(ctx context.Context, model, prompt string) (string, error) {
	m.calls = append(m.calls, llmCall{model: model, prompt: prompt})
	queue := m.responses[model]
	if len(queue) == 0 {
		return "", fmt.Errorf("no response for %s", model)
	}
	r := queue[0]
	if len(queue) > 1 {
		m.responses[model] = queue[1:]
	}
	return r.text, r.err
}

func (m *mockLLMRepo) models() []string {
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.model
	}
	return out
}

func transient(model string) error {
	return &domain.TransientProviderError{Provider: "test/" + model, StatusCode: 429, Err: errors.New("rate limited")}
}

// mockCalendarRepo is an in-memory calendar
type mockCalendarRepo struct {
	events  map[string]*domain.CalendarEventRef
	order   []string
	nextID  int
	created []string
	updated []string
	deleted []string

	createErr          error
	createRecurringErr error
	updateErr          error
	deleteErr          error
	deleteSeriesErr    error
}

func newMockCalendarRepo() *mockCalendarRepo {
	return &mockCalendarRepo{events: make(map[string]*domain.CalendarEventRef)}
}

func (m *mockCalendarRepo) add(ev domain.CalendarEventRef) *domain.CalendarEventRef {
	if ev.ID == "" {
		m.nextID++
		ev.ID = fmt.Sprintf("evt-%d", m.nextID)
	}
	m.events[ev.ID] = &ev
	m.order = append(m.order, ev.ID)
	return &ev
}

func (m *mockCalendarRepo) Create(ctx context.Context, spec domain.EventSpec) (*domain.CalendarEventRef, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	ev := m.add(domain.CalendarEventRef{
		Title:       spec.Title,
		Start:       spec.Start,
		End:         spec.End,
		IsAllDay:    spec.IsAllDay,
		Location:    spec.Location,
		Description: spec.Description,
	})
	m.created = append(m.created, ev.ID)
	return ev, nil
}

func (m *mockCalendarRepo) CreateRecurring(ctx context.Context, spec domain.EventSpec, rrule string) (*domain.CalendarEventRef, error) {
	if m.createRecurringErr != nil {
		return nil, m.createRecurringErr
	}
	ev := m.add(domain.CalendarEventRef{
		Title:          spec.Title,
		Start:          spec.Start,
		End:            spec.End,
		IsAllDay:       spec.IsAllDay,
		Location:       spec.Location,
		RecurrenceRule: rrule,
	})
	m.created = append(m.created, ev.ID)
	return ev, nil
}

func (m *mockCalendarRepo) Update(ctx context.Context, id string, patch domain.EventPatch) (*domain.CalendarEventRef, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	ev, ok := m.events[id]
	if !ok {
		return nil, domain.ErrEventGone
	}
	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.Location != nil {
		ev.Location = *patch.Location
	}
	if patch.Start != nil {
		ev.Start = *patch.Start
	}
	if patch.End != nil {
		ev.End = *patch.End
	}
	m.updated = append(m.updated, id)
	cp := *ev
	return &cp, nil
}

func (m *mockCalendarRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.events[id]; !ok {
		return domain.ErrEventGone
	}
	delete(m.events, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCalendarRepo) Search(ctx context.Context, keyword string, start, end time.Time) ([]domain.CalendarEventRef, error) {
	var out []domain.CalendarEventRef
	for _, id := range m.order {
		ev, ok := m.events[id]
		if !ok || !strings.Contains(ev.Title, keyword) {
			continue
		}
		if ev.Start.Before(end) && ev.End.After(start) {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *mockCalendarRepo) GetByID(ctx context.Context, id string) (*domain.CalendarEventRef, error) {
	ev, ok := m.events[id]
	if !ok {
		return nil, domain.ErrEventGone
	}
	cp := *ev
	return &cp, nil
}

func (m *mockCalendarRepo) GetSeriesByID(ctx context.Context, seriesID string) (*domain.Series, error) {
	ev, ok := m.events[seriesID]
	if !ok || ev.RecurrenceRule == "" {
		return nil, domain.ErrSeriesUnsupported
	}
	return &domain.Series{ID: ev.ID, Title: ev.Title, RecurrenceRule: ev.RecurrenceRule, Start: ev.Start, End: ev.End}, nil
}

func (m *mockCalendarRepo) DeleteSeries(ctx context.Context, seriesID string) error {
	if m.deleteSeriesErr != nil {
		return m.deleteSeriesErr
	}
	return m.Delete(ctx, seriesID)
}

// truncatingCalendar adds series truncation to the in-memory calendar
type truncatingCalendar struct {
	*mockCalendarRepo
	truncated map[string]time.Time
}

func (t *truncatingCalendar) TruncateSeries(ctx context.Context, seriesID string, from time.Time) error {
	if t.truncated == nil {
		t.truncated = make(map[string]time.Time)
	}
	t.truncated[seriesID] = from
	return nil
}

type mockConverterRepo struct {
	text string
	err  error
	got  []string
}

func (m *mockConverterRepo) Convert(ctx context.Context, data []byte, name, mimeType string) (string, error) {
	m.got = append(m.got, name)
	return m.text, m.err
}

type mockFetcherRepo struct {
	pages map[string]string
}

func (m *mockFetcherRepo) Fetch(ctx context.Context, url string) (string, error) {
	text, ok := m.pages[url]
	if !ok {
		return "", &domain.ConversionError{Source: url, Err: errors.New("404")}
	}
	return text, nil
}

type mockDownloader struct {
	data []byte
	err  error
}

func (m *mockDownloader) Download(ctx context.Context, file domain.FileRef) ([]byte, error) {
	return m.data, m.err
}
