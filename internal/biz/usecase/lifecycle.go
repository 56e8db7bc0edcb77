package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
)

const (
	followingScanYears = 2
	allScanPastYears   = 1
)

// LifecycleUsecase applies confirmed mutations to the calendar.
// Mutations are never retried automatically.
type LifecycleUsecase struct {
	calendar repo.CalendarRepo
	loc      *time.Location
}

// NewLifecycleUsecase creates a new lifecycle usecase
func NewLifecycleUsecase(calendar repo.CalendarRepo, loc *time.Location) *LifecycleUsecase {
	if loc == nil {
		loc = time.Local
	}
	return &LifecycleUsecase{calendar: calendar, loc: loc}
}

// Transition logs a state change of an action
func (uc *LifecycleUsecase) Transition(op string, from, to domain.ActionState) {
	if !domain.CanTransition(from, to) {
		fmt.Printf("[Lifecycle] %s: illegal transition %s -> %s\n", op, from, to)
		return
	}
	fmt.Printf("[Lifecycle] %s: %s -> %s\n", op, from, to)
}

func (uc *LifecycleUsecase) finish(op string, err error) {
	if err != nil {
		uc.Transition(op, domain.StateConfirmed, domain.StateFailed)
		return
	}
	uc.Transition(op, domain.StateConfirmed, domain.StateApplied)
}

// ToEventSpec converts a candidate into calendar times. All-day ends are
// exclusive; timed events default to 09:00-10:00.
func (uc *LifecycleUsecase) ToEventSpec(c domain.ScheduleCandidate) (domain.EventSpec, error) {
	spec := domain.EventSpec{
		Title:       c.Title,
		Description: c.Description,
		Location:    c.Location,
		IsAllDay:    c.IsAllDay,
	}
	first, err := domain.ParseDate(c.Date, uc.loc)
	if err != nil {
		return spec, err
	}
	last, err := domain.ParseDate(c.LastDate(), uc.loc)
	if err != nil || last.Before(first) {
		last = first
	}

	if c.IsAllDay {
		spec.Start = first
		spec.End = last.AddDate(0, 0, 1)
		return spec, nil
	}

	startClock := c.StartTime
	if startClock == "" {
		startClock = domain.DefaultStartClock
	}
	spec.Start, err = domain.CombineDateClock(first, startClock)
	if err != nil {
		return spec, err
	}
	if c.EndTime == "" {
		if c.StartTime == "" {
			spec.End, _ = domain.CombineDateClock(last, domain.DefaultEndClock)
		} else {
			spec.End = spec.Start.AddDate(0, 0, domain.DaysBetween(first, last)).Add(time.Hour)
		}
	} else if spec.End, err = domain.CombineDateClock(last, c.EndTime); err != nil {
		return spec, err
	}
	if !spec.End.After(spec.Start) {
		spec.End = spec.Start.Add(time.Hour)
	}
	return spec, nil
}

// Create commits a candidate. A recurring candidate whose series cannot be
// created falls back to a single event.
func (uc *LifecycleUsecase) Create(ctx context.Context, c domain.ScheduleCandidate) (ev *domain.CalendarEventRef, err error) {
	defer func() { uc.finish("create", err) }()

	spec, err := uc.ToEventSpec(c)
	if err != nil {
		return nil, &domain.LifecycleError{Op: "create", Err: err}
	}

	if c.Recurrence != nil {
		rule, rerr := c.Recurrence.RRule()
		if rerr == nil {
			ev, rerr = uc.calendar.CreateRecurring(ctx, spec, rule)
		}
		if rerr == nil {
			fmt.Printf("[Lifecycle] Created series %s (%s)\n", ev.ID, rule)
			return ev, nil
		}
		fmt.Printf("[Lifecycle] Recurring create failed, creating single event: %v\n", rerr)
	}

	ev, err = uc.calendar.Create(ctx, spec)
	if err != nil {
		return nil, &domain.LifecycleError{Op: "create", Err: err}
	}
	fmt.Printf("[Lifecycle] Created %s %q\n", ev.ID, ev.Title)
	return ev, nil
}

// CreateResult is the outcome of one candidate in a batch
type CreateResult struct {
	Candidate domain.ScheduleCandidate
	Event     *domain.CalendarEventRef
	Err       error
}

// CreateAll commits every candidate, continuing past failures
func (uc *LifecycleUsecase) CreateAll(ctx context.Context, cs []domain.ScheduleCandidate) []CreateResult {
	results := make([]CreateResult, 0, len(cs))
	for _, c := range cs {
		ev, err := uc.Create(ctx, c)
		results = append(results, CreateResult{Candidate: c, Event: ev, Err: err})
	}
	return results
}

// Lookup re-reads an event by id; a vanished event yields domain.ErrEventGone
func (uc *LifecycleUsecase) Lookup(ctx context.Context, eventID string) (*domain.CalendarEventRef, error) {
	ev, err := uc.calendar.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrEventGone) {
			return nil, domain.ErrEventGone
		}
		return nil, &domain.LifecycleError{Op: "lookup", Err: err}
	}
	if ev == nil {
		return nil, domain.ErrEventGone
	}
	return ev, nil
}

// NeedsRecreation reports whether mod cannot be applied in place: the end
// date changes, all-day is toggled, or an all-day event moves to another date.
// Giving an all-day event a start or end time toggles it as well.
func NeedsRecreation(orig *domain.CalendarEventRef, mod *domain.Modification) bool {
	if mod == nil {
		return false
	}
	cur := orig.ToCandidate()
	if mod.EndDate != nil {
		newEnd := *mod.EndDate
		if newEnd == cur.Date {
			newEnd = ""
		}
		if newEnd != cur.EndDate {
			return true
		}
	}
	merged := MergeModification(cur, mod)
	if merged.IsAllDay != orig.IsAllDay {
		return true
	}
	return merged.IsAllDay && mod.Date != nil && *mod.Date != cur.Date
}

// MergeModification applies mod on top of orig. Moving the date keeps the
// span of a multi-day event; changing only the start time keeps the duration.
func MergeModification(orig domain.ScheduleCandidate, mod *domain.Modification) domain.ScheduleCandidate {
	c := orig
	if mod == nil {
		return c
	}
	if mod.Title != nil {
		c.Title = *mod.Title
	}
	if mod.Location != nil {
		c.Location = *mod.Location
	}

	if mod.Date != nil {
		span := orig.DayCount() - 1
		c.Date = *mod.Date
		c.EndDate = ""
		if span > 0 {
			if d, err := domain.ParseDate(*mod.Date, time.UTC); err == nil {
				c.EndDate = d.AddDate(0, 0, span).Format(domain.DateLayout)
			}
		}
	}
	if mod.EndDate != nil {
		c.EndDate = *mod.EndDate
	}
	if c.EndDate == c.Date {
		c.EndDate = ""
	}

	if mod.IsAllDay != nil {
		c.IsAllDay = *mod.IsAllDay
		if c.IsAllDay {
			c.StartTime, c.EndTime = "", ""
		} else if c.StartTime == "" && c.EndTime == "" {
			c.StartTime, c.EndTime = domain.DefaultStartClock, domain.DefaultEndClock
		}
	}

	switch {
	case mod.StartTime != nil && mod.EndTime != nil:
		c.StartTime, c.EndTime = *mod.StartTime, *mod.EndTime
		c.IsAllDay = false
	case mod.StartTime != nil:
		dur := time.Hour
		if !orig.IsAllDay {
			if d := clockDiff(orig.StartTime, orig.EndTime); d > 0 {
				dur = d
			}
		}
		c.StartTime = *mod.StartTime
		c.EndTime = domain.ShiftClock(*mod.StartTime, dur)
		c.IsAllDay = false
	case mod.EndTime != nil:
		c.EndTime = *mod.EndTime
		if c.IsAllDay || c.StartTime == "" {
			c.StartTime = domain.ShiftClock(*mod.EndTime, -time.Hour)
		}
		c.IsAllDay = false
	}
	return c
}

func clockDiff(start, end string) time.Duration {
	s, err1 := time.Parse(domain.ClockLayout, start)
	e, err2 := time.Parse(domain.ClockLayout, end)
	if err1 != nil || err2 != nil {
		return 0
	}
	return e.Sub(s)
}

// Modify applies a confirmed modification, in place when possible and by
// create-then-delete otherwise. If the original cannot be deleted after the
// replacement was created, *domain.PartialSuccessError is returned.
func (uc *LifecycleUsecase) Modify(ctx context.Context, eventID string, mod *domain.Modification) (ev *domain.CalendarEventRef, err error) {
	orig, err := uc.Lookup(ctx, eventID)
	if err != nil {
		return nil, err
	}
	defer func() { uc.finish("modify", err) }()

	if NeedsRecreation(orig, mod) {
		return uc.recreate(ctx, orig, mod)
	}

	patch := domain.EventPatch{Title: mod.Title, Location: mod.Location}
	if mod.Date != nil || mod.StartTime != nil || mod.EndTime != nil || mod.IsAllDay != nil {
		merged := MergeModification(orig.ToCandidate(), mod)
		spec, serr := uc.ToEventSpec(merged)
		if serr != nil {
			return nil, &domain.LifecycleError{Op: "update", Err: serr}
		}
		patch.Start, patch.End = &spec.Start, &spec.End
	}
	if patch.IsEmpty() {
		return orig, nil
	}

	ev, err = uc.calendar.Update(ctx, orig.ID, patch)
	if err != nil {
		return nil, &domain.LifecycleError{Op: "update", Err: err}
	}
	fmt.Printf("[Lifecycle] Updated %s in place\n", orig.ID)
	return ev, nil
}

func (uc *LifecycleUsecase) recreate(ctx context.Context, orig *domain.CalendarEventRef, mod *domain.Modification) (*domain.CalendarEventRef, error) {
	merged := MergeModification(orig.ToCandidate(), mod)
	spec, err := uc.ToEventSpec(merged)
	if err != nil {
		return nil, &domain.LifecycleError{Op: "recreate", Err: err}
	}

	created, err := uc.calendar.Create(ctx, spec)
	if err != nil {
		return nil, &domain.LifecycleError{Op: "recreate", Err: err}
	}
	if err := uc.calendar.Delete(ctx, orig.ID); err != nil {
		fmt.Printf("[Lifecycle] Created %s but could not delete %s: %v\n", created.ID, orig.ID, err)
		return created, &domain.PartialSuccessError{Created: created, OriginalID: orig.ID, Err: err}
	}
	fmt.Printf("[Lifecycle] Recreated %s as %s\n", orig.ID, created.ID)
	return created, nil
}

// IsRecurring reports whether ev belongs to a series, by id structure or by
// asking the calendar for a series with that id
func (uc *LifecycleUsecase) IsRecurring(ctx context.Context, ev *domain.CalendarEventRef) bool {
	if ev.IsRecurring() {
		return true
	}
	s, err := uc.calendar.GetSeriesByID(ctx, ev.ID)
	return err == nil && s != nil && s.RecurrenceRule != ""
}

// Delete deletes a single event after re-reading it and returns the
// deleted event
func (uc *LifecycleUsecase) Delete(ctx context.Context, eventID string) (ev *domain.CalendarEventRef, err error) {
	ev, err = uc.Lookup(ctx, eventID)
	if err != nil {
		return nil, err
	}
	defer func() { uc.finish("delete", err) }()

	if err := uc.calendar.Delete(ctx, ev.ID); err != nil {
		return ev, &domain.LifecycleError{Op: "delete", Err: err}
	}
	fmt.Printf("[Lifecycle] Deleted %s\n", ev.ID)
	return ev, nil
}

// DeleteScoped deletes occurrences of a recurring event and returns the
// target and how many calendar objects were removed (a whole series counts as one)
func (uc *LifecycleUsecase) DeleteScoped(ctx context.Context, eventID string, scope domain.DeleteScope) (ev *domain.CalendarEventRef, n int, err error) {
	ev, err = uc.Lookup(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	n, err = uc.deleteScoped(ctx, ev, scope)
	return ev, n, err
}

func (uc *LifecycleUsecase) deleteScoped(ctx context.Context, ev *domain.CalendarEventRef, scope domain.DeleteScope) (n int, err error) {
	defer func() { uc.finish("delete_"+string(scope), err) }()

	seriesID := ev.SeriesID
	if seriesID == "" {
		if sid, _, ok := domain.SplitOccurrenceID(ev.ID); ok {
			seriesID = sid
		} else {
			seriesID = ev.ID
		}
	}

	switch scope {
	case domain.ScopeThis:
		if err := uc.calendar.Delete(ctx, ev.ID); err != nil {
			return 0, &domain.LifecycleError{Op: "delete", Err: err}
		}
		return 1, nil

	case domain.ScopeFollowing:
		if t, ok := uc.calendar.(repo.SeriesTruncater); ok {
			err := t.TruncateSeries(ctx, seriesID, ev.Start)
			if err == nil {
				return 1, nil
			}
			if !errors.Is(err, domain.ErrSeriesUnsupported) {
				return 0, &domain.LifecycleError{Op: "truncate series", Err: err}
			}
		}
		from := domain.StartOfDay(ev.Start)
		return uc.scanDelete(ctx, ev.Title, from, from.AddDate(followingScanYears, 0, 0))

	case domain.ScopeAll:
		err := uc.calendar.DeleteSeries(ctx, seriesID)
		if err == nil {
			return 1, nil
		}
		if !errors.Is(err, domain.ErrSeriesUnsupported) {
			return 0, &domain.LifecycleError{Op: "delete series", Err: err}
		}
		from := domain.StartOfDay(ev.Start)
		return uc.scanDelete(ctx, ev.Title, from.AddDate(-allScanPastYears, 0, 0), from.AddDate(followingScanYears, 0, 0))
	}
	return 0, &domain.LifecycleError{Op: "delete", Err: fmt.Errorf("unknown scope %q", scope)}
}

// scanDelete deletes every event titled exactly title in [from, to)
func (uc *LifecycleUsecase) scanDelete(ctx context.Context, title string, from, to time.Time) (int, error) {
	events, err := uc.calendar.Search(ctx, title, from, to)
	if err != nil {
		return 0, &domain.LifecycleError{Op: "scan", Err: err}
	}

	n := 0
	var firstErr error
	for _, e := range events {
		if e.Title != title {
			continue
		}
		if err := uc.calendar.Delete(ctx, e.ID); err != nil {
			fmt.Printf("[Lifecycle] Scan delete %s failed: %v\n", e.ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		n++
	}
	fmt.Printf("[Lifecycle] Scan deleted %d %q events in %s..%s\n", n, title,
		from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	if firstErr != nil {
		return n, &domain.LifecycleError{Op: "delete", Err: fmt.Errorf("%d deleted, then: %w", n, firstErr)}
	}
	return n, nil
}
