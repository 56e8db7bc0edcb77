package data

import (
	"context"
	"time"

	ics "github.com/arran4/golang-ical"
)

const icsProductID = "-//schedule-bridge//calendar//JA"

// ExportICS serializes the whole calendar as an iCalendar feed. Series are
// written once with their RRULE and EXDATEs.
func (s *CalendarStore) ExportICS(ctx context.Context) (string, error) {
	events, err := s.All(ctx)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName("schedule-bridge")
	cal.SetXWRTimezone(s.loc.String())

	stamp := time.Now().UTC()
	for _, stored := range events {
		ref := stored.Ref
		ve := cal.AddEvent(ref.ID + "@schedule-bridge")
		ve.SetDtStampTime(stamp)
		ve.SetSummary(ref.Title)
		if ref.Location != "" {
			ve.SetLocation(ref.Location)
		}
		if ref.Description != "" {
			ve.SetDescription(ref.Description)
		}
		if ref.ExternalLink != "" {
			ve.SetURL(ref.ExternalLink)
		}

		if ref.IsAllDay {
			ve.SetAllDayStartAt(ref.Start)
			ve.SetAllDayEndAt(ref.End)
		} else {
			ve.SetStartAt(ref.Start)
			ve.SetEndAt(ref.End)
		}

		if ref.RecurrenceRule == "" {
			continue
		}
		ve.AddRrule(ref.RecurrenceRule)
		for _, ex := range stored.ExDates {
			if ref.IsAllDay {
				ve.AddExdate(ex.In(s.loc).Format("20060102"), &ics.KeyValues{Key: string(ics.ParameterValue), Value: []string{"DATE"}})
			} else {
				ve.AddExdate(ex.UTC().Format("20060102T150405Z"))
			}
		}
	}
	return cal.Serialize(), nil
}
