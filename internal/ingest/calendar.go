package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/models"
	"go.uber.org/zap"
)

const (
	calendarPrefix    = "cal"
	untitledEvent     = "Untitled Event"
	allDayDefaultTime = "T09:00:00"
)

// CalendarEvent is a calendar event in the shape of the Google Calendar API
type CalendarEvent struct {
	ID          RecordID        `json:"id"`
	Summary     string          `json:"summary"`
	Description string          `json:"description"`
	Location    string          `json:"location,omitempty"`
	Start       EventTime       `json:"start"`
	End         EventTime       `json:"end"`
	Attendees   []EventAttendee `json:"attendees"`
}

// EventTime holds either a timed start (DateTime) or an all-day date
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// EventAttendee is one invited participant
type EventAttendee struct {
	Email string `json:"email"`
}

// RecordID returns the upstream event id
func (e CalendarEvent) RecordID() string {
	return string(e.ID)
}

// CalendarSource turns calendar events into drafts
type CalendarSource struct {
	loader Loader
	logger *zap.Logger
}

var _ Source = (*CalendarSource)(nil)

// NewCalendarSource creates a calendar source reading through loader
func NewCalendarSource(loader Loader, log *zap.Logger) *CalendarSource {
	return &CalendarSource{loader: loader, logger: logger.OrNop(log)}
}

// Name returns models.SourceCalendar
func (s *CalendarSource) Name() models.Source {
	return models.SourceCalendar
}

// Fetch loads the raw events
func (s *CalendarSource) Fetch(ctx context.Context) ([]Record, error) {
	data, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	events, err := decodeRecords[CalendarEvent](data)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(events))
	for _, e := range events {
		records = append(records, e)
	}
	return records, nil
}

// ToDrafts transforms events. Events without an id cannot be deduplicated and are skipped.
func (s *CalendarSource) ToDrafts(records []Record) []Pending {
	out := make([]Pending, 0, len(records))
	for _, rec := range records {
		event, ok := rec.(CalendarEvent)
		if !ok {
			continue
		}
		if event.RecordID() == "" {
			s.logger.Warn("calendar_event_without_id", zap.String("summary", logger.Preview(event.Summary)))
			continue
		}
		out = append(out, Pending{Draft: calendarDraft(event), Raw: event})
	}
	return out
}

func calendarDraft(event CalendarEvent) models.Draft {
	title := strings.TrimSpace(event.Summary)
	if title == "" {
		title = untitledEvent
	}

	d := models.Draft{
		Type:       string(calendarType(title)),
		Title:      title,
		Datetime:   calendarDatetime(event.Start),
		Priority:   string(attendeePriority(len(event.Attendees))),
		Tags:       models.Tags{"calendar", "meeting"},
		Source:     string(models.SourceCalendar),
		ExternalID: models.StringPtr(ExternalID(calendarPrefix, event.RecordID())),
	}
	if event.Description != "" {
		d.Description = models.StringPtr(event.Description)
	}
	return d
}

// calendarDatetime uses the timed start, keeping its wall clock, or an all-day date at 09:00
func calendarDatetime(start EventTime) *string {
	switch {
	case start.DateTime != "":
		if t, err := time.Parse(time.RFC3339, start.DateTime); err == nil {
			return models.StringPtr(t.Format(models.DateTimeLayout))
		}
		return models.StringPtr(start.DateTime)
	case start.Date != "":
		return models.StringPtr(start.Date + allDayDefaultTime)
	default:
		return nil
	}
}

func attendeePriority(n int) models.Priority {
	switch {
	case n > 5:
		return models.PriorityHigh
	case n > 0:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func calendarType(title string) models.ItemType {
	lower := strings.ToLower(title)
	switch {
	case containsAny(lower, "birthday", "anniversary"):
		return models.ItemTypeNote
	case containsAny(lower, "deadline", "due", "submit"):
		return models.ItemTypeTask
	default:
		return models.ItemTypeReminder
	}
}
