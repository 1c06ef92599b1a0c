package models

import (
	"strings"
	"time"
)

// ItemType represents the kind of an item
type ItemType string

const (
	ItemTypeTask     ItemType = "task"
	ItemTypeNote     ItemType = "note"
	ItemTypeReminder ItemType = "reminder"
)

// Valid reports whether t is one of the known item types
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeTask, ItemTypeNote, ItemTypeReminder:
		return true
	default:
		return false
	}
}

// Priority represents how urgent an item is
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Source identifies where an item came from
type Source string

const (
	SourceManual   Source = "manual"
	SourceCalendar Source = "calendar"
	SourceEmail    Source = "email"
)

// Valid reports whether s is one of the known sources
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceCalendar, SourceEmail:
		return true
	default:
		return false
	}
}

// DateTimeLayout is the canonical layout for item datetimes (local wall clock, no zone)
const DateTimeLayout = "2006-01-02T15:04:05"

// acceptedDateTimeLayouts are tried in order when reading a datetime value
var acceptedDateTimeLayouts = []string{
	DateTimeLayout,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime parses a datetime string using the accepted layouts.
// Values carrying a zone offset keep their wall clock.
func ParseDateTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedDateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Item is the canonical persisted entity
type Item struct {
	ID          int64     `json:"id"`
	Type        ItemType  `json:"type"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Datetime    *string   `json:"datetime"`
	Priority    Priority  `json:"priority"`
	Tags        Tags      `json:"tags"`
	Completed   bool      `json:"completed"`
	Source      Source    `json:"source"`
	ExternalID  *string   `json:"external_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Time returns the parsed datetime of the item. ok is false when the item is
// undated or the stored value cannot be parsed.
func (i *Item) Time() (t time.Time, ok bool) {
	if i.Datetime == nil {
		return time.Time{}, false
	}
	return ParseDateTime(*i.Datetime)
}

// ItemPatch is a partial update of an item. Nil fields are left untouched.
type ItemPatch struct {
	Type        *ItemType `json:"type,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Datetime    *string   `json:"datetime,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Tags        *Tags     `json:"tags,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p *ItemPatch) IsEmpty() bool {
	return p.Type == nil && p.Title == nil && p.Description == nil && p.Datetime == nil &&
		p.Priority == nil && p.Tags == nil && p.Completed == nil
}

// TouchesSearchText reports whether the patch changes fields that feed the search document
func (p *ItemPatch) TouchesSearchText() bool {
	return p.Title != nil || p.Description != nil || p.Tags != nil || p.Type != nil || p.Priority != nil
}
