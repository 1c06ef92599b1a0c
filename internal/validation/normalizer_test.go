package validation

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/benvon/productivity-assistant/internal/models"
)

func TestNormalizeManual_Defaults(t *testing.T) {
	t.Parallel()

	got, err := NormalizeManual(models.Draft{Type: "task", Title: "Buy milk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Priority != "medium" {
		t.Errorf("expected priority medium, got %q", got.Priority)
	}
	if got.Completed {
		t.Error("expected completed=false")
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Errorf("expected empty non-nil tags, got %#v", got.Tags)
	}
	if got.Source != "manual" {
		t.Errorf("expected source manual, got %q", got.Source)
	}
	if got.Description != nil || got.Datetime != nil || got.ExternalID != nil {
		t.Errorf("expected optional fields to be nil, got %+v", got)
	}
}

func TestNormalizeManual_ForcesManualSource(t *testing.T) {
	t.Parallel()

	got, err := NormalizeManual(models.Draft{
		Type:       "note",
		Title:      "Wifi password",
		Source:     "email",
		ExternalID: models.StringPtr("email_1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != "manual" || got.ExternalID != nil {
		t.Errorf("expected manual source without external id, got %q / %v", got.Source, got.ExternalID)
	}
}

func TestNormalizeIngested_KeepsSourceAndExternalID(t *testing.T) {
	t.Parallel()

	got, err := NormalizeIngested(models.Draft{
		Type:       "reminder",
		Title:      "Standup",
		Source:     "calendar",
		ExternalID: models.StringPtr(" cal_42 "),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != "calendar" {
		t.Errorf("expected source calendar, got %q", got.Source)
	}
	if got.ExternalID == nil || *got.ExternalID != "cal_42" {
		t.Errorf("expected trimmed external id cal_42, got %v", got.ExternalID)
	}
}

func TestNormalize_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		draft models.Draft
		field string
	}{
		{name: "missing title", draft: models.Draft{Type: "task"}, field: "title"},
		{name: "blank title", draft: models.Draft{Type: "task", Title: "  \x00 "}, field: "title"},
		{name: "missing type", draft: models.Draft{Title: "Buy milk"}, field: "type"},
		{name: "unknown type", draft: models.Draft{Type: "event", Title: "Party"}, field: "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NormalizeManual(tt.draft)
			if !errors.Is(err, ErrInvalidDraft) {
				t.Fatalf("expected ErrInvalidDraft, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("expected field %q, got %v", tt.field, err)
			}
		})
	}
}

func TestNormalize_Coercions(t *testing.T) {
	t.Parallel()

	got, err := NormalizeIngested(models.Draft{
		Type:        " Task ",
		Title:       "  Submit report ",
		Description: models.StringPtr("null"),
		Datetime:    models.StringPtr("2025-06-10 15:30"),
		Priority:    "URGENT",
		Source:      "slack",
		Tags:        models.Tags{" work ", "", "work", "q2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Type != "task" || got.Title != "Submit report" {
		t.Errorf("unexpected type/title %q / %q", got.Type, got.Title)
	}
	if got.Description != nil {
		t.Errorf("expected \"null\" description to become nil, got %q", *got.Description)
	}
	if got.Datetime == nil || *got.Datetime != "2025-06-10T15:30:00" {
		t.Errorf("expected canonical datetime, got %v", got.Datetime)
	}
	if got.Priority != "medium" {
		t.Errorf("expected invalid priority coerced to medium, got %q", got.Priority)
	}
	if got.Source != "manual" {
		t.Errorf("expected invalid source coerced to manual, got %q", got.Source)
	}
	if !reflect.DeepEqual(got.Tags, models.Tags{"work", "q2"}) {
		t.Errorf("expected trimmed deduplicated tags, got %#v", got.Tags)
	}
}

func TestNormalize_UnparseableDatetimeKept(t *testing.T) {
	t.Parallel()

	got, err := NormalizeManual(models.Draft{Type: "reminder", Title: "Call", Datetime: models.StringPtr("next blue moon")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Datetime == nil || *got.Datetime != "next blue moon" {
		t.Errorf("expected raw datetime to be kept, got %v", got.Datetime)
	}
}

func TestNormalize_TruncatesLongValues(t *testing.T) {
	t.Parallel()

	got, err := NormalizeManual(models.Draft{
		Type:  "note",
		Title: strings.Repeat("a", MaxTitleLength+20),
		Tags:  models.Tags{strings.Repeat("t", MaxTagLength+5)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Title) != MaxTitleLength {
		t.Errorf("expected title truncated to %d, got %d", MaxTitleLength, len(got.Title))
	}
	if len(got.Tags[0]) != MaxTagLength {
		t.Errorf("expected tag truncated to %d, got %d", MaxTagLength, len(got.Tags[0]))
	}
}

func TestNormalizePatch(t *testing.T) {
	t.Parallel()

	badType := models.ItemType("event")
	if _, err := NormalizePatch(models.ItemPatch{Type: &badType}); !errors.Is(err, ErrInvalidDraft) {
		t.Errorf("expected invalid type to be rejected, got %v", err)
	}

	badPriority := models.Priority("critical")
	if _, err := NormalizePatch(models.ItemPatch{Priority: &badPriority}); !errors.Is(err, ErrInvalidDraft) {
		t.Errorf("expected invalid priority to be rejected, got %v", err)
	}

	empty := "   "
	if _, err := NormalizePatch(models.ItemPatch{Title: &empty}); !errors.Is(err, ErrInvalidDraft) {
		t.Errorf("expected empty title to be rejected, got %v", err)
	}

	high := models.Priority("HIGH")
	dt := "2025-06-11T08:00"
	desc := "null"
	tags := models.Tags{"a", "a", " b"}
	got, err := NormalizePatch(models.ItemPatch{Priority: &high, Datetime: &dt, Description: &desc, Tags: &tags})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got.Priority != models.PriorityHigh {
		t.Errorf("expected high, got %q", *got.Priority)
	}
	if *got.Datetime != "2025-06-11T08:00:00" {
		t.Errorf("expected canonical datetime, got %q", *got.Datetime)
	}
	if *got.Description != "" {
		t.Errorf("expected cleared description, got %q", *got.Description)
	}
	if !reflect.DeepEqual(*got.Tags, models.Tags{"a", "b"}) {
		t.Errorf("unexpected tags %#v", *got.Tags)
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	if got := SanitizeText("  hi\x01 there\n "); got != "hi there" {
		t.Errorf("SanitizeText = %q", got)
	}
}
