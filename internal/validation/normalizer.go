package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxTitleLength bounds item titles; longer titles are truncated
	MaxTitleLength = 500
	// MaxTagLength bounds a single tag; longer tags are truncated
	MaxTagLength = 64
)

// ErrInvalidDraft is matched by every ValidationError
var ErrInvalidDraft = errors.New("invalid draft")

// ValidationError marks a draft the caller must skip
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid draft: %s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidDraft
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDraft
}

// canonicalDraft is the shape every normalized draft must satisfy
type canonicalDraft struct {
	Type     string   `validate:"required,item_type"`
	Title    string   `validate:"required,max=500"`
	Priority string   `validate:"required,priority"`
	Source   string   `validate:"required,item_source"`
	Tags     []string `validate:"dive,required,max=64"`
}

// NormalizeManual normalizes a draft parsed from free text. The result always
// has source manual and no external id.
func NormalizeManual(d models.Draft) (models.Draft, error) {
	d.Source = string(models.SourceManual)
	d.ExternalID = nil
	return normalize(d)
}

// NormalizeIngested normalizes a draft produced by a source adapter, keeping
// its source and external id.
func NormalizeIngested(d models.Draft) (models.Draft, error) {
	return normalize(d)
}

func normalize(d models.Draft) (models.Draft, error) {
	out := models.Draft{
		Type:      strings.ToLower(strings.TrimSpace(d.Type)),
		Title:     truncate(SanitizeText(d.Title), MaxTitleLength),
		Completed: d.Completed,
	}

	if out.Type == "" {
		return models.Draft{}, &ValidationError{Field: "type", Reason: "is required"}
	}
	if err := ValidateItemType(out.Type); err != nil {
		return models.Draft{}, &ValidationError{Field: "type", Reason: "must be task, note, or reminder"}
	}
	if out.Title == "" {
		return models.Draft{}, &ValidationError{Field: "title", Reason: "is required"}
	}

	out.Description = optionalText(d.Description)
	out.Datetime = NormalizeDateTime(d.Datetime)

	out.Priority = strings.ToLower(strings.TrimSpace(d.Priority))
	if ValidatePriority(out.Priority) != nil {
		out.Priority = string(models.PriorityMedium)
	}

	out.Source = strings.ToLower(strings.TrimSpace(d.Source))
	if !models.Source(out.Source).Valid() {
		out.Source = string(models.SourceManual)
	}
	if d.ExternalID != nil {
		if id := strings.TrimSpace(*d.ExternalID); id != "" {
			out.ExternalID = &id
		}
	}

	out.Tags = NormalizeTags(d.Tags)

	if err := Validate.Struct(canonicalDraft{
		Type:     out.Type,
		Title:    out.Title,
		Priority: out.Priority,
		Source:   out.Source,
		Tags:     out.Tags,
	}); err != nil {
		return models.Draft{}, toValidationError(err)
	}

	return out, nil
}

// NormalizeTags trims tags, drops empty ones and removes duplicates keeping first occurrence
func NormalizeTags(tags models.Tags) models.Tags {
	out := make(models.Tags, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = truncate(SanitizeText(tag), MaxTagLength)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// NormalizeDateTime rewrites parseable datetimes to models.DateTimeLayout.
// Empty and "null" values become nil; unparseable values are kept as given.
func NormalizeDateTime(value *string) *string {
	v := optionalText(value)
	if v == nil {
		return nil
	}
	if t, ok := models.ParseDateTime(*v); ok {
		s := t.Format(models.DateTimeLayout)
		return &s
	}
	return v
}

// NormalizePatch validates and cleans a partial update
func NormalizePatch(p models.ItemPatch) (models.ItemPatch, error) {
	if p.Type != nil {
		t := models.ItemType(strings.ToLower(strings.TrimSpace(string(*p.Type))))
		if !t.Valid() {
			return p, &ValidationError{Field: "type", Reason: "must be task, note, or reminder"}
		}
		p.Type = &t
	}
	if p.Priority != nil {
		pr := models.Priority(strings.ToLower(strings.TrimSpace(string(*p.Priority))))
		if !pr.Valid() {
			return p, &ValidationError{Field: "priority", Reason: "must be low, medium, or high"}
		}
		p.Priority = &pr
	}
	if p.Title != nil {
		title := truncate(SanitizeText(*p.Title), MaxTitleLength)
		if title == "" {
			return p, &ValidationError{Field: "title", Reason: "must not be empty"}
		}
		p.Title = &title
	}
	if p.Description != nil {
		// An explicit empty description clears the field
		desc := ""
		if v := optionalText(p.Description); v != nil {
			desc = *v
		}
		p.Description = &desc
	}
	if p.Datetime != nil {
		dt := ""
		if v := NormalizeDateTime(p.Datetime); v != nil {
			dt = *v
		}
		p.Datetime = &dt
	}
	if p.Tags != nil {
		tags := NormalizeTags(*p.Tags)
		p.Tags = &tags
	}
	return p, nil
}

func optionalText(value *string) *string {
	if value == nil {
		return nil
	}
	v := SanitizeText(*value)
	if v == "" || strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return nil
	}
	return &v
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: strings.ToLower(fe.Field()), Reason: "failed " + fe.Tag()}
	}
	return &ValidationError{Field: "draft", Reason: err.Error()}
}
