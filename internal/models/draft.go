package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TagDelimiter joins tags when they travel as a single string
const TagDelimiter = ","

// Tags is an ordered set of short labels. It decodes from either a JSON array
// or a single delimiter-joined string, and always encodes as an array.
type Tags []string

// ParseTags splits a delimiter-joined tag string
func ParseTags(s string) Tags {
	if strings.TrimSpace(s) == "" {
		return Tags{}
	}
	return Tags(strings.Split(s, TagDelimiter))
}

// String joins the tags with TagDelimiter
func (t Tags) String() string {
	return strings.Join(t, TagDelimiter)
}

// MarshalJSON encodes nil tags as an empty array
func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// UnmarshalJSON accepts an array of strings, a delimiter-joined string, or null
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Tags{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = ParseTags(s)
		return nil
	case '[':
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		tags := make(Tags, 0, len(raw))
		for _, v := range raw {
			switch tv := v.(type) {
			case string:
				tags = append(tags, tv)
			case nil:
			default:
				tags = append(tags, fmt.Sprint(tv))
			}
		}
		*t = tags
		return nil
	default:
		return fmt.Errorf("tags must be an array or a string, got %s", string(data))
	}
}

// FlexBool decodes booleans that models sometimes emit as strings or numbers
type FlexBool bool

// UnmarshalJSON accepts true/false, "true"/"false", 1/0 and null
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(s) {
	case "", "null":
		*b = false
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", s)
	}
	*b = FlexBool(v)
	return nil
}

// Draft is an unpersisted, untrusted item shape produced by extraction or a source adapter
type Draft struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Datetime    *string  `json:"datetime,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Tags        Tags     `json:"tags"`
	Completed   FlexBool `json:"completed"`
	Source      string   `json:"source,omitempty"`
	ExternalID  *string  `json:"external_id,omitempty"`
}

// ToItem converts a normalized draft into an item ready for persistence
func (d *Draft) ToItem() *Item {
	tags := make(Tags, len(d.Tags))
	copy(tags, d.Tags)
	return &Item{
		Type:        ItemType(d.Type),
		Title:       d.Title,
		Description: d.Description,
		Datetime:    d.Datetime,
		Priority:    Priority(d.Priority),
		Tags:        tags,
		Completed:   bool(d.Completed),
		Source:      Source(d.Source),
		ExternalID:  d.ExternalID,
	}
}

// ExternalRecord is the source-shaped view of an upstream record handed to enrichment
type ExternalRecord struct {
	Source   Source `json:"source"`
	RecordID string `json:"record_id"`
	Subject  string `json:"subject"`
	Snippet  string `json:"snippet"`
	Sender   string `json:"sender,omitempty"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
