package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/productivity-assistant/internal/models"
)

// Index is an embedding-based nearest-neighbour index keyed by item id.
// It is advisory: the structured store is the source of truth.
type Index interface {
	Upsert(ctx context.Context, id int64, text string, metadata Metadata) error
	Query(ctx context.Context, text string, k int) ([]Match, error)
	// Delete removes id; a missing id is not an error
	Delete(ctx context.Context, id int64) error
	Reset(ctx context.Context) error
}

// Match is one query hit. Distance is cosine distance, lower is closer.
type Match struct {
	ID       int64   `json:"id"`
	Distance float64 `json:"distance"`
}

// Relevance converts distance into a similarity score
func (m Match) Relevance() float64 {
	return 1 - m.Distance
}

// Metadata is stored alongside each indexed document
type Metadata struct {
	Type     models.ItemType `json:"type"`
	Priority models.Priority `json:"priority"`
	Tags     string          `json:"tags"`
	Source   models.Source   `json:"source"`
}

// IndexError reports a failed index operation
type IndexError struct {
	Op     string
	ItemID int64
	Err    error
}

func (e *IndexError) Error() string {
	if e.ItemID == 0 {
		return fmt.Sprintf("index %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("index %s failed for item %d: %v", e.Op, e.ItemID, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// SearchDocument is the text indexed for an item: title, description and tags
func SearchDocument(item *models.Item) string {
	parts := []string{item.Title}
	if item.Description != nil && *item.Description != "" {
		parts = append(parts, *item.Description)
	}
	if len(item.Tags) > 0 {
		parts = append(parts, strings.Join(item.Tags, " "))
	}
	return strings.Join(parts, " ")
}

// MetadataFor builds the index metadata for an item
func MetadataFor(item *models.Item) Metadata {
	return Metadata{
		Type:     item.Type,
		Priority: item.Priority,
		Tags:     item.Tags.String(),
		Source:   item.Source,
	}
}
