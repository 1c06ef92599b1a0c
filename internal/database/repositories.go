package database

import (
	"context"
	"time"

	"github.com/benvon/productivity-assistant/internal/models"
)

// ItemStore defines the structured store operations the pipeline depends on.
// This interface enables testing the pipeline with in-memory fakes.
type ItemStore interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id int64) (*models.Item, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Item, error)
	Update(ctx context.Context, id int64, patch models.ItemPatch) (*models.Item, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filterType *models.ItemType) ([]*models.Item, error)
	ListInRange(ctx context.Context, start, end time.Time) ([]*models.Item, error)
	ListPage(ctx context.Context, afterID int64, limit int) ([]*models.Item, error)
}

// Ensure concrete types implement the interfaces
var _ ItemStore = (*ItemRepository)(nil)
