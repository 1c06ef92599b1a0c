package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/benvon/productivity-assistant/internal/database"
	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/benvon/productivity-assistant/internal/services/ai"
	"github.com/benvon/productivity-assistant/internal/services/index"
	"github.com/benvon/productivity-assistant/internal/timeline"
	"github.com/benvon/productivity-assistant/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// DefaultSearchLimit is used when a search asks for no particular count
	DefaultSearchLimit = 10
	// MaxSearchLimit caps the number of hits a search may request
	MaxSearchLimit = 50
	// rebuildPageSize is the store page size used while rebuilding the index
	rebuildPageSize = 200
)

// SearchResult is an item with its similarity to the query
type SearchResult struct {
	*models.Item
	Relevance float64 `json:"relevance_score"`
}

// RebuildResult summarizes an index rebuild
type RebuildResult struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// Assistant is the entry point shared by the HTTP server and the CLI
type Assistant struct {
	store     database.ItemStore
	index     index.Index
	extractor ai.Extractor
	processor *Processor
	sync      *Orchestrator
	logger    *zap.Logger
	now       func() time.Time
}

// Deps are the collaborators an Assistant needs
type Deps struct {
	Store        database.ItemStore
	Index        index.Index
	Extractor    ai.Extractor
	Processor    *Processor
	Orchestrator *Orchestrator
	Logger       *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// NewAssistant creates an Assistant
func NewAssistant(deps Deps) *Assistant {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Assistant{
		store:     deps.Store,
		index:     deps.Index,
		extractor: deps.Extractor,
		processor: deps.Processor,
		sync:      deps.Orchestrator,
		logger:    logger.OrNop(deps.Logger),
		now:       now,
	}
}

// Parse extracts drafts from free text and commits them as manual items
func (a *Assistant) Parse(ctx context.Context, text string) ([]CommitResult, error) {
	ctx, span := tracer.Start(ctx, "assistant.parse")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyInput
	}

	drafts, err := a.extractor.ParseFreeText(ctx, text)
	if err != nil {
		spanError(ctx, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("draft_count", len(drafts)))

	return a.processor.Commit(ctx, OriginManual, drafts), nil
}

// Get returns one item
func (a *Assistant) Get(ctx context.Context, id int64) (*models.Item, error) {
	return a.store.GetByID(ctx, id)
}

// List returns items newest first, optionally restricted to one type
func (a *Assistant) List(ctx context.Context, filterType *models.ItemType) ([]*models.Item, error) {
	if filterType != nil && !filterType.Valid() {
		return nil, &validation.ValidationError{Field: "type", Reason: "must be task, note, or reminder"}
	}
	return a.store.List(ctx, filterType)
}

// Update applies a partial update. When searchable text changes the item is
// re-indexed; an index failure is logged and does not fail the update.
func (a *Assistant) Update(ctx context.Context, id int64, patch models.ItemPatch) (*models.Item, error) {
	patch, err := validation.NormalizePatch(patch)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, &validation.ValidationError{Field: "patch", Reason: "must change at least one field"}
	}

	item, err := a.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if patch.TouchesSearchText() {
		_ = a.processor.IndexItem(ctx, item)
	}
	return item, nil
}

// Complete marks an item done
func (a *Assistant) Complete(ctx context.Context, id int64) (*models.Item, error) {
	done := true
	return a.Update(ctx, id, models.ItemPatch{Completed: &done})
}

// Delete removes an item from the store. The index entry is evicted whatever
// the store outcome so a stale vector never outlives its item.
func (a *Assistant) Delete(ctx context.Context, id int64) error {
	err := a.store.Delete(ctx, id)
	if idxErr := a.index.Delete(ctx, id); idxErr != nil {
		a.logger.Warn("index_evict_failed",
			zap.Int64("item_id", id),
			zap.String("error", logger.SanitizeError(idxErr)),
		)
	}
	return err
}

// Search returns the items closest to query. Index hits whose item is no
// longer stored are skipped.
func (a *Assistant) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "assistant.search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &validation.ValidationError{Field: "query", Reason: "is required"}
	}
	if k <= 0 {
		k = DefaultSearchLimit
	}
	if k > MaxSearchLimit {
		k = MaxSearchLimit
	}

	matches, err := a.index.Query(ctx, query, k)
	if err != nil {
		spanError(ctx, err)
		return nil, err
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		item, err := a.store.GetByID(ctx, m.ID)
		if errors.Is(err, database.ErrNotFound) {
			a.logger.Debug("search_hit_missing_from_store", zap.Int64("item_id", m.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Item: item, Relevance: m.Relevance()})
	}
	span.SetAttributes(attribute.Int("result_count", len(results)))
	return results, nil
}

// Grouped returns every item split into today, tomorrow and upcoming relative to now
func (a *Assistant) Grouped(ctx context.Context, now time.Time) (timeline.Groups, error) {
	items, err := a.store.List(ctx, nil)
	if err != nil {
		return timeline.Groups{}, err
	}
	return timeline.GroupAt(items, now), nil
}

// Today groups relative to the assistant clock
func (a *Assistant) Today(ctx context.Context) (timeline.Groups, error) {
	return a.Grouped(ctx, a.now())
}

// Day returns the items dated on the calendar day of date, earliest first
func (a *Assistant) Day(ctx context.Context, date time.Time) ([]*models.Item, error) {
	start := timeline.StartOfDay(date)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	return a.store.ListInRange(ctx, start, start.AddDate(0, 0, 1))
}

// Sync runs the sync orchestrator
func (a *Assistant) Sync(ctx context.Context) SyncResult {
	return a.sync.SyncAll(ctx)
}

// RebuildIndex clears the semantic index and re-indexes every stored item
func (a *Assistant) RebuildIndex(ctx context.Context) (RebuildResult, error) {
	ctx, span := tracer.Start(ctx, "assistant.rebuild_index")
	defer span.End()

	if err := a.index.Reset(ctx); err != nil {
		spanError(ctx, err)
		return RebuildResult{}, err
	}

	var res RebuildResult
	var after int64
	for {
		page, err := a.store.ListPage(ctx, after, rebuildPageSize)
		if err != nil {
			spanError(ctx, err)
			return res, err
		}
		for _, item := range page {
			err := a.index.Upsert(ctx, item.ID, index.SearchDocument(item), index.MetadataFor(item))
			if err != nil {
				res.Failed++
				a.logger.Warn("rebuild_item_failed",
					zap.Int64("item_id", item.ID),
					zap.String("error", logger.SanitizeError(err)),
				)
				continue
			}
			res.Indexed++
		}
		if len(page) < rebuildPageSize {
			break
		}
		after = page[len(page)-1].ID
	}

	a.logger.Info("index_rebuilt", zap.Int("indexed", res.Indexed), zap.Int("failed", res.Failed))
	return res, nil
}

// ReindexItem refreshes one item's index entry, evicting it when the item is gone
func (a *Assistant) ReindexItem(ctx context.Context, id int64) error {
	item, err := a.store.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return a.index.Delete(ctx, id)
	}
	if err != nil {
		return err
	}
	return a.index.Upsert(ctx, item.ID, index.SearchDocument(item), index.MetadataFor(item))
}
