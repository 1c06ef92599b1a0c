// Package pipeline turns drafts into persisted, indexed items and keeps
// external sources synchronized with the store.
package pipeline

import (
	"context"
	"errors"

	"github.com/benvon/productivity-assistant/internal/database"
	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/benvon/productivity-assistant/internal/services/index"
	"github.com/benvon/productivity-assistant/internal/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/benvon/productivity-assistant/internal/pipeline"

var tracer = otel.Tracer(tracerName)

// Origin selects how a draft is normalized before persistence
type Origin int

const (
	// OriginManual drafts come from free text and always get source manual
	OriginManual Origin = iota
	// OriginIngested drafts come from a source adapter and keep their source and external id
	OriginIngested
)

func (o Origin) String() string {
	if o == OriginIngested {
		return "ingested"
	}
	return "manual"
}

// ReindexScheduler is notified when an item was persisted but could not be indexed
type ReindexScheduler interface {
	ScheduleReindex(ctx context.Context, itemID int64) error
}

// CommitResult is the outcome for one persisted draft. Indexed is false when
// the item reached the store but not the semantic index; IndexErr says why.
type CommitResult struct {
	Item     *models.Item `json:"item"`
	Indexed  bool         `json:"indexed"`
	IndexErr error        `json:"-"`
}

// Items projects the persisted items out of results, keeping order
func Items(results []CommitResult) []*models.Item {
	items := make([]*models.Item, 0, len(results))
	for _, r := range results {
		items = append(items, r.Item)
	}
	return items
}

// Processor writes normalized drafts to the structured store and the semantic index
type Processor struct {
	store     database.ItemStore
	index     index.Index
	scheduler ReindexScheduler
	logger    *zap.Logger
}

// NewProcessor creates a processor. scheduler may be nil.
func NewProcessor(store database.ItemStore, idx index.Index, scheduler ReindexScheduler, log *zap.Logger) *Processor {
	return &Processor{
		store:     store,
		index:     idx,
		scheduler: scheduler,
		logger:    logger.OrNop(log),
	}
}

// Commit normalizes, persists and indexes each draft independently. A draft
// that fails validation or persistence is skipped and logged; the rest still
// commit. An index failure does not undo persistence. Results follow input order.
func (p *Processor) Commit(ctx context.Context, origin Origin, drafts []models.Draft) []CommitResult {
	ctx, span := tracer.Start(ctx, "pipeline.commit")
	defer span.End()
	span.SetAttributes(
		attribute.String("origin", origin.String()),
		attribute.Int("draft_count", len(drafts)),
	)

	results := make([]CommitResult, 0, len(drafts))
	for i, draft := range drafts {
		result, err := p.commitOne(ctx, origin, draft)
		if err != nil {
			p.logDraftSkipped(i, draft, err)
			continue
		}
		results = append(results, result)
	}

	span.SetAttributes(attribute.Int("committed_count", len(results)))
	return results
}

func (p *Processor) commitOne(ctx context.Context, origin Origin, draft models.Draft) (CommitResult, error) {
	normalized, err := normalizeFor(origin, draft)
	if err != nil {
		return CommitResult{}, err
	}

	item := normalized.ToItem()
	if err := p.store.Create(ctx, item); err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{Item: item, Indexed: true}
	if err := p.IndexItem(ctx, item); err != nil {
		result.Indexed = false
		result.IndexErr = err
	}
	return result, nil
}

// IndexItem upserts item into the semantic index. On failure the scheduler,
// if any, is asked to repair the entry later; the error is still returned.
func (p *Processor) IndexItem(ctx context.Context, item *models.Item) error {
	err := p.index.Upsert(ctx, item.ID, index.SearchDocument(item), index.MetadataFor(item))
	if err == nil {
		return nil
	}

	var idxErr *index.IndexError
	if !errors.As(err, &idxErr) {
		err = &index.IndexError{Op: "upsert", ItemID: item.ID, Err: err}
	}
	p.logger.Warn("item_index_failed",
		zap.Int64("item_id", item.ID),
		zap.String("error", logger.SanitizeError(err)),
	)
	if schedErr := p.scheduleReindex(ctx, item.ID); schedErr != nil {
		p.logger.Warn("reindex_schedule_failed",
			zap.Int64("item_id", item.ID),
			zap.Error(schedErr),
		)
	}
	return err
}

func (p *Processor) scheduleReindex(ctx context.Context, itemID int64) error {
	if p.scheduler == nil {
		return nil
	}
	return p.scheduler.ScheduleReindex(ctx, itemID)
}

func (p *Processor) logDraftSkipped(position int, draft models.Draft, err error) {
	fields := []zap.Field{
		zap.Int("position", position),
		zap.String("title_preview", logger.Preview(draft.Title)),
		zap.String("error", logger.SanitizeError(err)),
	}
	if draft.ExternalID != nil {
		fields = append(fields, zap.String("external_id", *draft.ExternalID))
	}

	switch {
	case errors.Is(err, validation.ErrInvalidDraft):
		p.logger.Info("draft_rejected", fields...)
	case errors.Is(err, database.ErrDuplicateExternalID):
		p.logger.Info("draft_duplicate_skipped", fields...)
	default:
		p.logger.Warn("draft_persist_failed", fields...)
	}
}

func normalizeFor(origin Origin, draft models.Draft) (models.Draft, error) {
	if origin == OriginIngested {
		return validation.NormalizeIngested(draft)
	}
	return validation.NormalizeManual(draft)
}

// spanError records err on the span in ctx
func spanError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
