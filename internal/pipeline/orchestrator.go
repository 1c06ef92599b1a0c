package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/benvon/productivity-assistant/internal/database"
	"github.com/benvon/productivity-assistant/internal/ingest"
	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/benvon/productivity-assistant/internal/services/ai"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SyncResult counts the items newly persisted by one sync run
type SyncResult struct {
	Calendar int `json:"calendar"`
	Email    int `json:"email"`
	Total    int `json:"total"`
}

// Orchestrator pulls records from the calendar and email sources and commits
// the ones not seen before. Records that are Enrichable must pass enrichment
// before they are persisted.
type Orchestrator struct {
	calendar  ingest.Source
	email     ingest.Source
	store     database.ItemStore
	extractor ai.Extractor
	processor *Processor
	logger    *zap.Logger
}

// NewOrchestrator creates a sync orchestrator
func NewOrchestrator(
	calendar ingest.Source,
	email ingest.Source,
	store database.ItemStore,
	extractor ai.Extractor,
	processor *Processor,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		calendar:  calendar,
		email:     email,
		store:     store,
		extractor: extractor,
		processor: processor,
		logger:    logger.OrNop(log),
	}
}

// SyncAll syncs the calendar and then email. A failing source contributes zero.
func (o *Orchestrator) SyncAll(ctx context.Context) SyncResult {
	ctx, span := tracer.Start(ctx, "pipeline.sync_all")
	defer span.End()

	res := SyncResult{
		Calendar: o.SyncCalendar(ctx),
		Email:    o.SyncEmail(ctx),
	}
	res.Total = res.Calendar + res.Email

	span.SetAttributes(
		attribute.Int("calendar_count", res.Calendar),
		attribute.Int("email_count", res.Email),
	)
	o.logger.Info("sync_completed",
		zap.Int("calendar", res.Calendar),
		zap.Int("email", res.Email),
		zap.Int("total", res.Total),
	)
	return res
}

// SyncCalendar commits calendar events not yet in the store
func (o *Orchestrator) SyncCalendar(ctx context.Context) int {
	return o.syncSource(ctx, o.calendar)
}

// SyncEmail enriches and commits relevant emails not yet in the store
func (o *Orchestrator) SyncEmail(ctx context.Context) int {
	return o.syncSource(ctx, o.email)
}

func (o *Orchestrator) syncSource(ctx context.Context, src ingest.Source) int {
	if src == nil {
		return 0
	}
	name := string(src.Name())
	ctx, span := tracer.Start(ctx, "pipeline.sync_source")
	defer span.End()
	span.SetAttributes(attribute.String("source", name))

	records, err := src.Fetch(ctx)
	if err != nil {
		spanError(ctx, err)
		o.logger.Warn("source_fetch_failed",
			zap.String("source", name),
			zap.String("error", logger.SanitizeError(err)),
		)
		return 0
	}

	// Each record is committed as soon as it is prepared so a deadline hit
	// midway keeps the work already done.
	committed := 0
	for _, pending := range src.ToDrafts(records) {
		if ctx.Err() != nil {
			o.logger.Warn("source_sync_interrupted",
				zap.String("source", name),
				zap.Int("committed", committed),
				zap.Error(ctx.Err()),
			)
			break
		}
		draft, ok := o.prepare(ctx, name, pending)
		if !ok {
			continue
		}
		committed += len(o.processor.Commit(ctx, OriginIngested, []models.Draft{draft}))
	}

	span.SetAttributes(
		attribute.Int("fetched_count", len(records)),
		attribute.Int("committed_count", committed),
	)
	o.logger.Info("source_synced",
		zap.String("source", name),
		zap.Int("fetched", len(records)),
		zap.Int("committed", committed),
	)
	return committed
}

// prepare decides whether a pending draft should be committed, enriching it
// when its raw record asks for it
func (o *Orchestrator) prepare(ctx context.Context, source string, pending ingest.Pending) (models.Draft, bool) {
	draft := pending.Draft
	if draft.ExternalID == nil || *draft.ExternalID == "" {
		o.logger.Warn("pending_draft_without_external_id", zap.String("source", source))
		return draft, false
	}
	externalID := *draft.ExternalID

	seen, err := o.exists(ctx, externalID)
	if err != nil {
		o.logger.Warn("dedup_lookup_failed",
			zap.String("external_id", externalID),
			zap.String("error", logger.SanitizeError(err)),
		)
		return draft, false
	}
	if seen {
		return draft, false
	}

	rec, ok := pending.Raw.(ingest.Enrichable)
	if !ok {
		return draft, true
	}
	return o.enrich(ctx, draft, rec.ExternalRecord())
}

func (o *Orchestrator) exists(ctx context.Context, externalID string) (bool, error) {
	_, err := o.store.GetByExternalID(ctx, externalID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, database.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// enrich runs one enrichment call. Errors and irrelevant records discard the
// draft; a later sync will try again because nothing was persisted.
func (o *Orchestrator) enrich(ctx context.Context, provisional models.Draft, rec models.ExternalRecord) (models.Draft, bool) {
	outcome, err := o.extractor.EnrichExternalRecord(ctx, rec)
	if err != nil {
		o.logger.Warn("enrichment_failed",
			zap.String("external_id", *provisional.ExternalID),
			zap.String("error", logger.SanitizeError(err)),
		)
		return provisional, false
	}
	if outcome == nil || !outcome.Relevant {
		o.logger.Debug("record_not_relevant", zap.String("external_id", *provisional.ExternalID))
		return provisional, false
	}
	return mergeEnrichment(provisional, outcome.Draft), true
}

// mergeEnrichment overlays the enriched fields that are present on the
// provisional draft. Source and external id always come from the provisional draft.
func mergeEnrichment(provisional, enriched models.Draft) models.Draft {
	out := provisional
	if strings.TrimSpace(enriched.Type) != "" {
		out.Type = enriched.Type
	}
	if strings.TrimSpace(enriched.Title) != "" {
		out.Title = enriched.Title
	}
	if enriched.Description != nil && strings.TrimSpace(*enriched.Description) != "" {
		out.Description = enriched.Description
	}
	if enriched.Datetime != nil && strings.TrimSpace(*enriched.Datetime) != "" {
		out.Datetime = enriched.Datetime
	}
	if strings.TrimSpace(enriched.Priority) != "" {
		out.Priority = enriched.Priority
	}
	if len(enriched.Tags) > 0 {
		out.Tags = enriched.Tags
	}
	if enriched.Completed {
		out.Completed = true
	}
	return out
}
