package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/benvon/productivity-assistant/internal/services/index"
)

func TestProcessor_Commit_PartialFailureKeepsOthers(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.CreateFunc = func(item *models.Item) error {
		if item.Title == "Second" {
			return errBoom
		}
		return nil
	}
	idx := newFakeIndex()
	p := NewProcessor(store, idx, nil, nil)

	results := p.Commit(context.Background(), OriginManual, []models.Draft{
		draft("task", "First"),
		draft("task", "Second"),
		draft("note", "Third"),
	})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Item.Title != "First" || results[1].Item.Title != "Third" {
		t.Errorf("expected input order to be kept, got %q, %q", results[0].Item.Title, results[1].Item.Title)
	}
	for _, r := range results {
		if !r.Indexed || !idx.has(r.Item.ID) {
			t.Errorf("expected item %d to be indexed", r.Item.ID)
		}
	}
	if store.count() != 2 {
		t.Errorf("expected 2 stored items, got %d", store.count())
	}
}

func TestProcessor_Commit_IndexFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	idx := newFakeIndex()
	idx.UpsertFunc = func(int64) error { return errBoom }
	sched := &recordingScheduler{err: errBoom}
	p := NewProcessor(store, idx, sched, nil)

	results := p.Commit(context.Background(), OriginManual, []models.Draft{draft("task", "Call Bob")})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Item == nil || r.Item.ID == 0 {
		t.Fatal("expected persisted item")
	}
	if r.Indexed {
		t.Error("expected Indexed=false")
	}
	var idxErr *index.IndexError
	if !errors.As(r.IndexErr, &idxErr) || !errors.Is(r.IndexErr, errBoom) {
		t.Errorf("expected IndexError wrapping cause, got %v", r.IndexErr)
	}
	if len(sched.ids) != 1 || sched.ids[0] != r.Item.ID {
		t.Errorf("expected reindex scheduled for %d, got %v", r.Item.ID, sched.ids)
	}
	if store.count() != 1 {
		t.Error("expected item to stay persisted")
	}
}

func TestProcessor_Commit_RejectsInvalidDrafts(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	p := NewProcessor(store, newFakeIndex(), nil, nil)

	results := p.Commit(context.Background(), OriginManual, []models.Draft{
		{Title: "no type"},
		{Type: "task"},
		{Type: "event", Title: "bad type"},
		{Type: "TASK", Title: "  ok  ", Priority: "urgent", Tags: models.Tags{"a", " a ", ""}},
	})

	if len(results) != 1 {
		t.Fatalf("expected 1 accepted draft, got %d", len(results))
	}
	item := results[0].Item
	if item.Type != models.ItemTypeTask || item.Title != "ok" || item.Priority != models.PriorityMedium {
		t.Errorf("unexpected normalized item %+v", item)
	}
	if len(item.Tags) != 1 || item.Tags[0] != "a" {
		t.Errorf("unexpected tags %v", item.Tags)
	}
}

func TestProcessor_Commit_OriginControlsSource(t *testing.T) {
	t.Parallel()

	ext := ingestedDraft(models.SourceCalendar, "cal_1", "Standup")

	manual := NewProcessor(newMemoryStore(), newFakeIndex(), nil, nil).
		Commit(context.Background(), OriginManual, []models.Draft{ext})
	if manual[0].Item.Source != models.SourceManual || manual[0].Item.ExternalID != nil {
		t.Errorf("manual commit must force source manual, got %+v", manual[0].Item)
	}

	ingested := NewProcessor(newMemoryStore(), newFakeIndex(), nil, nil).
		Commit(context.Background(), OriginIngested, []models.Draft{ext})
	it := ingested[0].Item
	if it.Source != models.SourceCalendar || it.ExternalID == nil || *it.ExternalID != "cal_1" {
		t.Errorf("ingested commit must keep source and external id, got %+v", it)
	}
}

func TestItems(t *testing.T) {
	t.Parallel()

	a, b := &models.Item{ID: 1}, &models.Item{ID: 2}
	got := Items([]CommitResult{{Item: a, Indexed: true}, {Item: b}})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("unexpected projection %v", got)
	}
	if got := Items(nil); got == nil || len(got) != 0 {
		t.Error("expected empty non-nil slice")
	}
}
