package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/benvon/productivity-assistant/internal/database"
	"github.com/benvon/productivity-assistant/internal/ingest"
	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/benvon/productivity-assistant/internal/services/ai"
	"github.com/benvon/productivity-assistant/internal/services/index"
)

// memoryStore is an in-memory ItemStore. CreateFunc, when set, can fail a create.
type memoryStore struct {
	mu         sync.Mutex
	items      map[int64]*models.Item
	nextID     int64
	CreateFunc func(item *models.Item) error
	LookupErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: make(map[int64]*models.Item)}
}

func (s *memoryStore) Create(ctx context.Context, item *models.Item) error {
	if err := ctx.Err(); err != nil {
		return &database.PersistenceError{Op: "create item", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateFunc != nil {
		if err := s.CreateFunc(item); err != nil {
			return err
		}
	}
	if item.ExternalID != nil {
		for _, existing := range s.items {
			if existing.ExternalID != nil && *existing.ExternalID == *item.ExternalID {
				return &database.PersistenceError{Op: "create item", Err: database.ErrDuplicateExternalID}
			}
		}
	}
	s.nextID++
	item.ID = s.nextID
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	stored := *item
	s.items[item.ID] = &stored
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, id int64) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *memoryStore) GetByExternalID(_ context.Context, externalID string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	for _, item := range s.items {
		if item.ExternalID != nil && *item.ExternalID == externalID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memoryStore) Update(_ context.Context, id int64, patch models.ItemPatch) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Completed != nil {
		item.Completed = *patch.Completed
	}
	if patch.Priority != nil {
		item.Priority = *patch.Priority
	}
	if patch.Tags != nil {
		item.Tags = *patch.Tags
	}
	item.UpdatedAt = time.Now()
	cp := *item
	return &cp, nil
}

func (s *memoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *memoryStore) sorted() []*models.Item {
	out := make([]*models.Item, 0, len(s.items))
	for _, item := range s.items {
		cp := *item
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) List(_ context.Context, filterType *models.ItemType) ([]*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Item
	for _, item := range s.sorted() {
		if filterType == nil || item.Type == *filterType {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memoryStore) ListInRange(_ context.Context, start, end time.Time) ([]*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Item
	for _, item := range s.sorted() {
		if t, ok := item.Time(); ok && !t.Before(start) && t.Before(end) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memoryStore) ListPage(_ context.Context, afterID int64, limit int) ([]*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Item
	for _, item := range s.sorted() {
		if item.ID > afterID && len(out) < limit {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

var _ database.ItemStore = (*memoryStore)(nil)

// fakeIndex records upserts; the func fields override behaviour
type fakeIndex struct {
	mu         sync.Mutex
	docs       map[int64]string
	deleted    []int64
	resets     int
	UpsertFunc func(id int64) error
	QueryFunc  func(text string, k int) ([]index.Match, error)
	DeleteErr  error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[int64]string)}
}

func (f *fakeIndex) Upsert(_ context.Context, id int64, text string, _ index.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpsertFunc != nil {
		if err := f.UpsertFunc(id); err != nil {
			return err
		}
	}
	f.docs[id] = text
	return nil
}

func (f *fakeIndex) Query(_ context.Context, text string, k int) ([]index.Match, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(text, k)
	}
	return nil, nil
}

func (f *fakeIndex) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.docs, id)
	return f.DeleteErr
}

func (f *fakeIndex) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.docs = make(map[int64]string)
	return nil
}

func (f *fakeIndex) has(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[id]
	return ok
}

// fakeExtractor delegates to its func fields
type fakeExtractor struct {
	ParseFunc  func(text string) ([]models.Draft, error)
	EnrichFunc func(rec models.ExternalRecord) (*ai.EnrichmentOutcome, error)
	enriched   []string
}

func (f *fakeExtractor) ParseFreeText(_ context.Context, text string) ([]models.Draft, error) {
	if f.ParseFunc == nil {
		return nil, nil
	}
	return f.ParseFunc(text)
}

func (f *fakeExtractor) EnrichExternalRecord(_ context.Context, rec models.ExternalRecord) (*ai.EnrichmentOutcome, error) {
	f.enriched = append(f.enriched, rec.RecordID)
	if f.EnrichFunc == nil {
		return &ai.EnrichmentOutcome{Relevant: false}, nil
	}
	return f.EnrichFunc(rec)
}

// fakeSource serves fixed pending drafts
type fakeSource struct {
	name     models.Source
	records  []ingest.Record
	pending  []ingest.Pending
	FetchErr error
}

func (f *fakeSource) Name() models.Source { return f.name }

func (f *fakeSource) Fetch(_ context.Context) ([]ingest.Record, error) {
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return f.records, nil
}

func (f *fakeSource) ToDrafts(_ []ingest.Record) []ingest.Pending {
	return f.pending
}

// recordingScheduler remembers the item ids it was asked to reindex
type recordingScheduler struct {
	ids []int64
	err error
}

func (r *recordingScheduler) ScheduleReindex(_ context.Context, itemID int64) error {
	r.ids = append(r.ids, itemID)
	return r.err
}

var errBoom = errors.New("boom")

func draft(itemType, title string) models.Draft {
	return models.Draft{Type: itemType, Title: title}
}

func ingestedDraft(source models.Source, externalID, title string) models.Draft {
	return models.Draft{
		Type:       "reminder",
		Title:      title,
		Source:     string(source),
		ExternalID: models.StringPtr(externalID),
		Tags:       models.Tags{string(source)},
	}
}
