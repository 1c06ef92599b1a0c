package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benvon/productivity-assistant/internal/database"
	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/benvon/productivity-assistant/internal/pipeline"
	"github.com/benvon/productivity-assistant/internal/services/ai"
	"github.com/benvon/productivity-assistant/internal/timeline"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type fakeAssistant struct {
	ParseFunc   func(ctx context.Context, text string) ([]pipeline.CommitResult, error)
	GetFunc     func(ctx context.Context, id int64) (*models.Item, error)
	ListFunc    func(ctx context.Context, filterType *models.ItemType) ([]*models.Item, error)
	UpdateFunc  func(ctx context.Context, id int64, patch models.ItemPatch) (*models.Item, error)
	DeleteFunc  func(ctx context.Context, id int64) error
	SearchFunc  func(ctx context.Context, query string, k int) ([]pipeline.SearchResult, error)
	GroupedFunc func(ctx context.Context, now time.Time) (timeline.Groups, error)
	DayFunc     func(ctx context.Context, date time.Time) ([]*models.Item, error)
	SyncFunc    func(ctx context.Context) pipeline.SyncResult
}

func (f *fakeAssistant) Parse(ctx context.Context, text string) ([]pipeline.CommitResult, error) {
	if f.ParseFunc != nil {
		return f.ParseFunc(ctx, text)
	}
	return nil, nil
}

func (f *fakeAssistant) Get(ctx context.Context, id int64) (*models.Item, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, id)
	}
	return nil, database.ErrNotFound
}

func (f *fakeAssistant) List(ctx context.Context, filterType *models.ItemType) ([]*models.Item, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx, filterType)
	}
	return nil, nil
}

func (f *fakeAssistant) Update(ctx context.Context, id int64, patch models.ItemPatch) (*models.Item, error) {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, id, patch)
	}
	return nil, database.ErrNotFound
}

func (f *fakeAssistant) Delete(ctx context.Context, id int64) error {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, id)
	}
	return nil
}

func (f *fakeAssistant) Search(ctx context.Context, query string, k int) ([]pipeline.SearchResult, error) {
	if f.SearchFunc != nil {
		return f.SearchFunc(ctx, query, k)
	}
	return nil, nil
}

func (f *fakeAssistant) Grouped(ctx context.Context, now time.Time) (timeline.Groups, error) {
	if f.GroupedFunc != nil {
		return f.GroupedFunc(ctx, now)
	}
	return timeline.Groups{}, nil
}

func (f *fakeAssistant) Day(ctx context.Context, date time.Time) ([]*models.Item, error) {
	if f.DayFunc != nil {
		return f.DayFunc(ctx, date)
	}
	return nil, nil
}

func (f *fakeAssistant) Sync(ctx context.Context) pipeline.SyncResult {
	if f.SyncFunc != nil {
		return f.SyncFunc(ctx)
	}
	return pipeline.SyncResult{}
}

var fixedNow = time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

func newTestRouter(a Assistant) *mux.Router {
	h := NewItemHandler(a, zap.NewNop())
	h.now = func() time.Time { return fixedNow }
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api").Subrouter())
	return r
}

func serve(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, reader))

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, decoded
}

func dataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("Expected data object, got %v", body["data"])
	}
	return data
}

func strPtr(s string) *string { return &s }

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       any
		parse      func(ctx context.Context, text string) ([]pipeline.CommitResult, error)
		wantStatus int
		validate   func(*testing.T, map[string]any)
	}{
		{
			name: "creates items and reports unindexed ones",
			body: ParseRequest{Input: "call mom tomorrow, buy milk"},
			parse: func(_ context.Context, text string) ([]pipeline.CommitResult, error) {
				if text != "call mom tomorrow, buy milk" {
					t.Errorf("Expected input passed through, got %q", text)
				}
				return []pipeline.CommitResult{
					{Item: &models.Item{ID: 1, Title: "Call mom"}, Indexed: true},
					{Item: &models.Item{ID: 2, Title: "Buy milk"}, Indexed: false},
				}, nil
			},
			wantStatus: http.StatusCreated,
			validate: func(t *testing.T, body map[string]any) {
				data := dataOf(t, body)
				if data["count"] != float64(2) {
					t.Errorf("Expected count 2, got %v", data["count"])
				}
				notIndexed, _ := data["not_indexed"].([]any)
				if len(notIndexed) != 1 || notIndexed[0] != float64(2) {
					t.Errorf("Expected not_indexed [2], got %v", data["not_indexed"])
				}
			},
		},
		{
			name:       "blank input",
			body:       ParseRequest{Input: "   "},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing body",
			body:       "",
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "extraction failure",
			body: ParseRequest{Input: "something"},
			parse: func(context.Context, string) ([]pipeline.CommitResult, error) {
				return nil, &ai.ExtractionError{Kind: ai.KindMalformed, Op: "parse", Detail: "not json"}
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestRouter(&fakeAssistant{ParseFunc: tt.parse})
			w, body := serve(t, r, http.MethodPost, "/api/parse", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.validate != nil {
				tt.validate(t, body)
			}
		})
	}
}

func TestListItems(t *testing.T) {
	t.Parallel()

	t.Run("filters by type", func(t *testing.T) {
		t.Parallel()

		var got *models.ItemType
		r := newTestRouter(&fakeAssistant{
			ListFunc: func(_ context.Context, filterType *models.ItemType) ([]*models.Item, error) {
				got = filterType
				return []*models.Item{{ID: 3, Type: models.ItemTypeTask}}, nil
			},
		})
		w, body := serve(t, r, http.MethodGet, "/api/items?type=task", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if got == nil || *got != models.ItemTypeTask {
			t.Errorf("Expected task filter, got %v", got)
		}
		if dataOf(t, body)["count"] != float64(1) {
			t.Errorf("Expected count 1, got %v", dataOf(t, body)["count"])
		}
	})

	t.Run("empty list is an array", func(t *testing.T) {
		t.Parallel()

		r := newTestRouter(&fakeAssistant{})
		_, body := serve(t, r, http.MethodGet, "/api/items", nil)
		if items, ok := dataOf(t, body)["items"].([]any); !ok || len(items) != 0 {
			t.Errorf("Expected empty items array, got %v", dataOf(t, body)["items"])
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		t.Parallel()

		r := newTestRouter(&fakeAssistant{})
		w, _ := serve(t, r, http.MethodGet, "/api/items?type=event", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestItemByID(t *testing.T) {
	t.Parallel()

	item := &models.Item{ID: 5, Type: models.ItemTypeNote, Title: "Notes"}
	a := &fakeAssistant{
		GetFunc: func(_ context.Context, id int64) (*models.Item, error) {
			if id == 5 {
				return item, nil
			}
			return nil, database.ErrNotFound
		},
		UpdateFunc: func(_ context.Context, id int64, patch models.ItemPatch) (*models.Item, error) {
			if patch.Completed == nil || !*patch.Completed {
				return nil, errors.New("expected completed patch")
			}
			updated := *item
			updated.Completed = true
			return &updated, nil
		},
		DeleteFunc: func(_ context.Context, id int64) error {
			if id != 5 {
				return database.ErrNotFound
			}
			return nil
		},
	}
	r := newTestRouter(a)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"get", http.MethodGet, "/api/items/5", nil, http.StatusOK},
		{"get missing", http.MethodGet, "/api/items/9", nil, http.StatusNotFound},
		{"non numeric id is not routed", http.MethodGet, "/api/items/abc", nil, http.StatusNotFound},
		{"update", http.MethodPut, "/api/items/5", map[string]any{"completed": true}, http.StatusOK},
		{"update unknown field", http.MethodPut, "/api/items/5", map[string]any{"done": true}, http.StatusBadRequest},
		{"delete", http.MethodDelete, "/api/items/5", nil, http.StatusOK},
		{"delete missing", http.MethodDelete, "/api/items/9", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, _ := serve(t, r, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	var gotLimit int
	r := newTestRouter(&fakeAssistant{
		SearchFunc: func(_ context.Context, query string, k int) ([]pipeline.SearchResult, error) {
			gotLimit = k
			return []pipeline.SearchResult{
				{Item: &models.Item{ID: 1, Title: "Dentist appointment"}, Relevance: 0.82},
			}, nil
		},
	})

	w, body := serve(t, r, http.MethodPost, "/api/search", SearchRequest{Query: "dentist", Limit: 3})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotLimit != 3 {
		t.Errorf("Expected limit 3 passed through, got %d", gotLimit)
	}
	items, _ := dataOf(t, body)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("Expected 1 result, got %v", dataOf(t, body)["items"])
	}
	first, _ := items[0].(map[string]any)
	if first["relevance_score"] != 0.82 || first["title"] != "Dentist appointment" {
		t.Errorf("Expected flattened item with relevance_score, got %v", first)
	}

	w, _ = serve(t, r, http.MethodPost, "/api/search", SearchRequest{Query: " "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for blank query, got %d", w.Code)
	}
}

func TestGrouped(t *testing.T) {
	t.Parallel()

	groups := timeline.Groups{
		Today:    []*models.Item{{ID: 1, Datetime: strPtr("2026-03-10T09:00:00")}},
		Tomorrow: []*models.Item{},
		Upcoming: []*models.Item{{ID: 2}},
	}
	var gotNow time.Time
	r := newTestRouter(&fakeAssistant{
		GroupedFunc: func(_ context.Context, now time.Time) (timeline.Groups, error) {
			gotNow = now
			return groups, nil
		},
	})

	t.Run("all buckets", func(t *testing.T) {
		w, body := serve(t, r, http.MethodGet, "/api/items/grouped", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		data := dataOf(t, body)
		for _, key := range []string{"today", "tomorrow", "upcoming"} {
			if _, ok := data[key].([]any); !ok {
				t.Errorf("Expected %s array, got %v", key, data[key])
			}
		}
		if !gotNow.Equal(fixedNow) {
			t.Errorf("Expected handler clock to be used, got %v", gotNow)
		}
	})

	t.Run("single view", func(t *testing.T) {
		w, body := serve(t, r, http.MethodGet, "/api/items/grouped?view=upcoming", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if dataOf(t, body)["count"] != float64(1) {
			t.Errorf("Expected count 1, got %v", dataOf(t, body)["count"])
		}
	})

	t.Run("unknown view", func(t *testing.T) {
		w, _ := serve(t, r, http.MethodGet, "/api/items/grouped?view=yesterday", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestDay(t *testing.T) {
	t.Parallel()

	var gotDate time.Time
	r := newTestRouter(&fakeAssistant{
		DayFunc: func(_ context.Context, date time.Time) ([]*models.Item, error) {
			gotDate = date
			return []*models.Item{{ID: 4}}, nil
		},
	})

	w, body := serve(t, r, http.MethodGet, "/api/items/day?date=2026-04-01", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotDate.Format(time.DateOnly) != "2026-04-01" {
		t.Errorf("Expected date 2026-04-01, got %v", gotDate)
	}
	if dataOf(t, body)["date"] != "2026-04-01" {
		t.Errorf("Expected echoed date, got %v", dataOf(t, body)["date"])
	}

	_, body = serve(t, r, http.MethodGet, "/api/items/day", nil)
	if dataOf(t, body)["date"] != "2026-03-10" {
		t.Errorf("Expected default to today, got %v", dataOf(t, body)["date"])
	}

	w, _ = serve(t, r, http.MethodGet, "/api/items/day?date=04/01/2026", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad date, got %d", w.Code)
	}
}

func TestSync(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&fakeAssistant{
		SyncFunc: func(context.Context) pipeline.SyncResult {
			return pipeline.SyncResult{Calendar: 2, Email: 1, Total: 3}
		},
	})

	w, body := serve(t, r, http.MethodPost, "/api/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	data := dataOf(t, body)
	if data["calendar"] != float64(2) || data["email"] != float64(1) || data["total"] != float64(3) {
		t.Errorf("Unexpected sync counts: %v", data)
	}
}
