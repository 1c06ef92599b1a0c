package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/models"
	"github.com/benvon/productivity-assistant/internal/pipeline"
	"github.com/benvon/productivity-assistant/internal/timeline"
	"github.com/benvon/productivity-assistant/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Assistant is the pipeline surface the HTTP API exposes
type Assistant interface {
	Parse(ctx context.Context, text string) ([]pipeline.CommitResult, error)
	Get(ctx context.Context, id int64) (*models.Item, error)
	List(ctx context.Context, filterType *models.ItemType) ([]*models.Item, error)
	Update(ctx context.Context, id int64, patch models.ItemPatch) (*models.Item, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, k int) ([]pipeline.SearchResult, error)
	Grouped(ctx context.Context, now time.Time) (timeline.Groups, error)
	Day(ctx context.Context, date time.Time) ([]*models.Item, error)
	Sync(ctx context.Context) pipeline.SyncResult
}

var _ Assistant = (*pipeline.Assistant)(nil)

// ItemHandler serves the item, parse, search and sync endpoints
type ItemHandler struct {
	assistant Assistant
	logger    *zap.Logger
	now       func() time.Time
}

// NewItemHandler creates an item handler
func NewItemHandler(assistant Assistant, log *zap.Logger) *ItemHandler {
	return &ItemHandler{
		assistant: assistant,
		logger:    logger.OrNop(log),
		now:       time.Now,
	}
}

// RegisterRoutes registers routes on a router already scoped to /api
func (h *ItemHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/parse", h.Parse).Methods(http.MethodPost)
	r.HandleFunc("/search", h.Search).Methods(http.MethodPost)
	r.HandleFunc("/sync", h.Sync).Methods(http.MethodPost)
	r.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	// Fixed paths must be registered before /items/{id}
	r.HandleFunc("/items/grouped", h.Grouped).Methods(http.MethodGet)
	r.HandleFunc("/items/day", h.Day).Methods(http.MethodGet)
	r.HandleFunc("/items/{id:[0-9]+}", h.GetItem).Methods(http.MethodGet)
	r.HandleFunc("/items/{id:[0-9]+}", h.UpdateItem).Methods(http.MethodPut)
	r.HandleFunc("/items/{id:[0-9]+}", h.DeleteItem).Methods(http.MethodDelete)
}

// ParseRequest is the body of POST /api/parse
type ParseRequest struct {
	Input string `json:"input"`
}

// ParseResponse lists the items created from the input
type ParseResponse struct {
	Items []*models.Item `json:"items"`
	Count int            `json:"count"`
	// NotIndexed lists created items that are missing from search until repaired
	NotIndexed []int64 `json:"not_indexed,omitempty"`
}

// Parse extracts and stores items from free text
func (h *ItemHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		respondJSONError(w, r, http.StatusBadRequest, "Bad Request", "No input provided")
		return
	}

	results, err := h.assistant.Parse(r.Context(), req.Input)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	resp := ParseResponse{Items: pipeline.Items(results)}
	resp.Count = len(resp.Items)
	for _, res := range results {
		if !res.Indexed {
			resp.NotIndexed = append(resp.NotIndexed, res.Item.ID)
		}
	}
	respondJSON(w, http.StatusCreated, resp)
}

// ItemsResponse is a list of items with its length
type ItemsResponse struct {
	Items []*models.Item `json:"items"`
	Count int            `json:"count"`
}

func itemsResponse(items []*models.Item) ItemsResponse {
	if items == nil {
		items = []*models.Item{}
	}
	return ItemsResponse{Items: items, Count: len(items)}
}

// ListItems lists items newest first, optionally filtered by ?type=
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	var filter *models.ItemType
	if raw := r.URL.Query().Get("type"); raw != "" {
		if err := validation.ValidateItemType(raw); err != nil {
			respondJSONError(w, r, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		t := models.ItemType(raw)
		filter = &t
	}

	items, err := h.assistant.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, itemsResponse(items))
}

// GetItem returns one item
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	item, err := h.assistant.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"item": item})
}

// UpdateItem applies a partial update
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	var patch models.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	item, err := h.assistant.Update(r.Context(), id, patch)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"item": item})
}

// DeleteItem removes an item from the store and the index
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if err := h.assistant.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Item deleted"})
}

// SearchRequest is the body of POST /api/search
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Search runs a semantic search
func (h *ItemHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondJSONError(w, r, http.StatusBadRequest, "Bad Request", "No query provided")
		return
	}

	results, err := h.assistant.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"query": req.Query,
		"items": results,
		"count": len(results),
	})
}

// Grouped returns items bucketed by day. ?view= narrows the result to one bucket.
func (h *ItemHandler) Grouped(w http.ResponseWriter, r *http.Request) {
	groups, err := h.assistant.Grouped(r.Context(), h.now())
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}

	raw := r.URL.Query().Get("view")
	if raw == "" || raw == "all" {
		respondJSON(w, http.StatusOK, groups)
		return
	}
	view, err := timeline.ParseView(raw)
	if err != nil {
		respondJSONError(w, r, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	resp := itemsResponse(groups.Bucket(view))
	respondJSON(w, http.StatusOK, map[string]any{"view": view, "items": resp.Items, "count": resp.Count})
}

// Day lists the items dated on ?date=YYYY-MM-DD, defaulting to today
func (h *ItemHandler) Day(w http.ResponseWriter, r *http.Request) {
	date := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			respondJSONError(w, r, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	items, err := h.assistant.Day(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	resp := itemsResponse(items)
	respondJSON(w, http.StatusOK, map[string]any{
		"date":  date.Format(time.DateOnly),
		"items": resp.Items,
		"count": resp.Count,
	})
}

// Sync pulls the calendar and email sources
func (h *ItemHandler) Sync(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.assistant.Sync(r.Context()))
}
