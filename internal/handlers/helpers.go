package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/productivity-assistant/internal/database"
	logpkg "github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/request"
	"github.com/benvon/productivity-assistant/internal/services/ai"
	"github.com/benvon/productivity-assistant/internal/services/index"
	"github.com/benvon/productivity-assistant/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxErrorMessageLength bounds error messages returned to clients
const maxErrorMessageLength = 200

// errBodyTooLarge is returned by decodeJSON when the body hit the size cap
var errBodyTooLarge = errors.New("request body too large")

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError sends an error JSON response with a bounded message
func respondJSONError(w http.ResponseWriter, r *http.Request, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   logpkg.SanitizeString(message, maxErrorMessageLength),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if id := request.IDFromContext(r.Context()); id != "" {
		response["request_id"] = id
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondServiceError maps a pipeline error to a status. Unclassified errors
// are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var extractionErr *ai.ExtractionError
	var indexErr *index.IndexError

	switch {
	case errors.Is(err, validation.ErrInvalidDraft), errors.Is(err, ai.ErrEmptyInput):
		respondJSONError(w, r, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, errBodyTooLarge):
		respondJSONError(w, r, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Request body exceeds the size limit")
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, r, http.StatusNotFound, "Not Found", "Item not found")
	case errors.As(err, &extractionErr):
		status := http.StatusBadGateway
		if extractionErr.Timeout() {
			status = http.StatusGatewayTimeout
		}
		logger.Warn("extraction_failed",
			zap.String("kind", string(extractionErr.Kind)),
			zap.String("error", logpkg.SanitizeError(err)),
			zap.String("request_id", request.IDFromContext(r.Context())),
		)
		respondJSONError(w, r, status, "Extraction Failed", fmt.Sprintf("language model %s error", extractionErr.Kind))
	case errors.As(err, &indexErr):
		logger.Warn("index_unavailable", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, r, http.StatusServiceUnavailable, "Search Unavailable", "Semantic index is unavailable")
	default:
		logger.Error("request_failed",
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
			zap.String("error", logpkg.SanitizeError(err)),
			zap.String("request_id", request.IDFromContext(r.Context())),
		)
		respondJSONError(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown fields
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		if errors.Is(err, io.EOF) {
			return &validation.ValidationError{Field: "body", Reason: "is required"}
		}
		return &validation.ValidationError{Field: "body", Reason: "is not valid JSON: " + err.Error()}
	}
	return nil
}

// pathID reads the {id} route variable
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &validation.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}
