package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	logpkg "github.com/benvon/productivity-assistant/internal/logger"
	"github.com/benvon/productivity-assistant/internal/request"
	"go.uber.org/zap"
)

// ErrorResponse is the body written for failures raised by middleware
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	RequestID string `json:"request_id,omitempty"`
}

// Recover turns handler panics into a 500 JSON response
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logpkg.OrNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					// Panic details stay in the server log
					logger.Error("panic_recovered",
						zap.Any("error", rec),
						zap.String("path", logpkg.SanitizePath(r.URL.Path)),
						zap.String("method", r.Method),
						zap.String("request_id", request.IDFromContext(r.Context())),
						zap.Stack("stack"),
					)
					WriteError(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred", logger)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// WriteError sends an ErrorResponse with status
func WriteError(w http.ResponseWriter, r *http.Request, status int, errorType, message string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := ErrorResponse{
		Success:   false,
		Error:     errorType,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
		RequestID: request.IDFromContext(r.Context()),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logpkg.OrNop(logger).Error("failed_to_encode_error_response",
			zap.Error(err),
			zap.Int("status_code", status),
			zap.String("path", r.URL.Path),
		)
	}
}
