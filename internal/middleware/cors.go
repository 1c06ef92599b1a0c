package middleware

import (
	"net/http"

	"github.com/rs/cors"
	"go.uber.org/zap"
)

// CORS allows browser calls from the configured frontend origins
func CORS(allowedOrigins []string, logger *zap.Logger) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	if logger != nil {
		logger.Info("cors_configured", zap.Strings("allowed_origins", allowedOrigins))
	}
	return c.Handler
}
