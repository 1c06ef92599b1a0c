package middleware

import (
	"mime"
	"net/http"
)

// RequireJSON rejects request bodies that are not declared as JSON.
// Bodyless POST/PUT requests pass through.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.ContentLength != 0 {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				WriteError(w, r, http.StatusUnsupportedMediaType, "Unsupported Media Type", "Content-Type must be application/json", nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
