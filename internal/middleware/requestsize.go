package middleware

import (
	"net/http"
)

// DefaultMaxRequestSize bounds request bodies. Parse input is a short note.
const DefaultMaxRequestSize int64 = 64 << 10

// MaxRequestSize rejects declared bodies over maxBytes with a 413 and caps
// undeclared (chunked) bodies so reads past the limit fail with
// *http.MaxBytesError.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				WriteError(w, r, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
					"Request body exceeds the size limit", nil)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
