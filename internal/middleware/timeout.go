package middleware

import (
	"net/http"
	"time"
)

// DefaultRequestTimeout must exceed the longest model call (parse) plus store work
const DefaultRequestTimeout = 60 * time.Second

const timeoutBody = `{"success":false,"error":"Service Unavailable","message":"Request timed out"}`

// Timeout bounds handler run time. The handler context is cancelled at the
// deadline and the client gets a 503 JSON body.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
