package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline bounds the request context. Handlers see the deadline through
// their store calls and render the resulting error themselves; nothing is
// written here.
func Deadline(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
