package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the request context of write operations. Remote round
// trips started by the handler are cancelled once d elapses. A zero d
// leaves the context untouched.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
