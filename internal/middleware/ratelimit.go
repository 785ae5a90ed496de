package middleware

import (
	"net/http"

	"github.com/rampantspark/gohwrng/internal/ratelimit"
)

// RateLimit creates a middleware that enforces rate limiting per IP address.
//
// Parameters:
//   - limiter: the rate limiter instance
//   - getIP: function to extract IP from request
//   - onReject: called for every rejected request; may be nil
//
// Returns a middleware function that wraps an http.Handler.
func RateLimit(limiter *ratelimit.Limiter, getIP func(*http.Request) string, onReject func(*http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(getIP(r)) {
				if onReject != nil {
					onReject(r)
				}
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
