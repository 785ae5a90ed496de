package middleware

import (
	"net/http"
)

// LimitRequestBody creates a middleware that enforces request body size limits.
//
// The API only takes query parameters, so a declared Content-Length over
// maxBytes is refused with 413 before the handler runs. Bodies without a
// declared length are capped with http.MaxBytesReader. A maxBytes of zero
// disables the limit.
func LimitRequestBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
