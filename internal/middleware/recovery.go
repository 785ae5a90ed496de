package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// RecoverPanic creates a middleware that turns a handler panic into a 500.
//
// The panic value and stack are logged with the request ID, and the client
// gets a JSON error carrying the same ID. http.ErrAbortHandler is re-panicked
// so net/http can abort the connection as intended.
func RecoverPanic(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				id := RequestIDFromContext(r.Context())
				logger.Error("Panic recovered",
					"error", v,
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", id,
					"stack", string(debug.Stack()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, "{\"error\":\"internal server error\",\"request_id\":%q}\n", id)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
