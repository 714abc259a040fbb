package profiling

import (
	"log"
	"net/http"
	"time"
)

// Middleware wraps HTTP handlers with per-request timing when enabled.
type Middleware struct {
	enabled bool
}

// NewMiddleware creates the timing middleware.
func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{enabled: enabled}
}

// ProfiledHandler logs the duration and status of each request through the
// named handler. With profiling disabled it is a passthrough.
func (m *Middleware) ProfiledHandler(name string, handler http.Handler) http.Handler {
	if !m.enabled {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler.ServeHTTP(wrapped, r)
		log.Printf("handler %s: %s %s -> %d in %v", name, r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
