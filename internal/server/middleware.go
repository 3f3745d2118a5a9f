package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// HTTPRecorder receives per-request HTTP metrics.
type HTTPRecorder interface {
	HTTPRequest(method, path string, status int, d time.Duration)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Logging logs each request at debug level and records it on rec when non-nil.
func Logging(logger *log.Logger, rec HTTPRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			d := time.Since(start)
			logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", sw.status, "duration", d)
			if rec != nil {
				rec.HTTPRequest(r.Method, r.URL.Path, sw.status, d)
			}
		})
	}
}

// Recover turns handler panics into 500 responses.
func Recover(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("http handler panic", "path", r.URL.Path, "panic", v)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
