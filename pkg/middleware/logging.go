package middleware

import (
	"net/http"
	"time"

	"watergrid/pkg/logger"
)

// Logging логирует HTTP запросы
func Logging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration_ms", duration.Milliseconds(),
				"bytes", rw.bytes,
			}

			log := logger.FromContext(r.Context())
			if rw.status >= http.StatusInternalServerError {
				log.Error("HTTP request failed", fields...)
			} else {
				log.Info("HTTP request completed", fields...)
			}
		})
	}
}
