package middleware

import (
	"net/http"
	"strconv"
	"time"

	"watergrid/pkg/metrics"
)

// Metrics записывает метрики HTTP запросов
func Metrics() Middleware {
	m := metrics.Get()
	tracker := metrics.NewRequestTracker(m.HTTPRequestsInFlight)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracker.Start(r.URL.Path)
			defer tracker.End(r.URL.Path)

			start := time.Now()

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			// Маршрут известен только после диспетчеризации
			m.RecordHTTPRequest(r.Method, routeLabel(r), strconv.Itoa(rw.status), time.Since(start))
		})
	}
}
