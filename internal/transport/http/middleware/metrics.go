package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/platform/metrics"
)

// Metrics counts requests per status and per matched route pattern.
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			collector.Record(recorder.status, time.Since(start))
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					collector.RecordRoute(r.Method, pattern)
				}
			}
		})
	}
}
