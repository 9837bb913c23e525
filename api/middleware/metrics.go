package middleware

import (
	"net/http"
	"time"

	"github.com/wecr8/damp-backend/pkg/metrics"
)

// Metrics records request counts and latency labelled by chi route pattern.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.Inc()
			defer m.Dec()

			ww := wrap(w, r)
			start := time.Now()
			next.ServeHTTP(ww, r)
			m.Observe(r.Method, routePattern(r), statusOf(ww), time.Since(start))
		})
	}
}
