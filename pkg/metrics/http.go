package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks request latency by chi route pattern.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "damp_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route", "status"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "damp_http_requests_in_flight",
		Help: "Requests currently being served.",
	})
	reg.MustRegister(duration, inflight)
	return &HTTPMetrics{duration: duration, inflight: inflight}
}

// Observe records a finished request. route should be the matched pattern, not the raw path.
func (m *HTTPMetrics) Observe(method, route string, status int, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *HTTPMetrics) Inc() {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Inc()
}

func (m *HTTPMetrics) Dec() {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Dec()
}
