package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics records per-message outcomes for background consumers.
type WorkerMetrics struct {
	duration *prometheus.HistogramVec
	acked    *prometheus.CounterVec
	nacked   *prometheus.CounterVec
}

// NewWorkerMetrics registers the worker metrics on the provided registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		return &WorkerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "damp_worker_message_duration_seconds",
		Help:    "Time spent handling one message.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	acked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "damp_worker_messages_acked_total",
		Help: "Messages handled and acknowledged.",
	}, []string{"worker"})
	nacked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "damp_worker_messages_nacked_total",
		Help: "Messages returned for redelivery.",
	}, []string{"worker"})
	reg.MustRegister(duration, acked, nacked)
	return &WorkerMetrics{
		duration: duration,
		acked:    acked,
		nacked:   nacked,
	}
}

// ObserveDuration records how long the worker spent on one message.
func (m *WorkerMetrics) ObserveDuration(worker string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(worker)).Observe(d.Seconds())
}

func (m *WorkerMetrics) IncAck(worker string) {
	if m == nil || m.acked == nil {
		return
	}
	m.acked.WithLabelValues(normalizeLabel(worker)).Inc()
}

func (m *WorkerMetrics) IncNack(worker string) {
	if m == nil || m.nacked == nil {
		return
	}
	m.nacked.WithLabelValues(normalizeLabel(worker)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
