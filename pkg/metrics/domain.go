package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts business outcomes surfaced on the dashboard.
type DomainMetrics struct {
	votes     *prometheus.CounterVec
	waitlist  *prometheus.CounterVec
	checkouts *prometheus.CounterVec
	webhooks  *prometheus.CounterVec
	events    *prometheus.CounterVec
}

func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "damp_votes_total",
			Help: "Vote submissions by option and outcome.",
		}, []string{"option", "outcome", "local_only"}),
		waitlist: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "damp_waitlist_signups_total",
			Help: "Waitlist submissions by source and outcome.",
		}, []string{"source", "outcome"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "damp_checkout_sessions_total",
			Help: "Checkout session requests by outcome.",
		}, []string{"outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "damp_stripe_webhook_events_total",
			Help: "Stripe webhook events by type and outcome.",
		}, []string{"type", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "damp_events_published_total",
			Help: "Domain events handed to the transport.",
		}, []string{"transport", "event_type", "outcome"}),
	}
	reg.MustRegister(m.votes, m.waitlist, m.checkouts, m.webhooks, m.events)
	return m
}

func (m *DomainMetrics) Vote(option, outcome string, localOnly bool) {
	if m == nil || m.votes == nil {
		return
	}
	m.votes.WithLabelValues(normalizeLabel(option), normalizeLabel(outcome), strconv.FormatBool(localOnly)).Inc()
}

func (m *DomainMetrics) Waitlist(source, outcome string) {
	if m == nil || m.waitlist == nil {
		return
	}
	m.waitlist.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

func (m *DomainMetrics) Checkout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *DomainMetrics) Webhook(eventType, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *DomainMetrics) EventPublished(transport, eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(transport), normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
