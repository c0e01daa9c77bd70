package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/serroba/ratelimit-service/internal/ratelimit"
)

const (
	OutcomeAdmitted        = "admitted"
	OutcomeLimited         = "limited"
	OutcomeStoreError      = "store_error"
	OutcomeIdentityMissing = "identity_missing"
)

// Metrics holds the rate limiter collectors.
type Metrics struct {
	Decisions      *prometheus.CounterVec
	WindowsStarted prometheus.Counter
	FailOpen       prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratelimit_decisions_total",
				Help: "Rate limit evaluations by outcome",
			},
			[]string{"outcome"},
		),
		WindowsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ratelimit_windows_started_total",
				Help: "Requests that opened a new window for their identity",
			},
		),
		FailOpen: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ratelimit_fail_open_total",
				Help: "Requests let through because the counter store was unavailable",
			},
		),
	}

	reg.MustRegister(m.Decisions, m.WindowsStarted, m.FailOpen)

	return m
}

// ObserveDecision records the outcome of a successful evaluation.
func (m *Metrics) ObserveDecision(d ratelimit.Decision) {
	if d.WindowStarted {
		m.WindowsStarted.Inc()
	}

	if d.Limited {
		m.Decisions.WithLabelValues(OutcomeLimited).Inc()

		return
	}

	m.Decisions.WithLabelValues(OutcomeAdmitted).Inc()
}

// ObserveOutcome records an evaluation that did not produce a decision.
func (m *Metrics) ObserveOutcome(outcome string) {
	m.Decisions.WithLabelValues(outcome).Inc()
}
