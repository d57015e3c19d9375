// Package telemetry exposes process-level Prometheus metrics for the
// decision driver, distinct from C7's per-decision cost calculation.
// Grounded on the teacher repo's go.mod direct dependency on
// prometheus/client_golang.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/liftstation/pumpkernel/internal/domain"
)

// Metrics bundles every process-level series the driver updates once
// per tick.
type Metrics struct {
	TickLatency          prometheus.Histogram
	DecisionsByPriority   *prometheus.CounterVec
	CostEUR              prometheus.Gauge
	ConstraintViolations prometheus.Counter
	AgentTimeouts        *prometheus.CounterVec
}

// New registers every series against reg and returns the bundle. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TickLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pumpkernel",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of one decide() tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		DecisionsByPriority: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pumpkernel",
			Name:      "decisions_total",
			Help:      "Committed decisions, partitioned by priority applied.",
		}, []string{"priority"}),
		CostEUR: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pumpkernel",
			Name:      "last_decision_cost_eur",
			Help:      "CostEUR of the most recently committed decision.",
		}),
		ConstraintViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pumpkernel",
			Name:      "constraint_violations_total",
			Help:      "Decisions committed with a non-empty constraint_violations list. Should stay zero.",
		}),
		AgentTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pumpkernel",
			Name:      "agent_timeouts_total",
			Help:      "Specialist agent invocations that missed their deadline, by agent name.",
		}, []string{"agent"}),
	}
}

// Observe records one committed Decision's telemetry.
func (m *Metrics) Observe(d domain.Decision, tickSeconds float64, presentAgents map[string]bool, allAgents []string) {
	m.TickLatency.Observe(tickSeconds)
	m.DecisionsByPriority.WithLabelValues(string(d.PriorityApplied)).Inc()
	m.CostEUR.Set(d.CostCalculation.CostEUR)
	if len(d.ConstraintViolations) > 0 {
		m.ConstraintViolations.Inc()
	}
	for _, name := range allAgents {
		if !presentAgents[name] {
			m.AgentTimeouts.WithLabelValues(name).Inc()
		}
	}
}
