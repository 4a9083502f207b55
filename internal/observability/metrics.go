package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors for planning and execution. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	PlanOutcomes *prometheus.CounterVec
	RepairCalls  *prometheus.CounterVec
	Steps        *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	Runs         *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PlanOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentflow",
			Name:      "plans_total",
			Help:      "Plans generated, by identity and outcome (validated, exhausted).",
		}, []string{"identity", "outcome"}),
		RepairCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentflow",
			Name:      "plan_repairs_total",
			Help:      "Repair requests issued to the plan source.",
		}, []string{"identity"}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentflow",
			Name:      "steps_total",
			Help:      "Plan steps by identity and outcome.",
		}, []string{"identity", "outcome"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentflow",
			Name:      "step_duration_seconds",
			Help:      "Duration of invoked plan steps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"identity", "method"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentflow",
			Name:      "runs_total",
			Help:      "Top-level runs by status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.PlanOutcomes, m.RepairCalls, m.Steps, m.StepDuration, m.Runs)
	}
	return m
}

func (m *Metrics) ObservePlan(identity, outcome string) {
	if m == nil {
		return
	}
	m.PlanOutcomes.WithLabelValues(identity, outcome).Inc()
}

func (m *Metrics) ObserveRepair(identity string) {
	if m == nil {
		return
	}
	m.RepairCalls.WithLabelValues(identity).Inc()
}

func (m *Metrics) ObserveStep(identity, method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(identity, outcome).Inc()
	if d > 0 {
		m.StepDuration.WithLabelValues(identity, method).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveRun(status string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
}
