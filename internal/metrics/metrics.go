// Package metrics exposes the replenishment engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the engine updates.
type Metrics struct {
	PlanningRuns        *prometheus.CounterVec
	PlanningDuration    prometheus.Histogram
	LinesPlanned        prometheus.Counter
	LinesSkipped        *prometheus.CounterVec
	BurnRateFallbacks   *prometheus.CounterVec
	WorkflowTransitions *prometheus.CounterVec
	FreshnessState      *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests rely on.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PlanningRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dmis",
			Subsystem: "replenishment",
			Name:      "planning_runs_total",
			Help:      "Planning runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		PlanningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dmis",
			Subsystem: "replenishment",
			Name:      "planning_run_duration_seconds",
			Help:      "Wall time of a planning run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		LinesPlanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dmis",
			Subsystem: "replenishment",
			Name:      "lines_planned_total",
			Help:      "Needs list lines that passed gap accounting.",
		}),
		LinesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dmis",
			Subsystem: "replenishment",
			Name:      "lines_skipped_total",
			Help:      "Needs list lines dropped from a run, by error code.",
		}, []string{"code"}),
		BurnRateFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dmis",
			Subsystem: "replenishment",
			Name:      "burn_rate_fallbacks_total",
			Help:      "Burn rates that fell back to the baseline, by reason.",
		}, []string{"reason"}),
		WorkflowTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dmis",
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Needs list workflow attempts by action and result code.",
		}, []string{"action", "result"}),
		FreshnessState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dmis",
			Subsystem: "freshness",
			Name:      "warehouses",
			Help:      "Active warehouses per freshness tier at the last summary.",
		}, []string{"tier"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.PlanningRuns,
			m.PlanningDuration,
			m.LinesPlanned,
			m.LinesSkipped,
			m.BurnRateFallbacks,
			m.WorkflowTransitions,
			m.FreshnessState,
		)
	}
	return m
}
