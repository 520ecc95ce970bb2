// Package metrics exposes Prometheus instrumentation for search runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/atsp/internal/optimization"
)

const namespace = "atsp"

// ReasonError labels runs that ended with an error.
const ReasonError = "error"

// Metrics groups the run collectors.
type Metrics struct {
	RunsStarted  *prometheus.CounterVec
	RunsFinished *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	Evaluations  *prometheus.CounterVec
	Improvement  *prometheus.HistogramVec
	ActiveRuns   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg gets a
// private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		RunsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Search runs started, by algorithm.",
			},
			[]string{"algorithm"},
		),
		RunsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_finished_total",
				Help:      "Search runs finished, by algorithm and stop reason.",
			},
			[]string{"algorithm", "reason"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of search runs.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"algorithm"},
		),
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "move_evaluations_total",
				Help:      "Move or tour evaluations performed.",
			},
			[]string{"algorithm"},
		),
		Improvement: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cost_improvement_ratio",
				Help:      "(initial - best) / initial cost of finished runs.",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"algorithm"},
		),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Search runs currently executing.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.RunsStarted, m.RunsFinished, m.RunDuration, m.Evaluations, m.Improvement, m.ActiveRuns)
	return m
}

// RunStarted records a run entering execution.
func (m *Metrics) RunStarted(algorithm string) {
	m.RunsStarted.WithLabelValues(algorithm).Inc()
	m.ActiveRuns.Inc()
}

// RunFinished records a run leaving execution. res may be nil when the run
// failed before producing a result.
func (m *Metrics) RunFinished(algorithm string, res *optimization.Result, err error) {
	m.ActiveRuns.Dec()

	reason := ReasonError
	if res != nil {
		reason = string(res.Reason)
	}
	if err != nil && (res == nil || res.Reason != optimization.StopCancelled) {
		reason = ReasonError
	}
	m.RunsFinished.WithLabelValues(algorithm, reason).Inc()
	if res == nil {
		return
	}

	m.RunDuration.WithLabelValues(algorithm).Observe(res.Duration.Seconds())
	m.Evaluations.WithLabelValues(algorithm).Add(float64(res.Context.Evaluations))
	if initial := res.Context.InitialCost; initial > 0 {
		m.Improvement.WithLabelValues(algorithm).Observe(float64(initial-res.Context.BestCost) / float64(initial))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
