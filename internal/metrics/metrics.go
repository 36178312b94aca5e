// Package metrics exposes attempt and run counters for Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/slotwatch/internal/application/attempt"
	"github.com/example/slotwatch/internal/application/poller"
)

const namespace = "slotwatch"

var states = []poller.State{
	poller.StateWaitingForDay,
	poller.StateWaitingForWindow,
	poller.StateChecking,
	poller.StateSucceeded,
	poller.StateWindowExpired,
	poller.StateCancelled,
	poller.StateFailed,
}

type Metrics struct {
	registry *prometheus.Registry

	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration prometheus.Histogram
	RunsTotal       *prometheus.CounterVec
	RunState        *prometheus.GaugeVec
	Cycle           prometheus.Gauge
}

// New registers the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		AttemptDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Wall time of one registration attempt.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished poller runs by terminal state.",
		}, []string{"state"}),
		RunState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_state",
			Help:      "1 for the state the current run is in.",
		}, []string{"state"}),
		Cycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_cycle",
			Help:      "Attempts made so far in the current run.",
		}),
	}
}

// Emit implements attempt.RecordSink.
func (m *Metrics) Emit(_ context.Context, rec attempt.Record) {
	m.AttemptsTotal.WithLabelValues(rec.Outcome.Kind.String()).Inc()
	m.AttemptDuration.Observe(rec.Elapsed.Seconds())
}

// Transition implements poller.Observer.
func (m *Metrics) Transition(rs poller.RunState) {
	for _, s := range states {
		v := 0.0
		if s == rs.State {
			v = 1
		}
		m.RunState.WithLabelValues(string(s)).Set(v)
	}
	m.Cycle.Set(float64(rs.Cycle))
}

func (m *Metrics) ObserveRun(res poller.Result) {
	m.RunsTotal.WithLabelValues(string(res.State)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
