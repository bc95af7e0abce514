// Package metrics exposes Prometheus instrumentation for the runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "msglog"

// Metrics holds the runtime's collectors. All methods are safe on a nil
// receiver so callers can run without instrumentation.
type Metrics struct {
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	MessagesStored     prometheus.Gauge
	StateBytes         prometheus.Gauge
	ReplayMismatches   prometheus.Counter
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests so repeated construction never collides.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		InvocationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total invocations by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		InvocationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Invocation latency including state and log writes",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"method"},
		),
		MessagesStored: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "messages_stored",
				Help:      "Number of messages in the persisted store",
			},
		),
		StateBytes: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state_bytes",
				Help:      "Encoded size of the persisted store",
			},
		),
		ReplayMismatches: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "replay_mismatches_total",
				Help:      "Logged invocations whose outcome was not reproduced on replay",
			},
		),
	}
}

// ObserveInvocation records one finished invocation.
func (m *Metrics) ObserveInvocation(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.InvocationsTotal.WithLabelValues(method, outcome).Inc()
	m.InvocationDuration.WithLabelValues(method).Observe(seconds)
}

// SetState records the size of the persisted store.
func (m *Metrics) SetState(messages, encodedBytes uint64) {
	if m == nil {
		return
	}
	m.MessagesStored.Set(float64(messages))
	m.StateBytes.Set(float64(encodedBytes))
}

// AddReplayMismatches counts outcomes replay failed to reproduce.
func (m *Metrics) AddReplayMismatches(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReplayMismatches.Add(float64(n))
}
