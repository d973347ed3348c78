// Package metrics exposes categorization activity as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Veraticus/spice-categorizer/internal/engine"
	"github.com/Veraticus/spice-categorizer/internal/learning"
)

const namespace = "spice"

// Recorder implements engine.Recorder on its own registry.
type Recorder struct {
	registry      *prometheus.Registry
	decisions     *prometheus.CounterVec
	learning      *prometheus.CounterVec
	rulesSkipped  prometheus.Counter
	sweepDuration prometheus.Histogram
	sweepLast     *prometheus.GaugeVec
}

var _ engine.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "categorization_decisions_total",
			Help:      "Categorization decisions by outcome.",
		}, []string{"outcome"}),
		learning: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merchant_learning_total",
			Help:      "Merchant learning feedback by outcome.",
		}, []string{"outcome"}),
		rulesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_skipped_total",
			Help:      "Rules left out of a snapshot because they failed validation.",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of uncategorized sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		sweepLast: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_last_transactions",
			Help:      "Transaction counts from the most recent sweep.",
		}, []string{"result"}),
	}
}

// Decision counts one categorization outcome.
func (r *Recorder) Decision(outcome engine.Outcome) {
	r.decisions.WithLabelValues(string(outcome)).Inc()
}

// Learned counts one learning outcome.
func (r *Recorder) Learned(outcome learning.Outcome) {
	r.learning.WithLabelValues(string(outcome)).Inc()
}

// RulesSkipped adds to the skipped rule counter.
func (r *Recorder) RulesSkipped(count int) {
	r.rulesSkipped.Add(float64(count))
}

// Sweep records the duration and counts of a finished sweep.
func (r *Recorder) Sweep(summary engine.SweepSummary) {
	r.sweepDuration.Observe(summary.ProcessingTime.Seconds())
	r.sweepLast.WithLabelValues("total").Set(float64(summary.TotalTransactions))
	r.sweepLast.WithLabelValues("committed").Set(float64(summary.Committed))
	r.sweepLast.WithLabelValues("suggested").Set(float64(summary.Suggested))
	r.sweepLast.WithLabelValues("no_match").Set(float64(summary.NoMatch))
	r.sweepLast.WithLabelValues("kept").Set(float64(summary.Kept))
	r.sweepLast.WithLabelValues("failed").Set(float64(summary.Failed))
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current metrics in the text exposition format,
// for pickup by a node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
