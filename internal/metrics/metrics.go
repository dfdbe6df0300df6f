// Package metrics exposes Prometheus instruments for topology enumeration and
// regulation synthesis.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TopologiesInstalled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boolnet",
		Name:      "topologies_installed_total",
		Help:      "Candidate topologies installed into a component registry.",
	})

	EnumerationRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boolnet",
		Name:      "enumeration_refreshes_total",
		Help:      "Times a topology enumeration was (re)computed from the interaction ledger.",
	})

	EnumerationSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "boolnet",
		Name:      "enumeration_size",
		Help:      "Number of candidate topologies in the most recent enumeration.",
	})

	SynthesisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "boolnet",
		Name:      "synthesis_duration_seconds",
		Help:      "Time spent building one consistency map.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{"variant"})

	EvaluatorFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boolnet",
		Name:      "evaluator_failures_total",
		Help:      "Errors returned by the external regulation evaluator.",
	})
)
