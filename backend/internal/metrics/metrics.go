// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tablegraph"

var (
	// Regenerations counts relationship regenerations by outcome (ok, not_found, error).
	Regenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "regenerations_total",
		Help:      "Relationship regenerations by outcome.",
	}, []string{"outcome"})

	// RelationshipsGenerated counts generated relationships by reason.
	RelationshipsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relationships_generated_total",
		Help:      "Relationships written by the generator, by reason.",
	}, []string{"reason"})

	// InterRowSkips counts inter-row passes that were skipped, by cause.
	InterRowSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inter_row_skips_total",
		Help:      "Inter-row passes skipped without error, by cause.",
	}, []string{"cause"})

	// GraphBuildDuration observes graph assembly latency.
	GraphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "graph_build_duration_seconds",
		Help:      "Time spent assembling the relationship graph.",
		Buckets:   prometheus.DefBuckets,
	})

	// GraphSize reports the node and edge counts of the last assembled graph.
	GraphSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_size",
		Help:      "Size of the most recently assembled graph.",
	}, []string{"kind"})

	// RowWrites counts successful row writes by operation.
	RowWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "row_writes_total",
		Help:      "Successful row writes by operation.",
	}, []string{"op"})

	// Subscribers tracks live change-notification subscribers.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "change_subscribers",
		Help:      "Live change-notification subscribers.",
	})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
