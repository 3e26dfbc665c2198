// Package metrics defines the prometheus collectors for the intelligence
// pipeline. Collectors register on the default registry and are exposed at
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsIngested counts events admitted into the store at fetch-commit time.
	EventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intel_events_ingested_total",
		Help: "Number of new events merged into the event store.",
	})

	// FetchFailures counts per-source connector failures that were skipped.
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intel_fetch_failures_total",
		Help: "Number of source fetch failures skipped during ingestion.",
	}, []string{"source"})

	// Generations counts digest/chat generations by kind and tier.
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intel_generations_total",
		Help: "Number of digest and chat generations, labeled by tier.",
	}, []string{"kind", "tier"})

	// RemoteFallbacks counts remote-tier failures that degraded to local
	// generation.
	RemoteFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intel_remote_fallbacks_total",
		Help: "Number of remote generation attempts that fell back to the local tier.",
	})
)
