// Package metrics exposes Prometheus collectors for the scrape pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the collectors for one run, registered on a private registry
// so repeated runs in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	LookupsSucceeded prometheus.Counter
	LookupsFailed    prometheus.Counter
	Attempts         prometheus.Counter
	LookupDuration   prometheus.Histogram
}

// New builds the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		LookupsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "cmpscrape_lookups_succeeded_total",
			Help: "Identifiers persisted with a status.",
		}),
		LookupsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "cmpscrape_lookups_failed_total",
			Help: "Identifiers that exhausted all retries.",
		}),
		Attempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "cmpscrape_lookup_attempts_total",
			Help: "Individual workflow attempts, including retries.",
		}),
		LookupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cmpscrape_lookup_duration_seconds",
			Help:    "Wall time per identifier across all its attempts.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// ObserveLookup records the terminal outcome for one identifier.
func (m *Metrics) ObserveLookup(succeeded bool, attempts int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if succeeded {
		m.LookupsSucceeded.Inc()
	} else {
		m.LookupsFailed.Inc()
	}
	m.Attempts.Add(float64(attempts))
	m.LookupDuration.Observe(elapsed.Seconds())
}

// Snapshot holds the collector values at a point in time.
type Snapshot struct {
	Succeeded       float64
	Failed          float64
	Attempts        float64
	DurationSeconds float64
}

// Snapshot reads the current collector values so the run can report them.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Succeeded:       counterValue(m.LookupsSucceeded),
		Failed:          counterValue(m.LookupsFailed),
		Attempts:        counterValue(m.Attempts),
		DurationSeconds: histogramSum(m.LookupDuration),
	}
}

func counterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}

func histogramSum(h prometheus.Histogram) float64 {
	var pb dto.Metric
	if err := h.Write(&pb); err != nil {
		return 0
	}
	return pb.GetHistogram().GetSampleSum()
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
