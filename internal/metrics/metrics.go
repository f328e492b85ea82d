// Package metrics exposes Prometheus instrumentation for the delay tracker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	SnapshotRequests prometheus.Counter
	SnapshotFailures prometheus.Counter
	FeedDegradations *prometheus.CounterVec // feed label: trip_updates|stations
	CacheHits        prometheus.Counter
	VehiclesServed   prometheus.Gauge
	StationsLoaded   prometheus.Gauge
	SnapshotDuration prometheus.Histogram
	NATSPublished    prometheus.Counter
	NATSPublishErrs  prometheus.Counter
	NATSConnected    prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		SnapshotRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_snapshot_requests_total",
			Help: "Total enriched snapshot requests.",
		}),
		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_snapshot_failures_total",
			Help: "Total snapshot requests that failed because the vehicle positions feed was unavailable.",
		}),
		FeedDegradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_feed_degradations_total",
			Help: "Secondary feed failures tolerated with an empty substitute.",
		}, []string{"feed"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_snapshot_cache_hits_total",
			Help: "Snapshot requests served from the TTL cache.",
		}),
		VehiclesServed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_vehicles_last_snapshot",
			Help: "Vehicles in the most recent enriched snapshot.",
		}),
		StationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_stations_last_snapshot",
			Help: "Stations available to the most recent snapshot.",
		}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_snapshot_duration_seconds",
			Help:    "Duration of fetch, decode and enrichment per snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_published_total",
			Help: "Total NATS snapshot messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_nats_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.SnapshotRequests, c.SnapshotFailures, c.FeedDegradations,
		c.CacheHits, c.VehiclesServed, c.StationsLoaded, c.SnapshotDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)
	return c
}

// Handler returns the /metrics HTTP handler for this collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
