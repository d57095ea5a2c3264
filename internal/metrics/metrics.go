// ============================================================================
// KVS Metrics - Prometheus Monitoring
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Collect and expose store-level Prometheus metrics, wired into
//          internal/store as an optional attachment: a store with no
//          collector attached emits no metrics.
//
// Metric Categories:
//
//   1. Operation Counters - Cumulative, monotonically increasing:
//      - kvs_gets_total, kvs_sets_total, kvs_removes_total
//      - kvs_flushes_total, kvs_flush_failures_total
//      - kvs_snapshot_rotations_total, kvs_checksum_failures_total
//
//   2. Status Metrics (Gauge) - Instantaneous values:
//      - kvs_snapshot_count: slots currently retained
//
// Prometheus Query Examples:
//
//   # Flush failure rate
//   rate(kvs_flush_failures_total[5m]) / rate(kvs_flushes_total[5m])
//
//   # Get/set ratio
//   rate(kvs_gets_total[1m]) / rate(kvs_sets_total[1m])
//
// HTTP Endpoint:
//   Exposed via /metrics, scraped by Prometheus. The port is passed to
//   StartServer by the caller (kvsctl reads it from metrics.port).
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects Prometheus metrics for a single store instance.
type Collector struct {
	gets    prometheus.Counter
	sets    prometheus.Counter
	removes prometheus.Counter

	flushes         prometheus.Counter
	flushFailures   prometheus.Counter
	rotations       prometheus.Counter
	checksumFailures prometheus.Counter

	snapshotCount prometheus.Gauge
}

// NewCollector creates and registers a new metrics collector. instanceID
// is included as a constant label so multiple stores in one process don't
// collide on metric identity.
func NewCollector(instanceID uint64) *Collector {
	labels := prometheus.Labels{"instance": fmt.Sprintf("%d", instanceID)}

	c := &Collector{
		gets: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kvs_gets_total",
			Help:        "Total number of Get calls.",
			ConstLabels: labels,
		}),
		sets: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kvs_sets_total",
			Help:        "Total number of Set calls.",
			ConstLabels: labels,
		}),
		removes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kvs_removes_total",
			Help:        "Total number of Remove calls.",
			ConstLabels: labels,
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kvs_flushes_total",
			Help:        "Total number of successful Flush calls.",
			ConstLabels: labels,
		}),
		flushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kvs_flush_failures_total",
			Help:        "Total number of failed Flush calls.",
			ConstLabels: labels,
		}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kvs_snapshot_rotations_total",
			Help:        "Total number of snapshot ring rotations.",
			ConstLabels: labels,
		}),
		checksumFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "kvs_checksum_failures_total",
			Help:        "Total number of Adler-32 verification failures on read.",
			ConstLabels: labels,
		}),
		snapshotCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kvs_snapshot_count",
			Help:        "Number of snapshot slots currently retained.",
			ConstLabels: labels,
		}),
	}

	prometheus.MustRegister(
		c.gets, c.sets, c.removes,
		c.flushes, c.flushFailures,
		c.rotations, c.checksumFailures,
		c.snapshotCount,
	)

	return c
}

func (c *Collector) ObserveGet()    { c.gets.Inc() }
func (c *Collector) ObserveSet()    { c.sets.Inc() }
func (c *Collector) ObserveRemove() { c.removes.Inc() }

func (c *Collector) ObserveFlush()        { c.flushes.Inc() }
func (c *Collector) ObserveFlushFailure() { c.flushFailures.Inc() }

func (c *Collector) ObserveSnapshotRotation() { c.rotations.Inc() }
func (c *Collector) ObserveChecksumFailure()  { c.checksumFailures.Inc() }

func (c *Collector) SetSnapshotCount(n int) { c.snapshotCount.Set(float64(n)) }

// StartServer starts the Prometheus metrics HTTP server on port.
func StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, mux)
}
