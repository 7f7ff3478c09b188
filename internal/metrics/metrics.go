// Package metrics exposes Prometheus instruments for the pipeline's
// events: splits emitted, results produced, rows mutated, live worker
// count, and per-query latency, served over promhttp.Handler.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects Prometheus metrics for one Trireme run.
type Collector struct {
	splitsTotal      prometheus.Counter
	resultsTotal     prometheus.Counter
	rowsMutatedTotal prometheus.Counter
	workersActive    prometheus.Gauge
	queryLatency     prometheus.Histogram
}

// NewCollector creates and registers a new metrics collector. A process
// should create exactly one; a second call panics on duplicate
// registration.
func NewCollector() *Collector {
	c := &Collector{
		splitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trireme_splits_total",
			Help: "Total number of token-range splits emitted by the splitter",
		}),
		resultsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trireme_results_total",
			Help: "Total number of results produced by workers",
		}),
		rowsMutatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trireme_rows_mutated_total",
			Help: "Total number of delete/update mutations executed",
		}),
		workersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trireme_workers_active",
			Help: "Current number of live worker sessions",
		}),
		queryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trireme_query_latency_seconds",
			Help:    "Per-query execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(c.splitsTotal)
	prometheus.MustRegister(c.resultsTotal)
	prometheus.MustRegister(c.rowsMutatedTotal)
	prometheus.MustRegister(c.workersActive)
	prometheus.MustRegister(c.queryLatency)

	return c
}

// RecordSplit records one split emitted by the splitter.
func (c *Collector) RecordSplit() {
	c.splitsTotal.Inc()
}

// SplitsTotal exposes the splits counter for tests asserting on its value
// via prometheus/client_golang/prometheus/testutil.
func (c *Collector) SplitsTotal() prometheus.Counter {
	return c.splitsTotal
}

// RecordResult records one completed select query, however many result
// rows it streamed, with the query's execution latency.
func (c *Collector) RecordResult(latencySeconds float64) {
	c.resultsTotal.Inc()
	c.queryLatency.Observe(latencySeconds)
}

// RecordMutation records one successful delete/update execution, with the
// query's execution latency.
func (c *Collector) RecordMutation(latencySeconds float64) {
	c.rowsMutatedTotal.Inc()
	c.queryLatency.Observe(latencySeconds)
}

// SetWorkersActive sets the current worker count gauge.
func (c *Collector) SetWorkersActive(n int) {
	c.workersActive.Set(float64(n))
}

// StartServer starts the Prometheus metrics HTTP server on port, serving
// /metrics via promhttp.Handler. Blocks; callers run it in a goroutine and
// stop the process (or let it die with the process) on kill.
func StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, mux)
}

// NewServer builds (but does not start) an *http.Server exposing /metrics
// on port, for callers that need to Shutdown it gracefully (the
// supervisor, on kill) rather than letting it die with the process.
func NewServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}
