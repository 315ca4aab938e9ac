// Package metrics implements the two observable metrics named in
// spec.md §6: the response-file cache size gauge and the script
// execution duration timer, grounded on the teacher's
// module/metrics.go MetricsCollector (own Prometheus registry,
// vectors registered up front, a promhttp handler for scraping).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector wraps the process's Prometheus registry and metric
// instruments. A nil *Collector is safe to use: every method is a
// no-op, so callers can construct one unconditionally and only wire
// HTTP exposition when the metrics feature is enabled.
type Collector struct {
	registry *prometheus.Registry

	responseFileCacheEntries prometheus.Gauge
	scriptExecutionDuration  prometheus.Histogram
}

// New creates a Collector with its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	cacheGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "response_file_cache_entries",
		Help: "Current number of entries in the response file content cache",
	})
	scriptDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "script_execution_duration_seconds",
		Help:    "Duration of scripted response execution in seconds",
		Buckets: prometheus.DefBuckets,
	})

	reg.MustRegister(cacheGauge)
	reg.MustRegister(scriptDuration)

	return &Collector{
		registry:                 reg,
		responseFileCacheEntries: cacheGauge,
		scriptExecutionDuration:  scriptDuration,
	}
}

// SetEntries implements response.CacheObserver.
func (c *Collector) SetEntries(n int) {
	if c == nil {
		return
	}
	c.responseFileCacheEntries.Set(float64(n))
}

// Observe implements script.DurationRecorder.
func (c *Collector) Observe(d time.Duration) {
	if c == nil {
		return
	}
	c.scriptExecutionDuration.Observe(d.Seconds())
}

// Handler returns an HTTP handler serving this collector's registry in
// the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
