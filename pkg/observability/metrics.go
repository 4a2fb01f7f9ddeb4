package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// Each collector owns its registry so tests can create as many as they like.
// All recording methods are safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Tree metrics
	Toggles        *prometheus.CounterVec
	NodesAdded     prometheus.Counter
	NodesRemoved   prometheus.Counter
	ActiveSessions prometheus.Gauge

	// Fetch metrics
	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec

	// Layout metrics
	LayoutDuration prometheus.Histogram
	LayoutFailures prometheus.Counter

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Toggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tree_toggles_total",
				Help:      "Expand and collapse toggles by outcome",
			},
			[]string{"action", "outcome"},
		),
		NodesAdded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tree_nodes_added_total",
				Help:      "Total number of nodes merged into tree views",
			},
		),
		NodesRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tree_nodes_removed_total",
				Help:      "Total number of nodes removed by collapse",
			},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tree_sessions_active",
				Help:      "Number of open tree sessions",
			},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "branch_fetch_duration_seconds",
				Help:      "Branch fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source", "operation"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "branch_fetch_errors_total",
				Help:      "Total number of failed branch fetches",
			},
			[]string{"source", "operation"},
		),
		LayoutDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layout_duration_seconds",
				Help:      "Layout computation duration in seconds",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		LayoutFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layout_failures_total",
				Help:      "Total number of layout runs that fell back to unpositioned output",
			},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Toggles,
		c.NodesAdded,
		c.NodesRemoved,
		c.ActiveSessions,
		c.FetchDuration,
		c.FetchErrors,
		c.LayoutDuration,
		c.LayoutFailures,
		c.CacheHits,
		c.CacheMisses,
	)

	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTP records one served request
func (c *Collector) RecordHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordToggle records an expand or collapse outcome
func (c *Collector) RecordToggle(action, outcome string) {
	if c == nil {
		return
	}
	c.Toggles.WithLabelValues(action, outcome).Inc()
}

// RecordGraphDelta records merged and removed node counts
func (c *Collector) RecordGraphDelta(added, removed int) {
	if c == nil {
		return
	}
	c.NodesAdded.Add(float64(added))
	c.NodesRemoved.Add(float64(removed))
}

// RecordFetch records one branch fetch
func (c *Collector) RecordFetch(source, operation string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.FetchDuration.WithLabelValues(source, operation).Observe(d.Seconds())
	if err != nil {
		c.FetchErrors.WithLabelValues(source, operation).Inc()
	}
}

// RecordLayout records one layout run
func (c *Collector) RecordLayout(d time.Duration, failed bool) {
	if c == nil {
		return
	}
	c.LayoutDuration.Observe(d.Seconds())
	if failed {
		c.LayoutFailures.Inc()
	}
}

// RecordCache records a cache lookup
func (c *Collector) RecordCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.CacheHits.Inc()
	} else {
		c.CacheMisses.Inc()
	}
}

// SetActiveSessions sets the open session gauge
func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.ActiveSessions.Set(float64(n))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
