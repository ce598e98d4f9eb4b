package rssgen

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus metrics. Every server registers them
// on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	FeedsRendered   *prometheus.CounterVec
	FeedItems       *prometheus.HistogramVec
	InferFailures   prometheus.Counter
	ItemsDropped    prometheus.Counter
}

// NewMetrics creates the metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rssgen_http_requests_total",
			Help: "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rssgen_http_request_duration_seconds",
			Help:    "Time to serve an HTTP request",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		FeedsRendered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rssgen_feeds_rendered_total",
			Help: "Total feeds rendered by source kind",
		}, []string{"kind"}),
		FeedItems: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rssgen_feed_items",
			Help:    "Number of items per rendered feed",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}, []string{"kind"}),
		InferFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rssgen_infer_failures_total",
			Help: "Pages on which no repeated structure was found",
		}),
		ItemsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "rssgen_filter_items_dropped_total",
			Help: "Feed items removed by feed filters",
		}),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observeFeed records a rendered feed.
func (m *Metrics) observeFeed(kind string, items int) {
	m.FeedsRendered.WithLabelValues(kind).Inc()
	m.FeedItems.WithLabelValues(kind).Observe(float64(items))
}
