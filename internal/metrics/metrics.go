package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Алиасы и редиректы
	AliasCreationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alias_creation_total",
			Help: "Total number of alias creation attempts",
		},
		[]string{"kind", "status"},
	)

	RedirectTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirect_total",
			Help: "Total number of alias resolutions",
		},
		[]string{"status"},
	)

	AliasCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alias_cache_total",
			Help: "Alias cache lookups by result",
		},
		[]string{"result"},
	)

	// Учёт кликов
	ClickEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_events_total",
			Help: "Click events by outcome",
		},
		[]string{"status"},
	)

	ClickQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "click_queue_depth",
			Help: "Number of click events waiting in the worker queue",
		},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	GeoLookupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geo_lookup_total",
			Help: "Geolocation lookups by outcome",
		},
		[]string{"status"},
	)
)

// RecordHTTPMetrics records metrics for an HTTP request
func RecordHTTPMetrics(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
