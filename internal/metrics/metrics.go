package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Mirror resolution metrics
var (
	// MirrorAttemptsTotal counts search attempts per mirror; status is
	// "ok", "empty" or "error".
	MirrorAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_attempts_total",
			Help: "Total number of search attempts per mirror.",
		},
		[]string{"mirror", "status"},
	)

	StreamResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_resolutions_total",
			Help: "Total number of stream resolutions.",
		},
		[]string{"status"},
	)

	SubtitleFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtitle_fetches_total",
			Help: "Total number of subtitle fetches.",
		},
		[]string{"status"},
	)
)

// Range proxy metrics
var (
	// ProxyRequestsTotal counts proxied requests by the status sent to the client.
	ProxyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_requests_total",
			Help: "Total number of range proxy requests.",
		},
		[]string{"status"},
	)

	ProxyBytesStreamedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_bytes_streamed_total",
			Help: "Total number of media bytes relayed to clients.",
		},
	)

	// ProxyStreamInterruptionsTotal counts streams that ended early; reason is
	// "client", "upstream" or "idle".
	ProxyStreamInterruptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_stream_interruptions_total",
			Help: "Total number of streams ended before the last byte.",
		},
		[]string{"reason"},
	)

	ProxyActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxy_active_streams",
			Help: "Number of streams currently being relayed.",
		},
	)
)

// HTTP API metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency until the handler returns.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		MirrorAttemptsTotal,
		StreamResolutionsTotal,
		SubtitleFetchesTotal,
		ProxyRequestsTotal,
		ProxyBytesStreamedTotal,
		ProxyStreamInterruptionsTotal,
		ProxyActiveStreams,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}
