// Package metrics holds the Prometheus collectors shared by every service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RPC client metrics
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microdo_rpc_client_calls_total",
			Help: "Total number of RPC calls by pattern and outcome",
		},
		[]string{"pattern", "outcome"},
	)

	RPCCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "microdo_rpc_client_call_duration_seconds",
			Help:    "Duration of RPC calls from publish to reply",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pattern"},
	)

	RPCPendingCalls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "microdo_rpc_client_pending_calls",
			Help: "Number of RPC calls currently waiting for a reply",
		},
	)

	RPCLateReplies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "microdo_rpc_client_late_replies_total",
			Help: "Replies dropped because no waiter matched their correlation id",
		},
	)

	// RPC server metrics
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microdo_rpc_server_requests_total",
			Help: "Total number of RPC requests handled by pattern and reply code",
		},
		[]string{"queue", "pattern", "code"},
	)

	RPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "microdo_rpc_server_request_duration_seconds",
			Help:    "Duration of RPC handler execution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue", "pattern"},
	)

	// Event metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microdo_events_published_total",
			Help: "Total number of events handed to the broker",
		},
		[]string{"topic"},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microdo_event_publish_failures_total",
			Help: "Total number of events the broker refused",
		},
		[]string{"topic"},
	)

	EventHandlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microdo_event_handler_failures_total",
			Help: "Total number of event handler invocations that failed",
		},
		[]string{"queue", "topic"},
	)

	// Realtime metrics
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "microdo_realtime_connections",
			Help: "Number of joined realtime connections",
		},
	)

	RealtimeRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microdo_realtime_rejections_total",
			Help: "Realtime handshakes rejected by reason",
		},
		[]string{"reason"},
	)

	RealtimePushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microdo_realtime_pushes_total",
			Help: "Realtime frames pushed to connections by event",
		},
		[]string{"event"},
	)

	RealtimeDroppedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "microdo_realtime_dropped_frames_total",
			Help: "Frames dropped because a connection's send buffer was full",
		},
	)

	// HTTP metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microdo_gateway_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "microdo_gateway_http_request_duration_seconds",
			Help:    "Duration of gateway HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
