package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks outbound requests to upstream venues.
	VenueRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_venue_requests_total",
			Help: "Total number of upstream venue requests (by venue and result).",
		},
		[]string{"venue", "result"}, // result = "ok" | "error" | "not_offered"
	)

	// Measures duration of one full aggregation pass.
	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_aggregation_pass_duration_seconds",
			Help:    "Duration of one full aggregation pass in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms → ~40s
		},
	)

	// Tracks rate cache hits and misses.
	CacheAccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cache_access_total",
			Help: "Number of hits/misses in the rate cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Gauges the number of currently connected subscribers.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_connected_clients",
			Help: "Number of currently connected WebSocket subscribers.",
		},
	)

	// Tracks outbound envelopes by event type and result.
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_messages_sent_total",
			Help: "Total number of envelopes sent to subscribers.",
		},
		[]string{"event", "result"}, // result = "ok" | "error"
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_errors_total",
			Help: "Count of gateway-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful aggregation pass time (seconds since epoch).
	LastPassTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_last_pass_timestamp",
			Help: "Timestamp (unix seconds) of the last successful aggregation pass.",
		},
	)
)

// IncVenueRequest records the outcome of one upstream venue call.
func IncVenueRequest(venue, result string) {
	VenueRequestsTotal.WithLabelValues(venue, result).Inc()
}

// IncCache records a cache hit or miss.
func IncCache(result string) {
	CacheAccessTotal.WithLabelValues(result).Inc()
}

// IncNATSMessage records a publish result for a subject.
func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

// IncError records a component-level error.
func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// ObservePass records the duration of a finished aggregation pass.
func ObservePass(start time.Time) {
	PassDuration.Observe(time.Since(start).Seconds())
	LastPassTimestamp.Set(float64(time.Now().Unix()))
}
