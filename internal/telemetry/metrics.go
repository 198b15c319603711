package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanout_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Fanout metrics
	SinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_sink_writes_total",
			Help: "Sub-writes per store by outcome",
		},
		[]string{"store", "status"}, // success, skipped, failed
	)

	SinkWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanout_sink_write_duration_seconds",
			Help:    "Time spent writing one order into one store",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"store"},
	)

	// Generator metrics
	GeneratorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_generator_runs_total",
			Help: "Generator runs by executor and outcome",
		},
		[]string{"executor", "outcome"}, // remote/local, ok/error
	)

	RemoteFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_remote_fallbacks_total",
			Help: "Ticks where the remote seed endpoint failed and local generation ran",
		},
	)

	TicketFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_ticket_fallback_total",
			Help: "Ticket ids derived from the wall clock because the counter store was unreachable",
		},
	)

	DegradedOrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_degraded_orders_total",
			Help: "Orders composed with fallback values",
		},
		[]string{"reason"}, // client, branch, products, catalog_error
	)

	OrderTotalAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fanout_order_total_amount",
			Help:    "Distribution of composed order totals",
			Buckets: []float64{1, 2.5, 5, 10, 15, 20, 30, 50},
		},
	)
)
