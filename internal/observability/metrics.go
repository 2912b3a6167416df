// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Normalization metrics
	PayloadsNormalized prometheus.Counter
	PayloadsRejected   prometheus.Counter

	// Reconciliation metrics
	HistoryRecordsMerged  prometheus.Counter
	HistoryRecordsDropped prometheus.Counter

	// Upstream metrics
	UpstreamRequests       *prometheus.CounterVec
	UpstreamErrors         *prometheus.CounterVec
	UpstreamRequestLatency *prometheus.HistogramVec

	// Serving metrics
	ForecastsServed    prometheus.Counter
	ForecastLatency    prometheus.Histogram
	ExecutionsRecorded prometheus.Counter
	FeedSubscribers    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tx_forecast_lab"
	}

	return &Metrics{
		PayloadsNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalization",
			Name:      "payloads_normalized_total",
			Help:      "Total number of upstream payloads normalized",
		}),
		PayloadsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalization",
			Name:      "payloads_rejected_total",
			Help:      "Total number of payloads rejected as unexpected",
		}),
		HistoryRecordsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "records_merged_total",
			Help:      "Total number of history records merged into the feed",
		}),
		HistoryRecordsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "records_dropped_total",
			Help:      "Total number of unresolvable remote records dropped",
		}),
		UpstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of upstream provider requests by operation",
		}, []string{"operation"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Total number of failed upstream requests by operation",
		}, []string{"operation"}),
		UpstreamRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_latency_seconds",
			Help:      "Upstream request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ForecastsServed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "forecasts_served_total",
			Help:      "Total number of execution forecasts served",
		}),
		ForecastLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "forecast_latency_seconds",
			Help:      "End-to-end forecast latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ExecutionsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "executions_recorded_total",
			Help:      "Total number of local executions recorded",
		}),
		FeedSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "feed_subscribers",
			Help:      "Current number of websocket feed subscribers",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
