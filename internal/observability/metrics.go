// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indexer.
type Metrics struct {
	// Event handling metrics
	EventsHandled *prometheus.CounterVec
	HandlerErrors *prometheus.CounterVec

	// Chain client metrics
	RPCCallLatency *prometheus.HistogramVec
	WSReconnects   prometheus.Counter

	// Progress metrics
	LastProcessedBlock prometheus.Gauge
	BufferedLogs       prometheus.Gauge

	// Health metrics
	LastSuccessfulDispatch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "cooler_indexer"
	}

	return &Metrics{
		EventsHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "events_handled_total",
			Help:      "Total number of lifecycle events handled by kind",
		}, []string{"kind"}),
		HandlerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "handler_errors_total",
			Help:      "Total number of handler failures by kind",
		}, []string{"kind"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "Ethereum RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnections",
		}),
		LastProcessedBlock: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "last_processed_block",
			Help:      "Highest block number whose logs have been dispatched",
		}),
		BufferedLogs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "buffered_logs",
			Help:      "Number of logs buffered awaiting their block to complete",
		}),
		LastSuccessfulDispatch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_dispatch_timestamp",
			Help:      "Unix timestamp of the last successfully handled event",
		}),
	}
}

// ObserveEvent records the outcome of handling one event of the given kind.
func (m *Metrics) ObserveEvent(kind string, err error) {
	if err != nil {
		m.HandlerErrors.WithLabelValues(kind).Inc()
		return
	}
	m.EventsHandled.WithLabelValues(kind).Inc()
	m.LastSuccessfulDispatch.SetToCurrentTime()
}

// RecordRPCLatency records an RPC call latency sample.
func (m *Metrics) RecordRPCLatency(method string, seconds float64) {
	m.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
