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
	// Ingestion metrics
	TicksIngested     prometheus.Counter
	RowsDropped       *prometheus.CounterVec
	TickParsingErrors *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	RowsProcessed     prometheus.Counter
	RowsLabeled       prometheus.Counter
	ModelsTrained     prometheus.Counter

	// Detection metrics
	SignalsDetected   *prometheus.CounterVec
	CurrentFactorTPS  prometheus.Gauge
	CurrentTPSWindow  prometheus.Gauge
	LastSignalAtUnix  prometheus.Gauge

	// Live feed metrics
	WSMessagesReceived prometheus.Counter
	WSReconnects       prometheus.Counter
	WSMessageLatency   prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "burst_pipeline"
	}

	return &Metrics{
		// Ingestion metrics
		TicksIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ticks_ingested_total",
			Help:      "Total number of ticks ingested",
		}),
		RowsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_dropped_total",
			Help:      "Total number of rows dropped by reason",
		}, []string{"reason"}),
		TickParsingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tick_parsing_errors_total",
			Help:      "Total number of tick field parsing errors by field",
		}, []string{"field"}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by stage and status",
		}, []string{"stage", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline stage execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		RowsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rows_processed_total",
			Help:      "Total number of tick rows run through the window engine",
		}),
		RowsLabeled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rows_labeled_total",
			Help:      "Total number of feature rows labeled",
		}),
		ModelsTrained: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "models_trained_total",
			Help:      "Total number of classifier training runs completed",
		}),

		// Detection metrics
		SignalsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "signals_detected_total",
			Help:      "Total number of initiation signals detected by source",
		}, []string{"source"}),
		CurrentFactorTPS: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "current_factor_tps",
			Help:      "Most recent factor_tps value seen by the live detector",
		}),
		CurrentTPSWindow: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "current_tps_window",
			Help:      "Most recent tps_window value seen by the live detector",
		}),
		LastSignalAtUnix: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "last_signal_timestamp",
			Help:      "Unix timestamp of the last detected signal",
		}),

		// Live feed metrics
		WSMessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ws_messages_received_total",
			Help:      "Total number of WebSocket messages received",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTickIngested increments the ticks ingested counter.
func RecordTickIngested() {
	DefaultMetrics.TicksIngested.Inc()
}

// RecordRowDropped records a dropped row with its reason.
func RecordRowDropped(reason string) {
	DefaultMetrics.RowsDropped.WithLabelValues(reason).Inc()
}

// RecordSignalDetected records a detected signal by source.
func RecordSignalDetected(source string, timestampUnix float64) {
	DefaultMetrics.SignalsDetected.WithLabelValues(source).Inc()
	DefaultMetrics.LastSignalAtUnix.Set(timestampUnix)
}

// RecordPipelineRun records a pipeline stage run.
func RecordPipelineRun(stage, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(stage, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
