// Package metrics exposes prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TicksReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "aggregator_ticks_received_total", Help: "Count of ticks received from transports"},
		[]string{"source"},
	)
	TicksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "aggregator_ticks_processed_total", Help: "Count of ticks accepted by the pipeline"},
		[]string{"source"},
	)
	TicksRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "aggregator_ticks_rejected_total", Help: "Count of ticks dropped at a pipeline gate"},
		[]string{"reason"},
	)
	CandlesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "aggregator_candles_generated_total", Help: "Count of candles closed by the aggregator"},
		[]string{"symbol", "timeframe"},
	)
	AlertsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "aggregator_alerts_triggered_total", Help: "Count of alerts raised by the rule engine"},
		[]string{"symbol"},
	)
	BatchCommits = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "aggregator_batch_commits_total", Help: "Count of successful batch commits"},
	)
	BatchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "aggregator_batch_failures_total", Help: "Count of dropped batches after a failed commit"},
	)
	CommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "aggregator_commit_duration_seconds", Help: "Batch commit latency"},
	)
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "aggregator_queue_depth", Help: "Number of ticks buffered in the ingestion queue"},
	)
)

func init() {
	prometheus.MustRegister(TicksReceived, TicksProcessed, TicksRejected,
		CandlesGenerated, AlertsTriggered, BatchCommits, BatchFailures,
		CommitDuration, QueueDepth)
}
