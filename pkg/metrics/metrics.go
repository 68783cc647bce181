// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransformRunsTotal tracks transform runs by outcome
	TransformRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "transform",
			Name:      "runs_total",
			Help:      "Total number of transform runs by status",
		},
		[]string{"status"},
	)

	// TransformRunDuration tracks transform run duration in seconds
	TransformRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "transform",
			Name:      "run_duration_seconds",
			Help:      "Duration of transform runs in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	// TransformRowsIn tracks record contexts read by transform runs
	TransformRowsIn = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "transform",
			Name:      "rows_in_total",
			Help:      "Total number of record contexts merged into unified rows",
		},
	)

	// TransformRowsOut tracks unified rows written
	TransformRowsOut = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "transform",
			Name:      "rows_out_total",
			Help:      "Total number of unified rows written",
		},
	)

	// ClusterSize tracks how many record contexts feed each unified row
	ClusterSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "transform",
			Name:      "cluster_size",
			Help:      "Number of record contexts per cluster",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 50, 100},
		},
	)

	// IngestedRecordsTotal tracks raw records received by outcome
	IngestedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "ingestion",
			Name:      "records_total",
			Help:      "Total number of raw records received by outcome",
		},
		[]string{"outcome"},
	)

	// DerivedRelationshipsTotal tracks relationships derived from shared field values
	DerivedRelationshipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "ingestion",
			Name:      "relationships_derived_total",
			Help:      "Total number of relationships derived during ingestion",
		},
	)

	// GraphProjectionsTotal tracks graph projections by status
	GraphProjectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "graph",
			Name:      "projections_total",
			Help:      "Total number of graph projections by status",
		},
		[]string{"status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaMessagesConsumed tracks Kafka messages consumed
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages consumed from Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordTransformRun records a finished transform run
func RecordTransformRun(status string, rowsIn, rowsOut int, durationSeconds float64) {
	TransformRunsTotal.WithLabelValues(status).Inc()
	TransformRunDuration.WithLabelValues(status).Observe(durationSeconds)
	TransformRowsIn.Add(float64(rowsIn))
	TransformRowsOut.Add(float64(rowsOut))
}

// RecordClusterSize records the size of one cluster
func RecordClusterSize(size int) {
	ClusterSize.Observe(float64(size))
}

// RecordIngestion records one ingested batch
func RecordIngestion(read, stored, relationships int) {
	IngestedRecordsTotal.WithLabelValues("stored").Add(float64(stored))
	IngestedRecordsTotal.WithLabelValues("duplicate").Add(float64(read - stored))
	DerivedRelationshipsTotal.Add(float64(relationships))
}

// RecordGraphProjection records a graph projection attempt
func RecordGraphProjection(status string) {
	GraphProjectionsTotal.WithLabelValues(status).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}

// RecordKafkaConsume records a consumed Kafka message
func RecordKafkaConsume(topic, status string) {
	KafkaMessagesConsumed.WithLabelValues(topic, status).Inc()
}
