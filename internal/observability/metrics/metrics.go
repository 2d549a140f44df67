// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meeting_summary"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal     *prometheus.CounterVec
	SessionsActive    prometheus.Gauge
	SessionsCompleted prometheus.Counter
	SessionsFailed    *prometheus.CounterVec
	SessionDuration   prometheus.Histogram

	// Controller metrics
	StaleEventsDropped *prometheus.CounterVec

	// Transcription metrics
	TranscriptionPath  *prometheus.CounterVec
	ChunksTranscribed  prometheus.Counter
	ChunkExportLatency prometheus.Histogram
	AudioBytesUploaded prometheus.Counter

	// STT metrics
	STTLatency *prometheus.HistogramVec
	STTErrors  *prometheus.CounterVec

	// Relay metrics
	RelayLatency prometheus.Histogram
	RelayErrors  *prometheus.CounterVec

	// Retry metrics
	RetryAttempts *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
	OutboxDropped       prometheus.Counter

	// gRPC metrics
	RPCTotal   *prometheus.CounterVec
	RPCLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of sessions started",
		}, []string{"origin"}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently in progress",
		}),
		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Total number of sessions that produced a summary link",
		}),
		SessionsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_failed_total",
			Help:      "Total number of failed sessions",
		}, []string{"kind"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration from session start to a terminal status",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),

		StaleEventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_events_dropped_total",
			Help:      "Stage events discarded because their session is no longer current",
		}, []string{"event"}),

		// Transcription metrics
		TranscriptionPath: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_path_total",
			Help:      "Transcriptions by path (single or chunked)",
		}, []string{"path"}),
		ChunksTranscribed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_transcribed_total",
			Help:      "Total number of audio chunks transcribed",
		}),
		ChunkExportLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_export_latency_seconds",
			Help:      "Time to export one audio chunk",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		AudioBytesUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_uploaded_total",
			Help:      "Total audio bytes sent for transcription",
		}),

		// STT metrics
		STTLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text request latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 900},
		}, []string{"provider"}),
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		// Relay metrics
		RelayLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_latency_seconds",
			Help:      "Summary relay request latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 900},
		}),
		RelayErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_errors_total",
			Help:      "Total number of summary relay errors",
		}, []string{"error_type"}),

		RetryAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Retries performed after transient failures",
		}, []string{"op"}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
		OutboxDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_outbox_dropped_total",
			Help:      "Events dropped because the outbox queue was full",
		}),

		// gRPC metrics
		RPCTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC requests",
		}, []string{"method", "code"}),
		RPCLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_latency_seconds",
			Help:      "gRPC request latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method"}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart(origin string) {
	m.SessionsTotal.WithLabelValues(origin).Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session reaching a terminal status.
// failureKind is empty for completed sessions.
func (m *Metrics) RecordSessionEnd(failureKind string, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
	if failureKind == "" {
		m.SessionsCompleted.Inc()
	} else {
		m.SessionsFailed.WithLabelValues(failureKind).Inc()
	}
}

// RecordStaleEvent records a stage event dropped for a superseded session.
func (m *Metrics) RecordStaleEvent(event string) {
	m.StaleEventsDropped.WithLabelValues(event).Inc()
}

// RecordTranscriptionPath records the single-shot vs chunked decision.
func (m *Metrics) RecordTranscriptionPath(chunked bool) {
	path := "single"
	if chunked {
		path = "chunked"
	}
	m.TranscriptionPath.WithLabelValues(path).Inc()
}

// RecordChunkTranscribed records one chunk finishing transcription.
func (m *Metrics) RecordChunkTranscribed() {
	m.ChunksTranscribed.Inc()
}

// RecordChunkExport records the time spent exporting a chunk.
func (m *Metrics) RecordChunkExport(latencySeconds float64) {
	m.ChunkExportLatency.Observe(latencySeconds)
}

// RecordSTTRequest records an STT request and its outcome.
func (m *Metrics) RecordSTTRequest(provider string, bytes int, latencySeconds float64) {
	m.AudioBytesUploaded.Add(float64(bytes))
	m.STTLatency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordRelay records a relay request; errorType is empty on success.
func (m *Metrics) RecordRelay(errorType string, latencySeconds float64) {
	m.RelayLatency.Observe(latencySeconds)
	if errorType != "" {
		m.RelayErrors.WithLabelValues(errorType).Inc()
	}
}

// RecordRetry records a retry of op.
func (m *Metrics) RecordRetry(op string) {
	m.RetryAttempts.WithLabelValues(op).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordOutboxDropped records an event dropped by a full outbox.
func (m *Metrics) RecordOutboxDropped() {
	m.OutboxDropped.Inc()
}

// RecordRPC records a completed gRPC call.
func (m *Metrics) RecordRPC(method, code string, latencySeconds float64) {
	m.RPCTotal.WithLabelValues(method, code).Inc()
	m.RPCLatency.WithLabelValues(method).Observe(latencySeconds)
}
