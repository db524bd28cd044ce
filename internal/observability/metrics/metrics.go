// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "emotion_inference"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   *prometheus.CounterVec
	SessionsActive  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Unit metrics (one unit = one upload or one streamed chunk)
	UnitsTotal         *prometheus.CounterVec
	AudioBytesReceived prometheus.Counter

	// Pipeline metrics
	PipelineErrors *prometheus.CounterVec
	StageLatency   *prometheus.HistogramVec

	// Prediction metrics
	PredictionsTotal     *prometheus.CounterVec
	PredictionConfidence prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of sessions started",
		}, []string{"mode"}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of sessions in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		UnitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Total number of audio units received",
		}, []string{"mode"}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received",
		}),

		PipelineErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_errors_total",
			Help:      "Total pipeline failures by stage",
		}, []string{"stage"}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Per-stage processing latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"stage"}),

		PredictionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total successful predictions by emotion label",
		}, []string{"emotion"}),
		PredictionConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_confidence",
			Help:      "Confidence of successful predictions (percent)",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new session starting in the given mode
// ("upload" or "stream").
func (m *Metrics) RecordSessionStart(mode string) {
	m.SessionsTotal.WithLabelValues(mode).Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordUnit records one audio unit received.
func (m *Metrics) RecordUnit(mode string, bytes int) {
	m.UnitsTotal.WithLabelValues(mode).Inc()
	m.AudioBytesReceived.Add(float64(bytes))
}

// RecordPipelineError records a failure in the named pipeline stage.
func (m *Metrics) RecordPipelineError(stage string) {
	m.PipelineErrors.WithLabelValues(stage).Inc()
}

// RecordStageLatency records processing latency for the named stage.
func (m *Metrics) RecordStageLatency(stage string, seconds float64) {
	m.StageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordPrediction records a successful prediction.
func (m *Metrics) RecordPrediction(emotion string, confidence int) {
	m.PredictionsTotal.WithLabelValues(emotion).Inc()
	m.PredictionConfidence.Observe(float64(confidence))
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic).Inc()
	}
}
