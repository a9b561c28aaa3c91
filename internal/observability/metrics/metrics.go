// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_teleprompter"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsActive  prometheus.Gauge
	Paused          prometheus.Gauge

	// Transcript metrics
	TranscriptsPartial prometheus.Counter
	TranscriptsFinal   prometheus.Counter
	TranscriptsIgnored *prometheus.CounterVec

	// Utterance metrics
	UtterancesOpened  prometheus.Counter
	UtterancesDropped *prometheus.CounterVec

	// Alignment metrics
	Proposals  *prometheus.CounterVec
	MatchScore prometheus.Histogram

	// Cursor metrics
	CursorPosition prometheus.Gauge
	Progress       prometheus.Gauge
	WordsPerMinute prometheus.Gauge
	Navigation     *prometheus.CounterVec

	// Renderer metrics
	RendererClients prometheus.Gauge
	RendererDrops   *prometheus.CounterVec

	// Kafka metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
	KafkaConsumeTotal   *prometheus.CounterVec
	KafkaConsumeErrors  *prometheus.CounterVec

	// Recognition metrics
	RecognitionRestarts *prometheus.CounterVec
	RecognitionErrors   *prometheus.CounterVec

	// gRPC metrics
	GRPCStreamsActive prometheus.Gauge
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of prompter sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of running prompter sessions",
		}),
		Paused: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_paused",
			Help:      "1 while the session ignores transcripts",
		}),

		TranscriptsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of interim transcripts received",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcripts received",
		}),
		TranscriptsIgnored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_ignored_total",
			Help:      "Transcripts discarded before alignment",
		}, []string{"reason"}),

		UtterancesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Total number of utterances observed",
		}),
		UtterancesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_dropped_total",
			Help:      "Utterances abandoned without a final",
		}, []string{"reason"}),

		Proposals: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_total",
			Help:      "Alignment outcomes per transcript event",
		}, []string{"strategy", "result"}),
		MatchScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_score",
			Help:      "Score of the best qualifying content match",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16, 24},
		}),

		CursorPosition: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cursor_index",
			Help:      "Current word index",
		}),
		Progress: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "progress_percent",
			Help:      "Percentage of the script read",
		}),
		WordsPerMinute: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "words_per_minute",
			Help:      "Speaking rate since session start or reset",
		}),
		Navigation: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_total",
			Help:      "Manual navigation operations",
		}, []string{"op"}),

		RendererClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "renderer_clients",
			Help:      "Connected WebSocket renderer clients",
		}),
		RendererDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renderer_dropped_total",
			Help:      "Cursor events dropped because a renderer was full",
		}, []string{"renderer"}),

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
		KafkaConsumeTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consume_total",
			Help:      "Total number of Kafka messages consumed",
		}, []string{"topic"}),
		KafkaConsumeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consume_errors_total",
			Help:      "Kafka messages that failed to read, decode or validate",
		}, []string{"topic", "error_type"}),

		RecognitionRestarts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_restarts_total",
			Help:      "Recognition source restarts after an unexpected end",
		}, []string{"source"}),
		RecognitionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_errors_total",
			Help:      "Errors reported by the recognition source",
		}, []string{"source"}),

		GRPCStreamsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grpc_streams_active",
			Help:      "Number of currently active gRPC streams",
		}),
	}
}

// RecordSessionStart records a session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd() {
	m.SessionsActive.Dec()
	m.Paused.Set(0)
}

// RecordPaused records the pause flag.
func (m *Metrics) RecordPaused(paused bool) {
	if paused {
		m.Paused.Set(1)
		return
	}
	m.Paused.Set(0)
}

// RecordPartialTranscript records an interim transcript received.
func (m *Metrics) RecordPartialTranscript() {
	m.TranscriptsPartial.Inc()
}

// RecordFinalTranscript records a final transcript received.
func (m *Metrics) RecordFinalTranscript() {
	m.TranscriptsFinal.Inc()
}

// RecordTranscriptIgnored records a transcript dropped before alignment.
func (m *Metrics) RecordTranscriptIgnored(reason string) {
	m.TranscriptsIgnored.WithLabelValues(reason).Inc()
}

// RecordUtterance records a new utterance.
func (m *Metrics) RecordUtterance() {
	m.UtterancesOpened.Inc()
}

// RecordUtteranceDropped records an utterance abandoned without a final.
func (m *Metrics) RecordUtteranceDropped(reason string) {
	m.UtterancesDropped.WithLabelValues(reason).Inc()
}

// RecordProposal records one alignment outcome.
func (m *Metrics) RecordProposal(strategy, result string) {
	m.Proposals.WithLabelValues(strategy, result).Inc()
}

// RecordMatchScore records the score of a qualifying match.
func (m *Metrics) RecordMatchScore(score int) {
	m.MatchScore.Observe(float64(score))
}

// RecordCursor records the cursor gauges.
func (m *Metrics) RecordCursor(index int, progress float64) {
	m.CursorPosition.Set(float64(index))
	m.Progress.Set(progress)
}

// RecordWordsPerMinute records the latest WPM tick.
func (m *Metrics) RecordWordsPerMinute(wpm int) {
	m.WordsPerMinute.Set(float64(wpm))
}

// RecordNavigation records a manual navigation operation.
func (m *Metrics) RecordNavigation(op string) {
	m.Navigation.WithLabelValues(op).Inc()
}

// RecordRendererClients sets the connected client gauge.
func (m *Metrics) RecordRendererClients(n int) {
	m.RendererClients.Set(float64(n))
}

// RecordRendererDrop records a cursor event that a renderer could not take.
func (m *Metrics) RecordRendererDrop(renderer string) {
	m.RendererDrops.WithLabelValues(renderer).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordKafkaConsume records a consumed Kafka message.
func (m *Metrics) RecordKafkaConsume(topic string) {
	m.KafkaConsumeTotal.WithLabelValues(topic).Inc()
}

// RecordKafkaConsumeError records a read, decode or validation failure.
func (m *Metrics) RecordKafkaConsumeError(topic, errorType string) {
	m.KafkaConsumeErrors.WithLabelValues(topic, errorType).Inc()
}

// RecordRecognitionRestart records a recognition restart.
func (m *Metrics) RecordRecognitionRestart(source string) {
	m.RecognitionRestarts.WithLabelValues(source).Inc()
}

// RecordRecognitionError records an error surfaced by a recognition source.
func (m *Metrics) RecordRecognitionError(source string) {
	m.RecognitionErrors.WithLabelValues(source).Inc()
}

// RecordStreamStart records a gRPC stream starting.
func (m *Metrics) RecordStreamStart() {
	m.GRPCStreamsActive.Inc()
}

// RecordStreamEnd records a gRPC stream ending.
func (m *Metrics) RecordStreamEnd() {
	m.GRPCStreamsActive.Dec()
}
