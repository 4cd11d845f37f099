package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var werBuckets = []float64{0, 0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.4, 0.5, 0.75, 1.0, 1.5}

var (
	WERComputed = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sauti_wer",
		Help:    "Word error rate of evaluated text pairs",
		Buckets: werBuckets,
	}, []string{"source"})

	WERLatest = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sauti_wer_latest",
		Help: "Latest confidence-adjusted WER recorded by the tracker",
	})

	EditOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sauti_wer_edit_operations_total",
		Help: "Alignment operations by kind",
	}, []string{"kind"})

	ConversationMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sauti_conversation_messages_total",
		Help: "Participant messages processed",
	}, []string{"channel"})

	ReplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sauti_reply_duration_seconds",
		Help:    "Time to produce a doctor reply",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	TranscriptionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sauti_transcription_duration_seconds",
		Help:    "Speech-to-text call latency",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 20.0, 40.0},
	})

	TranscriptionConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sauti_transcription_confidence",
		Help:    "Confidence percentage reported for transcriptions",
		Buckets: []float64{50, 60, 70, 80, 85, 90, 95, 100},
	})

	Jobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sauti_jobs_total",
		Help: "Transcription jobs by outcome",
	}, []string{"status"})

	CircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sauti_circuit_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	}, []string{"dependency"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sauti_http_requests_total",
		Help: "HTTP requests by method and status code",
	}, []string{"method", "status"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sauti_http_rate_limited_total",
		Help: "Requests rejected by the per-IP limiter",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sauti_ws_connections_active",
		Help: "Open WebSocket connections",
	})
)
