package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the fluency pipeline
type Metrics struct {
	// Audio normalization metrics
	NormalizeRequests prometheus.Counter
	NormalizeFailures *prometheus.CounterVec
	NormalizeDuration prometheus.Histogram
	InputSampleRates  *prometheus.CounterVec
	AudioDuration     prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionRetries   prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Scoring metrics
	FluencyScore prometheus.Histogram
	WordsScored  prometheus.Counter
	EmptyScores  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// leaves the metrics unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		NormalizeRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "vocalize_normalize_requests_total",
			Help: "Total number of audio buffers submitted for normalization",
		}),
		NormalizeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vocalize_normalize_failures_total",
			Help: "Total number of audio buffers rejected during normalization",
		}, []string{"kind"}),
		NormalizeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vocalize_normalize_duration_seconds",
			Help:    "Time spent normalizing audio",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}),
		InputSampleRates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vocalize_input_audio_total",
			Help: "Input audio by sample rate, channel count and sample width",
		}, []string{"sample_rate", "channels", "sample_width"}),
		AudioDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vocalize_audio_duration_seconds",
			Help:    "Duration of submitted recordings",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
		}),

		TranscriptionRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "vocalize_transcription_requests_total",
			Help: "Total number of recognition requests sent",
		}),
		TranscriptionSuccesses: f.NewCounter(prometheus.CounterOpts{
			Name: "vocalize_transcription_successes_total",
			Help: "Total number of successful recognition requests",
		}),
		TranscriptionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "vocalize_transcription_failures_total",
			Help: "Total number of failed recognition requests",
		}),
		TranscriptionRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "vocalize_transcription_retries_total",
			Help: "Total number of recognition request retries",
		}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vocalize_transcription_duration_seconds",
			Help:    "Duration of recognition requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),

		FluencyScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vocalize_fluency_score",
			Help:    "Distribution of computed fluency scores",
			Buckets: prometheus.LinearBuckets(0, 0.5, 11), // 0.0 to 5.0
		}),
		WordsScored: f.NewCounter(prometheus.CounterOpts{
			Name: "vocalize_words_scored_total",
			Help: "Total number of words passed to the fluency scorer",
		}),
		EmptyScores: f.NewCounter(prometheus.CounterOpts{
			Name: "vocalize_empty_scores_total",
			Help: "Total number of scoring requests with no words",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vocalize_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vocalize_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vocalize_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordNormalized records a successfully decoded input and the time spent
// converting it.
func (m *Metrics) RecordNormalized(sampleRate, channels, sampleWidth string, audioSeconds, durationSeconds float64) {
	m.NormalizeRequests.Inc()
	m.InputSampleRates.WithLabelValues(sampleRate, channels, sampleWidth).Inc()
	m.AudioDuration.Observe(audioSeconds)
	m.NormalizeDuration.Observe(durationSeconds)
}

// RecordNormalizeFailure records a rejected input by error kind
func (m *Metrics) RecordNormalizeFailure(kind string) {
	m.NormalizeRequests.Inc()
	m.NormalizeFailures.WithLabelValues(kind).Inc()
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionRetry increments the retry counter
func (m *Metrics) RecordTranscriptionRetry() {
	m.TranscriptionRetries.Inc()
}

// RecordScore records a scoring result
func (m *Metrics) RecordScore(words int, score float64, empty bool) {
	if empty {
		m.EmptyScores.Inc()
		return
	}
	m.WordsScored.Add(float64(words))
	m.FluencyScore.Observe(score)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
