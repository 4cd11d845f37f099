// Package speech transcribes participant audio with the OpenAI Whisper API.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"time"
	"unicode/utf8"

	"sauti/internal/metrics"
	"sauti/pkg/logger"
	"sauti/pkg/resilience"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

const (
	MaxAudioBytes = 25 * 1024 * 1024

	baseConfidence     = 85
	longTextBonus      = 5
	longTextThreshold  = 50
	defaultTemperature = 0.2
)

var (
	ErrEmptyAudio    = errors.New("speech: empty audio")
	ErrAudioTooLarge = errors.New("speech: audio exceeds 25MB")
)

var languageMap = map[string]string{
	"sw-KE": "sw",
	"sw":    "sw",
	"en":    "en",
}

// Transcriber turns audio into text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (*Transcription, error)
}

type Option func(*Client)

// WithBaseURL points the client at an OpenAI-compatible endpoint
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel overrides the transcription model
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout sets a per-request HTTP timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMockFallback returns canned transcriptions when the API call fails.
// Only meant for development.
func WithMockFallback(enabled bool) Option {
	return func(c *Client) { c.mockFallback = enabled }
}

// WithRetry overrides the retry policy around API calls
func WithRetry(cfg *resilience.RetryConfig) Option {
	return func(c *Client) {
		if cfg != nil {
			c.retry = cfg
		}
	}
}

var _ Transcriber = (*Client)(nil)

type Client struct {
	api          openai.Client
	model        string
	baseURL      string
	timeout      time.Duration
	mockFallback bool
	breaker      *resilience.CircuitBreaker
	retry        *resilience.RetryConfig
}

// New OpenAI Whisper client
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		model:   string(openai.AudioModelWhisper1),
		breaker: resilience.NewCircuitBreaker(5, 30*time.Second),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are handled by the resilience wrapper
		option.WithMaxRetries(0),
	}
	if c.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.baseURL))
	}
	if c.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: c.timeout}))
	}
	c.api = openai.NewClient(reqOpts...)

	c.breaker.OnStateChange(func(_, to resilience.State) {
		metrics.CircuitState.WithLabelValues("openai").Set(float64(to))
		logger.Warn("OpenAI circuit breaker state changed", zap.String("state", to.String()))
	})

	return c
}

// Transcribe validates the audio, sends it to Whisper and estimates a
// confidence for the result.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, language string) (*Transcription, error) {
	if err := ValidateAudio(audio); err != nil {
		return nil, err
	}
	lang := WhisperLanguage(language)

	start := time.Now()
	var verbose *verboseTranscription
	err := resilience.RetryWithExponentialBackoff(ctx, c.retry, func() error {
		return c.breaker.Execute(func() error {
			v, err := c.call(ctx, audio, filename, lang)
			if err != nil {
				return err
			}
			verbose = v
			return nil
		})
	})
	metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if c.mockFallback {
			logger.Warn("Transcription failed, using mock transcription",
				zap.String("language", lang),
				zap.Error(err))
			mock := MockTranscription(lang)
			return &mock, nil
		}
		return nil, fmt.Errorf("failed to transcribe audio: %w", err)
	}

	result := &Transcription{
		Text:       verbose.Text,
		Confidence: estimateConfidence(verbose),
		Language:   verbose.Language,
		Duration:   verbose.Duration,
	}
	metrics.TranscriptionConfidence.Observe(float64(result.Confidence))

	logger.Info("Transcription completed",
		zap.String("language", result.Language),
		zap.Float64("duration", result.Duration),
		zap.Int("confidence", result.Confidence),
		zap.Int("segments", len(verbose.Segments)))

	return result, nil
}

func (c *Client) call(ctx context.Context, audio []byte, filename, lang string) (*verboseTranscription, error) {
	resp, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(audio), filename, contentType(filename)),
		Model:          openai.AudioModel(c.model),
		Language:       openai.String(lang),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
		Temperature:    openai.Float(defaultTemperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(err)
		}
		return nil, err
	}

	var v verboseTranscription
	if raw := resp.RawJSON(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("failed to unmarshal transcription: %w", err))
		}
	}
	if v.Text == "" {
		v.Text = resp.Text
	}
	return &v, nil
}

// estimateConfidence returns a 0..100 score. Whisper reports no confidence, so
// the mean segment probability stands in for it.
func estimateConfidence(v *verboseTranscription) int {
	confidence := baseConfidence
	if utf8.RuneCountInString(v.Text) > longTextThreshold {
		confidence += longTextBonus
	}
	if len(v.Segments) > 0 {
		var sum float64
		for _, s := range v.Segments {
			sum += math.Exp(s.AvgLogprob)
		}
		confidence += int(math.Round(sum / float64(len(v.Segments)) * 10))
	}
	return min(confidence, 100)
}

// ValidateAudio rejects empty clips and clips over the API upload limit
func ValidateAudio(audio []byte) error {
	if len(audio) == 0 {
		return resilience.Permanent(ErrEmptyAudio)
	}
	if len(audio) > MaxAudioBytes {
		return resilience.Permanent(ErrAudioTooLarge)
	}
	return nil
}

// WhisperLanguage maps a survey language code to the ISO-639-1 code Whisper
// expects. Unknown codes fall back to Swahili.
func WhisperLanguage(language string) string {
	if l, ok := languageMap[language]; ok {
		return l
	}
	return "sw"
}

// MockTranscription returns the canned development transcription
func MockTranscription(language string) Transcription {
	if m, ok := mockTranscriptions[WhisperLanguage(language)]; ok {
		return m
	}
	return mockTranscriptions["sw"]
}

func contentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	case ".flac":
		return "audio/flac"
	default:
		return "audio/wav"
	}
}
