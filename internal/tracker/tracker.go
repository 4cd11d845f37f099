// Package tracker keeps per-session language quality samples for survey
// conversations and aggregates them into session and global summaries.
package tracker

import (
	"math"
	"strings"
	"sync"
	"time"

	"sauti/internal/wer"
	"sauti/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultHistorySize = 100

	trendWindow    = 5
	trendThreshold = 5.0
)

// Trend directions of the Kiswahili accuracy score.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// Sample is the quality measurement of one participant message.
type Sample struct {
	KiswahiliAccuracy   int       `json:"kiswahiliAccuracy"`
	MedicalTerminology  int       `json:"medicalTerminology"`
	CulturalSensitivity int       `json:"culturalSensitivity"`
	ResponseLatencyMs   int64     `json:"responseLatency"`
	WER                 float64   `json:"wer"`
	Reference           string    `json:"reference"`
	Timestamp           time.Time `json:"timestamp"`
}

type Averages struct {
	KiswahiliAccuracy   int     `json:"kiswahiliAccuracy"`
	MedicalTerminology  int     `json:"medicalTerminology"`
	CulturalSensitivity int     `json:"culturalSensitivity"`
	ResponseLatencyMs   int64   `json:"responseLatency"`
	WER                 float64 `json:"wer"`
}

type SessionSummary struct {
	SessionID     string   `json:"sessionId"`
	TotalMessages int      `json:"totalMessages"`
	DurationMs    int64    `json:"duration"`
	Averages      Averages `json:"averages"`
	Latest        Sample   `json:"latest"`
	Trend         string   `json:"trend"`
}

type GlobalStats struct {
	TotalSessions  int      `json:"totalSessions"`
	TotalMessages  int      `json:"totalMessages"`
	AverageMetrics Averages `json:"averageMetrics"`
}

type sessionSamples struct {
	samples  []Sample
	total    int
	started  time.Time
	lastSeen time.Time
}

type Option func(*Tracker)

// WithHistorySize bounds the number of samples kept per session.
func WithHistorySize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.historySize = n
		}
	}
}

// WithCalculator sets the WER engine used for sample and session scoring.
func WithCalculator(c *wer.Calculator) Option {
	return func(t *Tracker) {
		if c != nil {
			t.calc = c
		}
	}
}

type Tracker struct {
	mu          sync.RWMutex
	sessions    map[string]*sessionSamples
	calc        *wer.Calculator
	historySize int
	now         func() time.Time
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		sessions:    make(map[string]*sessionSamples),
		calc:        wer.New(),
		historySize: DefaultHistorySize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Evaluate scores one participant message. confidence is the recognition
// confidence in percent and latency the measured time to produce the reply.
func (t *Tracker) Evaluate(input string, confidence float64, latency time.Duration) Sample {
	lower := strings.ToLower(input)
	ref := Reference(lower)

	return Sample{
		KiswahiliAccuracy:   swahiliAccuracy(lower),
		MedicalTerminology:  medicalTerminology(lower),
		CulturalSensitivity: culturalSensitivity(lower),
		ResponseLatencyMs:   latency.Milliseconds(),
		WER:                 wer.Round(t.calc.ConfidenceAdjusted(ref, lower, confidence)),
		Reference:           ref,
		Timestamp:           t.now(),
	}
}

// Record appends sample to the session, keeping only the most recent
// samples up to the history size.
func (t *Tracker) Record(sessionID string, sample Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s, ok := t.sessions[sessionID]
	if !ok {
		s = &sessionSamples{started: now}
		t.sessions[sessionID] = s
	}
	s.lastSeen = now
	s.total++
	s.samples = append(s.samples, sample)
	if over := len(s.samples) - t.historySize; over > 0 {
		s.samples = append(s.samples[:0:0], s.samples[over:]...)
	}
}

// Session summarizes the retained samples of a session. It reports false for
// unknown sessions and sessions without samples.
func (t *Tracker) Session(sessionID string) (*SessionSummary, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.sessions[sessionID]
	if !ok || len(s.samples) == 0 {
		return nil, false
	}

	return &SessionSummary{
		SessionID:     sessionID,
		TotalMessages: s.total,
		DurationMs:    t.now().Sub(s.started).Milliseconds(),
		Averages:      average(s.samples),
		Latest:        s.samples[len(s.samples)-1],
		Trend:         trend(s.samples),
	}, true
}

// Global aggregates every retained sample across sessions.
func (t *Tracker) Global() (*GlobalStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.sessions) == 0 {
		return nil, false
	}

	var all []Sample
	total := 0
	for _, s := range t.sessions {
		all = append(all, s.samples...)
		total += s.total
	}
	if len(all) == 0 {
		return nil, false
	}

	return &GlobalStats{
		TotalSessions:  len(t.sessions),
		TotalMessages:  total,
		AverageMetrics: average(all),
	}, true
}

// Cleanup drops sessions without samples newer than maxAge.
func (t *Tracker) Cleanup(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-maxAge)
	removed := 0
	for id, s := range t.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(t.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Info("Expired metric sessions removed", zap.Int("count", removed))
	}
	return removed
}

// SessionWER scores a whole conversation history.
func (t *Tracker) SessionWER(turns []wer.Turn) wer.SessionResult {
	return t.calc.Session(turns)
}

func average(samples []Sample) Averages {
	var sw, med, cult, lat, w float64
	for _, s := range samples {
		sw += float64(s.KiswahiliAccuracy)
		med += float64(s.MedicalTerminology)
		cult += float64(s.CulturalSensitivity)
		lat += float64(s.ResponseLatencyMs)
		w += s.WER
	}
	n := float64(len(samples))
	return Averages{
		KiswahiliAccuracy:   int(math.Round(sw / n)),
		MedicalTerminology:  int(math.Round(med / n)),
		CulturalSensitivity: int(math.Round(cult / n)),
		ResponseLatencyMs:   int64(math.Round(lat / n)),
		WER:                 wer.Round(w / n),
	}
}

func trend(samples []Sample) string {
	if len(samples) <= trendWindow {
		return TrendStable
	}

	recent := samples[len(samples)-trendWindow:]
	older := samples[max(0, len(samples)-2*trendWindow) : len(samples)-trendWindow]

	diff := meanAccuracy(recent) - meanAccuracy(older)
	switch {
	case diff > trendThreshold:
		return TrendImproving
	case diff < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func meanAccuracy(samples []Sample) float64 {
	sum := 0
	for _, s := range samples {
		sum += s.KiswahiliAccuracy
	}
	return float64(sum) / float64(len(samples))
}
