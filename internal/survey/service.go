// Package survey ties the scripted conversation to quality tracking so every
// front end records the same metrics.
package survey

import (
	"context"
	"time"

	"sauti/internal/conversation"
	"sauti/internal/metrics"
	"sauti/internal/tracker"
	"sauti/internal/wer"
	"sauti/pkg/model"

	"github.com/google/uuid"
)

// Exchange is the doctor's reply to one message plus the sample recorded for it
type Exchange struct {
	Reply   model.Message  `json:"response"`
	Metrics tracker.Sample `json:"metrics"`
}

type Service struct {
	conv    *conversation.Manager
	tracker *tracker.Tracker
	now     func() time.Time
}

func NewService(conv *conversation.Manager, tr *tracker.Tracker) *Service {
	return &Service{conv: conv, tracker: tr, now: time.Now}
}

// Start opens a session and returns its id with the greeting
func (s *Service) Start(language string) (string, model.Message) {
	return s.conv.Start(language)
}

// Message runs one participant message through the survey and records its
// quality sample against the session.
func (s *Service) Message(ctx context.Context, channel, sessionID, text, language string) (*Exchange, error) {
	start := s.now()
	reply, err := s.conv.Process(ctx, sessionID, text, language)
	if err != nil {
		return nil, err
	}
	latency := s.now().Sub(start)

	sample := s.tracker.Evaluate(text, float64(reply.Confidence), latency)
	s.tracker.Record(sessionID, sample)

	metrics.ConversationMessages.WithLabelValues(channel).Inc()
	metrics.ReplyDuration.Observe(latency.Seconds())
	metrics.WERComputed.WithLabelValues("tracker").Observe(sample.WER)
	metrics.WERLatest.Set(sample.WER)

	return &Exchange{
		Reply: model.Message{
			ID:         uuid.NewString(),
			Role:       model.RoleDoctor,
			Content:    reply.Text,
			Timestamp:  s.now(),
			Confidence: reply.Confidence,
		},
		Metrics: sample,
	}, nil
}

// History returns the stored messages of a session
func (s *Service) History(sessionID string) []model.Message {
	return s.conv.History(sessionID)
}

// SessionWER scores the stored conversation of a session
func (s *Service) SessionWER(sessionID string) wer.SessionResult {
	return s.tracker.SessionWER(model.Turns(s.conv.History(sessionID)))
}

// SessionMetrics summarizes the tracked samples of a session
func (s *Service) SessionMetrics(sessionID string) (*tracker.SessionSummary, bool) {
	return s.tracker.Session(sessionID)
}

// GlobalMetrics aggregates samples over every session
func (s *Service) GlobalMetrics() (*tracker.GlobalStats, bool) {
	return s.tracker.Global()
}

// Cleanup expires idle conversations and metric sessions
func (s *Service) Cleanup(maxAge time.Duration) {
	s.conv.Cleanup(maxAge)
	s.tracker.Cleanup(maxAge)
}

// RunCleanup calls Cleanup every interval until ctx is done
func (s *Service) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup(maxAge)
		}
	}
}
