// Package conversation runs the scripted Kiswahili health survey that the
// virtual doctor conducts with a participant.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"sauti/pkg/logger"
	"sauti/pkg/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("conversation: session not found")

// Reply is the doctor's answer to one participant message.
type Reply struct {
	Text       string `json:"text"`
	Confidence int    `json:"confidence"`
	FollowUp   string `json:"followUp,omitempty"`
	Symptom    string `json:"symptom,omitempty"`
}

// Context is the survey state of a session.
type Context struct {
	UserName        string   `json:"userName"`
	Symptoms        []string `json:"symptoms"`
	CurrentQuestion int      `json:"currentQuestion"`
	Language        string   `json:"language"`
}

type session struct {
	messages []model.Message
	context  Context
	lastSeen time.Time
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Greeting returns the opening line for language, defaulting to Kiswahili.
func Greeting(language string) string {
	if g, ok := greetings[language]; ok {
		return g
	}
	return greetings[LanguageSwahili]
}

// Start allocates a new session id and returns the greeting as a doctor
// message. The greeting is not stored in the session history.
func (m *Manager) Start(language string) (string, model.Message) {
	id := uuid.NewString()
	greeting := model.Message{
		ID:         uuid.NewString(),
		Role:       model.RoleDoctor,
		Content:    Greeting(language),
		Timestamp:  m.now(),
		Confidence: confidenceCultural,
	}

	logger.Debug("Conversation started",
		zap.String("session_id", id),
		zap.String("language", language),
	)
	return id, greeting
}

// Process records the participant message, generates the doctor reply and
// records it as well. Unknown sessions are created on first use.
func (m *Manager) Process(ctx context.Context, sessionID, text, language string) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	if sessionID == "" {
		return Reply{}, fmt.Errorf("conversation: empty session id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s, ok := m.sessions[sessionID]
	if !ok {
		if language == "" {
			language = LanguageSwahili
		}
		s = &session{context: Context{Language: language, Symptoms: []string{}}}
		m.sessions[sessionID] = s
	}
	s.lastSeen = now

	s.messages = append(s.messages, model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleUser,
		Content:   text,
		Timestamp: now,
	})

	if len(s.messages) == 1 {
		if name := extractName(text); name != "" {
			s.context.UserName = name
		}
	}

	reply := s.respond(strings.ToLower(text))

	s.messages = append(s.messages, model.Message{
		ID:         uuid.NewString(),
		Role:       model.RoleDoctor,
		Content:    reply.Text,
		Timestamp:  now,
		Confidence: reply.Confidence,
	})

	return reply, nil
}

func (s *session) respond(input string) Reply {
	for _, r := range symptomResponses {
		if strings.Contains(input, r.symptom) {
			s.context.Symptoms = append(s.context.Symptoms, r.symptom)
			return Reply{Text: r.text, Confidence: r.confidence, FollowUp: r.followUp, Symptom: r.symptom}
		}
	}

	for _, r := range culturalResponses {
		if strings.Contains(input, r.phrase) {
			return Reply{Text: r.text, Confidence: confidenceCultural}
		}
	}

	if s.context.UserName != "" && len(s.messages) <= 2 {
		return Reply{
			Text:       fmt.Sprintf("Asante %s. Sasa ninaanza maswali ya afya. %s", s.context.UserName, surveyQuestions[0]),
			Confidence: confidenceName,
		}
	}

	if q := s.context.CurrentQuestion; q < len(surveyQuestions) {
		s.context.CurrentQuestion++
		return Reply{Text: surveyQuestions[q], Confidence: confidenceQuestion}
	}

	return Reply{Text: closingLine, Confidence: confidenceClosing}
}

// History returns a copy of the session messages, or nil for unknown sessions.
func (m *Manager) History(sessionID string) []model.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (m *Manager) Context(sessionID string) (Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return Context{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	c := s.context
	c.Symptoms = append([]string(nil), s.context.Symptoms...)
	return c, nil
}

// Cleanup drops sessions idle for longer than maxAge and returns how many
// were removed.
func (m *Manager) Cleanup(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Info("Expired conversations removed", zap.Int("count", removed))
	}
	return removed
}

func extractName(message string) string {
	words := strings.Fields(message)
	for i := 0; i+1 < len(words); i++ {
		if nameMarkers[strings.ToLower(words[i])] {
			return strings.TrimFunc(words[i+1], func(r rune) bool {
				return !unicode.IsLetter(r) && r != '-' && r != '\''
			})
		}
	}
	return ""
}

// Sentiment classifies text as positive, negative or neutral by counting
// keyword hits.
func Sentiment(text string) string {
	lower := strings.ToLower(text)
	pos := countContained(lower, positiveWords)
	neg := countContained(lower, negativeWords)
	switch {
	case pos > neg:
		return "positive"
	case neg > pos:
		return "negative"
	default:
		return "neutral"
	}
}

// Urgency reports "urgent" when text mentions any urgency marker.
func Urgency(text string) string {
	if countContained(strings.ToLower(text), urgentPhrases) > 0 {
		return "urgent"
	}
	return "normal"
}

func countContained(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
