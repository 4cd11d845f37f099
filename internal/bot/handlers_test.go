package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sauti/internal/conversation"
	"sauti/internal/survey"
	"sauti/internal/tracker"
	"sauti/internal/wer"
	"sauti/internal/worker"
	"sauti/pkg/cache"
	"sauti/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCache mocks RedisCache
type MockCache struct {
	mock.Mock
	data map[string]interface{}
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string]interface{}),
	}
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	if args.Error(0) == nil {
		m.data[key] = value
	}
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	if args.Error(0) == nil {
		delete(m.data, key)
	}
	return args.Error(0)
}

func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, sub worker.Submission) (*model.Job, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func newTestBot(c cache.Cache, sub JobSubmitter) *Bot {
	return &Bot{
		survey:    survey.NewService(conversation.NewManager(), tracker.New()),
		cache:     c,
		submitter: sub,
		language:  conversation.LanguageSwahili,
	}
}

func TestBot_SessionFor(t *testing.T) {
	tests := []struct {
		name     string
		chatID   int64
		setup    func(*MockCache)
		expected string
		ok       bool
	}{
		{
			name:   "chat has a session",
			chatID: 123,
			setup: func(mc *MockCache) {
				mc.On("Get", mock.Anything, "chat:session:123", mock.Anything).
					Run(func(args mock.Arguments) {
						dest := args.Get(2).(*string)
						*dest = "session-1"
					}).
					Return(nil)
			},
			expected: "session-1",
			ok:       true,
		},
		{
			name:   "key not found",
			chatID: 456,
			setup: func(mc *MockCache) {
				mc.On("Get", mock.Anything, "chat:session:456", mock.Anything).
					Return(fmt.Errorf("%w: chat:session:456", cache.ErrNotFound))
			},
		},
		{
			name:   "cache unavailable",
			chatID: 789,
			setup: func(mc *MockCache) {
				mc.On("Get", mock.Anything, "chat:session:789", mock.Anything).
					Return(errors.New("connection refused"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCache := NewMockCache()
			tt.setup(mockCache)

			b := newTestBot(mockCache, nil)

			sessionID, ok := b.sessionFor(context.Background(), tt.chatID)
			assert.Equal(t, tt.expected, sessionID)
			assert.Equal(t, tt.ok, ok)
			mockCache.AssertExpectations(t)
		})
	}
}

func TestBot_StartSessionStoresBinding(t *testing.T) {
	mockCache := NewMockCache()
	mockCache.On("SetWithTTL", mock.Anything, "chat:session:42", mock.AnythingOfType("string"), 30*24*time.Hour).Return(nil)

	b := newTestBot(mockCache, nil)
	greeting, err := b.startSession(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, conversation.Greeting(conversation.LanguageSwahili), greeting)
	assert.NotEmpty(t, mockCache.data["chat:session:42"])
	mockCache.AssertExpectations(t)
}

func TestBot_StopSession(t *testing.T) {
	mockCache := NewMockCache()
	mockCache.data["chat:session:42"] = "s"
	mockCache.On("Delete", mock.Anything, "chat:session:42").Return(nil)

	b := newTestBot(mockCache, nil)
	b.stopSession(context.Background(), 42)

	assert.NotContains(t, mockCache.data, "chat:session:42")
	mockCache.AssertExpectations(t)
}

func TestBot_RespondAndReport(t *testing.T) {
	b := newTestBot(cache.NewMemoryCache(time.Hour), nil)
	ctx := context.Background()

	reply, err := b.respond(ctx, 7, "nina homa tangu jana")
	require.NoError(t, err)
	assert.Equal(t, notStartedText, reply)
	assert.Equal(t, notStartedText, b.werReport(ctx, 7))

	_, err = b.startSession(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Bado hakuna mazungumzo ya kupima.", b.werReport(ctx, 7))

	reply, err = b.respond(ctx, 7, "nina homa tangu jana")
	require.NoError(t, err)
	assert.Contains(t, reply, "homa hii")

	assert.Equal(t, "WER ya kikao: 45.0% (jozi 1 za ujumbe)", b.werReport(ctx, 7))
}

func TestBot_SubmitVoice(t *testing.T) {
	sub := &MockSubmitter{}
	b := newTestBot(cache.NewMemoryCache(time.Hour), sub)
	ctx := context.Background()

	sub.On("Submit", ctx, mock.MatchedBy(func(s worker.Submission) bool {
		return s.Source == model.JobSourceTelegram &&
			s.ChatID == 9 &&
			s.MessageID == 100 &&
			s.Reference == "nina homa" &&
			s.Filename == "voice-100.ogg" &&
			s.SessionID == ""
	})).Return(&model.Job{ID: "job-1"}, nil)

	require.NoError(t, b.submitVoice(ctx, 9, 100, []byte("OggS"), "audio/ogg", "nina homa"))
	sub.AssertExpectations(t)
}

func TestBot_SubmitVoiceError(t *testing.T) {
	sub := &MockSubmitter{}
	b := newTestBot(cache.NewMemoryCache(time.Hour), sub)

	sub.On("Submit", mock.Anything, mock.Anything).Return(nil, errors.New("queue connection failed"))

	err := b.submitVoice(context.Background(), 9, 100, []byte("OggS"), "audio/ogg", "")
	assert.Error(t, err)
}

func TestFormatJob(t *testing.T) {
	calc := wer.New()
	result := calc.Detailed("nina maumivu ya tumbo", "nina maumivu ya kichwa")

	job := &model.Job{
		Status: model.JobStatusDone,
		Result: &model.Evaluation{
			Transcript:  "nina maumivu ya kichwa",
			Reference:   "nina maumivu ya tumbo",
			Confidence:  90,
			WER:         result,
			AdjustedWER: 0.26,
		},
	}

	text := formatJob(job)
	assert.Contains(t, text, "WER: 0.25 (iliyorekebishwa 0.26, uhakika 90%)")
	assert.Contains(t, text, "Ubadilishaji 1, uongezaji 0, ufutaji 0")
	assert.Contains(t, text, "tumbo → kichwa")

	failed := &model.Job{Status: model.JobStatusFailed}
	assert.Contains(t, formatJob(failed), "Samahani")
}
