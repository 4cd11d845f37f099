package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sauti/internal/conversation"
	"sauti/internal/survey"
	"sauti/internal/worker"
	"sauti/pkg/cache"
	"sauti/pkg/logger"
	"sauti/pkg/model"

	tele "gopkg.in/telebot.v4"

	"go.uber.org/zap"
)

const sessionTTL = 30 * 24 * time.Hour

// JobSubmitter enqueues voice messages for transcription
type JobSubmitter interface {
	Submit(ctx context.Context, sub worker.Submission) (*model.Job, error)
}

type Bot struct {
	tb        *tele.Bot
	survey    *survey.Service
	cache     cache.Cache
	submitter JobSubmitter
	language  string
}

func NewBot(token string, svc *survey.Service, redisCache cache.Cache, submitter JobSubmitter) (*Bot, error) {
	logger.Info("Starting bot initialization")

	if token == "" {
		return nil, errors.New("telegram token is required")
	}

	pref := tele.Settings{
		Token: token,
		Poller: &tele.LongPoller{
			Timeout: 10 * time.Second,
		},
		OnError: func(err error, c tele.Context) {
			logger.Error("Telegram handler error", zap.Error(err))
		},
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created successfully")

	bot := &Bot{
		tb:        tb,
		survey:    svc,
		cache:     redisCache,
		submitter: submitter,
		language:  conversation.LanguageSwahili,
	}

	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle("/stop", b.handleStop)
	b.tb.Handle("/wer", b.handleWER)
	b.tb.Handle(tele.OnText, b.handleText)
	b.tb.Handle(tele.OnVoice, b.handleVoice)
}

// handleStart opens a survey session for the chat
func (b *Bot) handleStart(c tele.Context) error {
	greeting, err := b.startSession(context.Background(), c.Chat().ID)
	if err != nil {
		logger.Error("Failed to start session", zap.Error(err))
	}
	return c.Send(greeting)
}

// handleStop ends the survey session of the chat
func (b *Bot) handleStop(c tele.Context) error {
	b.stopSession(context.Background(), c.Chat().ID)
	return c.Send(stoppedText)
}

func (b *Bot) startSession(ctx context.Context, chatID int64) (string, error) {
	sessionID, greeting := b.survey.Start(b.language)

	// Session binding lives in Redis with a 30 day TTL
	key := cache.ChatSessionCacheKey(chatID)
	if err := b.cache.SetWithTTL(ctx, key, sessionID, sessionTTL); err != nil {
		return greeting.Content, fmt.Errorf("failed to save chat session: %w", err)
	}

	logger.Info("Survey session started for chat",
		zap.Int64("chat_id", chatID),
		zap.String("session_id", sessionID))

	return greeting.Content, nil
}

func (b *Bot) stopSession(ctx context.Context, chatID int64) {
	key := cache.ChatSessionCacheKey(chatID)
	if err := b.cache.Delete(ctx, key); err != nil {
		logger.Error("Failed to delete chat session from cache", zap.Error(err))
	}

	logger.Info("Survey session stopped for chat", zap.Int64("chat_id", chatID))
}

// sessionFor returns the survey session bound to the chat, if any
func (b *Bot) sessionFor(ctx context.Context, chatID int64) (string, bool) {
	var sessionID string
	if err := b.cache.Get(ctx, cache.ChatSessionCacheKey(chatID), &sessionID); err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("Failed to read chat session", zap.Error(err))
		}
		return "", false
	}
	return sessionID, sessionID != ""
}

func (b *Bot) Start() {
	logger.Info("Bot started")
	b.tb.Start()
}

func (b *Bot) Stop() {
	b.tb.Stop()
	logger.Info("Bot stopped")
}
