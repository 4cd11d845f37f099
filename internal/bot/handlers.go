package bot

import (
	"context"
	"fmt"
	"io"

	"sauti/internal/worker"
	"sauti/pkg/logger"
	"sauti/pkg/model"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"
)

const (
	notStartedText = "Tuma /start kuanza utafiti wa afya."
	stoppedText    = "Utafiti umesimamishwa. Tuma /start kuanza upya."
	queuedText     = "Ujumbe wa sauti umepokelewa. Ninauchakata..."
	failedText     = "Samahani, kuna hitilafu. Tafadhali jaribu tena."
)

func (b *Bot) handleText(c tele.Context) error {
	reply, err := b.respond(context.Background(), c.Chat().ID, c.Text())
	if err != nil {
		logger.Error("Failed to process message",
			zap.Int64("chat_id", c.Chat().ID),
			zap.Error(err))
		return c.Send(failedText)
	}
	return c.Send(reply)
}

// respond runs a participant text through the survey session of the chat
func (b *Bot) respond(ctx context.Context, chatID int64, text string) (string, error) {
	sessionID, ok := b.sessionFor(ctx, chatID)
	if !ok {
		return notStartedText, nil
	}

	ex, err := b.survey.Message(ctx, "telegram", sessionID, text, b.language)
	if err != nil {
		return "", err
	}
	return ex.Reply.Content, nil
}

func (b *Bot) handleWER(c tele.Context) error {
	return c.Send(b.werReport(context.Background(), c.Chat().ID))
}

func (b *Bot) werReport(ctx context.Context, chatID int64) string {
	sessionID, ok := b.sessionFor(ctx, chatID)
	if !ok {
		return notStartedText
	}

	res := b.survey.SessionWER(sessionID)
	if res.TotalMessages == 0 {
		return "Bado hakuna mazungumzo ya kupima."
	}
	return fmt.Sprintf("WER ya kikao: %.1f%% (jozi %d za ujumbe)", res.AverageWER*100, res.TotalMessages)
}

func (b *Bot) handleVoice(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Voice == nil {
		return c.Reply(failedText)
	}

	rc, err := b.tb.File(&msg.Voice.File)
	if err != nil {
		logger.Error("Failed to download voice message", zap.Error(err))
		return c.Reply(failedText)
	}
	defer rc.Close()

	audio, err := io.ReadAll(rc)
	if err != nil {
		logger.Error("Failed to read voice message", zap.Error(err))
		return c.Reply(failedText)
	}

	mime := msg.Voice.MIME
	if mime == "" {
		mime = "audio/ogg"
	}

	if err := b.submitVoice(context.Background(), msg.Chat.ID, int64(msg.ID), audio, mime, msg.Caption); err != nil {
		logger.Error("Failed to submit voice message",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err))
		return c.Reply(failedText)
	}

	return c.Reply(queuedText)
}

// submitVoice enqueues a voice message. A caption, when present, is used as
// the reference text.
func (b *Bot) submitVoice(ctx context.Context, chatID, messageID int64, audio []byte, mime, caption string) error {
	sessionID, _ := b.sessionFor(ctx, chatID)

	job, err := b.submitter.Submit(ctx, worker.Submission{
		Source:      model.JobSourceTelegram,
		SessionID:   sessionID,
		ChatID:      chatID,
		MessageID:   messageID,
		Audio:       audio,
		Filename:    fmt.Sprintf("voice-%d.ogg", messageID),
		ContentType: mime,
		Language:    b.language,
		Reference:   caption,
	})
	if err != nil {
		return err
	}

	logger.Info("Voice job created",
		zap.String("job_id", job.ID),
		zap.Int64("chat_id", chatID))
	return nil
}
