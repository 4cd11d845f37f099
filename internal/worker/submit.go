package worker

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"sauti/internal/queue"
	"sauti/internal/speech"
	"sauti/internal/storage"
	"sauti/pkg/logger"
	"sauti/pkg/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submission is an audio clip waiting to be transcribed and scored
type Submission struct {
	Source      model.JobSource
	SessionID   string
	ChatID      int64
	MessageID   int64
	Audio       []byte
	Filename    string
	ContentType string
	Language    string
	Reference   string
}

// Submitter stages audio and enqueues transcription jobs
type Submitter struct {
	audio storage.AudioStore
	jobs  storage.JobStore
	pub   queue.Publisher
	now   func() time.Time
}

func NewSubmitter(audio storage.AudioStore, jobs storage.JobStore, pub queue.Publisher) *Submitter {
	return &Submitter{audio: audio, jobs: jobs, pub: pub, now: time.Now}
}

// Submit uploads the audio under audio/YYYY/MM/DD/<id><ext>, records the job
// as queued and publishes it.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (*model.Job, error) {
	if err := speech.ValidateAudio(sub.Audio); err != nil {
		return nil, err
	}

	now := s.now()
	id := uuid.NewString()
	key := storage.GenerateKey(id, filepath.Ext(sub.Filename), now)

	if err := s.audio.UploadFile(ctx, key, bytes.NewReader(sub.Audio), sub.ContentType); err != nil {
		return nil, fmt.Errorf("failed to stage audio: %w", err)
	}

	job := &model.Job{
		ID:        id,
		Source:    sub.Source,
		SessionID: sub.SessionID,
		ChatID:    sub.ChatID,
		MessageID: sub.MessageID,
		AudioKey:  key,
		Language:  sub.Language,
		Reference: sub.Reference,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	err := s.pub.PublishJob(ctx, &queue.TranscriptionJob{
		JobID:     id,
		Source:    string(sub.Source),
		SessionID: sub.SessionID,
		ChatID:    sub.ChatID,
		MessageID: sub.MessageID,
		AudioKey:  key,
		Filename:  sub.Filename,
		Language:  sub.Language,
		Reference: sub.Reference,
		CreatedAt: now,
	})
	if err != nil {
		job.SetError("failed to enqueue job")
		job.Attempts = model.MaxJobAttempts
		if saveErr := s.jobs.SaveJob(ctx, job); saveErr != nil {
			logger.Error("Failed to mark job as failed", zap.Error(saveErr))
		}
		return nil, fmt.Errorf("failed to publish job: %w", err)
	}

	logger.Info("Job published to queue",
		zap.String("job_id", id),
		zap.String("source", string(sub.Source)),
		zap.String("audio_key", key))

	return job, nil
}
