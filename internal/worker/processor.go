package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sauti/internal/metrics"
	"sauti/internal/queue"
	"sauti/internal/speech"
	"sauti/internal/storage"
	"sauti/internal/tracker"
	"sauti/internal/wer"
	"sauti/pkg/logger"
	"sauti/pkg/model"
	"sauti/pkg/resilience"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Where the reference text of an evaluation came from
const (
	ReferenceSupplied = "supplied"
	ReferenceKeyword  = "keyword"
)

// Notifier delivers finished jobs back to the channel they came from
type Notifier interface {
	NotifyJob(ctx context.Context, job *model.Job) error
}

type Option func(*Processor)

// WithNotifier enables delivery of Telegram-sourced results
func WithNotifier(n Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

// WithLimiter throttles outbound transcription calls
func WithLimiter(l *rate.Limiter) Option {
	return func(p *Processor) { p.limiter = l }
}

type Processor struct {
	jobs     storage.JobStore
	audio    storage.AudioStore
	stt      speech.Transcriber
	calc     *wer.Calculator
	notifier Notifier
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewProcessor creates a new worker processor
func NewProcessor(
	jobs storage.JobStore,
	audio storage.AudioStore,
	stt speech.Transcriber,
	calc *wer.Calculator,
	opts ...Option,
) *Processor {
	p := &Processor{
		jobs:  jobs,
		audio: audio,
		stt:   stt,
		calc:  calc,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessJob handles one queued message. A nil return acknowledges the
// message, including jobs that failed for good. A non-nil return requeues it
// unless it wraps queue.ErrInvalidPayload.
func (p *Processor) ProcessJob(ctx context.Context, body []byte) error {
	msg, err := queue.DecodeJob(body)
	if err != nil {
		return err
	}

	logger.Info("Processing transcription job",
		zap.String("job_id", msg.JobID),
		zap.String("source", msg.Source))

	job, err := p.loadJob(ctx, msg)
	if err != nil {
		return err
	}
	if job.IsCompleted() {
		logger.Info("Job already finished, skipping",
			zap.String("job_id", job.ID),
			zap.String("status", string(job.Status)))
		return nil
	}

	job.SetInProgress()
	if err := p.jobs.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job status", zap.Error(err))
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	audio, err := p.audio.DownloadFile(ctx, msg.AudioKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return p.fail(ctx, job, msg, resilience.Permanent(err))
		}
		return p.fail(ctx, job, msg, fmt.Errorf("failed to download audio: %w", err))
	}

	tr, err := p.stt.Transcribe(ctx, audio, msg.Filename, msg.Language)
	if err != nil {
		return p.fail(ctx, job, msg, err)
	}

	job.SetCompleted(p.evaluate(tr, msg.Reference))
	if err := p.jobs.SaveJob(ctx, job); err != nil {
		// result stays recomputable from the staged audio
		return fmt.Errorf("failed to save job result: %w", err)
	}

	p.cleanup(ctx, msg.AudioKey)
	p.notify(ctx, job)

	metrics.Jobs.WithLabelValues(string(model.JobStatusDone)).Inc()
	logger.Info("Job completed successfully",
		zap.String("job_id", job.ID),
		zap.Float64("wer", job.Result.WER.WER),
		zap.Float64("adjusted_wer", job.Result.AdjustedWER))

	return nil
}

func (p *Processor) loadJob(ctx context.Context, msg *queue.TranscriptionJob) (*model.Job, error) {
	job, err := p.jobs.GetJob(ctx, msg.JobID)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, storage.ErrJobNotFound) {
		return nil, err
	}

	// state expired or was never written; rebuild it from the message
	now := p.now()
	return &model.Job{
		ID:        msg.JobID,
		Source:    model.JobSource(msg.Source),
		SessionID: msg.SessionID,
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
		AudioKey:  msg.AudioKey,
		Language:  msg.Language,
		Reference: msg.Reference,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// evaluate scores the transcript against the supplied reference, or the
// keyword reference when none was supplied.
func (p *Processor) evaluate(tr *speech.Transcription, reference string) *model.Evaluation {
	from := ReferenceSupplied
	if reference == "" {
		reference = tracker.Reference(tr.Text)
		from = ReferenceKeyword
	}

	result := p.calc.Detailed(reference, tr.Text)
	adjusted := p.calc.ConfidenceAdjusted(reference, tr.Text, float64(tr.Confidence))

	metrics.WERComputed.WithLabelValues("worker").Observe(result.WER)
	metrics.EditOperations.WithLabelValues(string(wer.OpSubstitution)).Add(float64(result.Substitutions))
	metrics.EditOperations.WithLabelValues(string(wer.OpInsertion)).Add(float64(result.Insertions))
	metrics.EditOperations.WithLabelValues(string(wer.OpDeletion)).Add(float64(result.Deletions))

	return &model.Evaluation{
		Transcript:    tr.Text,
		Confidence:    tr.Confidence,
		Language:      tr.Language,
		Duration:      tr.Duration,
		Reference:     reference,
		WER:           result,
		AdjustedWER:   wer.Round(adjusted),
		ReferenceFrom: from,
	}
}

// fail records the failure. Transient failures are requeued until the job
// runs out of attempts; permanent ones end the job immediately.
func (p *Processor) fail(ctx context.Context, job *model.Job, msg *queue.TranscriptionJob, cause error) error {
	logger.Error("Job processing error",
		zap.String("job_id", job.ID),
		zap.Error(cause))

	job.SetError(cause.Error())
	job.IncrementAttempts()
	if resilience.IsPermanent(cause) {
		job.Attempts = max(job.Attempts, model.MaxJobAttempts)
	}

	if err := p.jobs.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job error", zap.Error(err))
	}

	if job.CanRetry() {
		metrics.Jobs.WithLabelValues("retried").Inc()
		return cause
	}

	metrics.Jobs.WithLabelValues(string(model.JobStatusFailed)).Inc()
	p.cleanup(ctx, msg.AudioKey)
	p.notify(ctx, job)
	return nil
}

func (p *Processor) cleanup(ctx context.Context, key string) {
	if err := p.audio.DeleteFile(ctx, key); err != nil {
		logger.Warn("Failed to delete staged audio", zap.String("key", key), zap.Error(err))
	}
}

func (p *Processor) notify(ctx context.Context, job *model.Job) {
	if p.notifier == nil || job.Source != model.JobSourceTelegram {
		return
	}
	if err := p.notifier.NotifyJob(ctx, job); err != nil {
		// Don't return error - job is finished anyway
		logger.Error("Failed to send result to user", zap.Error(err))
	}
}
