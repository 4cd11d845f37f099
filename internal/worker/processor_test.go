package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"sauti/internal/queue"
	"sauti/internal/speech"
	"sauti/internal/storage"
	"sauti/internal/wer"
	"sauti/pkg/model"
	"sauti/pkg/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockJobStore struct {
	mock.Mock
	saved []model.Job
}

func (m *MockJobStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func (m *MockJobStore) SaveJob(ctx context.Context, job *model.Job) error {
	args := m.Called(ctx, job)
	m.saved = append(m.saved, *job)
	return args.Error(0)
}

type MockAudioStore struct {
	mock.Mock
}

func (m *MockAudioStore) UploadFile(ctx context.Context, key string, body io.Reader, contentType string) error {
	return m.Called(ctx, key, body, contentType).Error(0)
}

func (m *MockAudioStore) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockAudioStore) DeleteFile(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, filename, language string) (*speech.Transcription, error) {
	args := m.Called(ctx, audio, filename, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*speech.Transcription), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyJob(ctx context.Context, job *model.Job) error {
	return m.Called(ctx, job).Error(0)
}

const audioKey = "audio/2024/05/07/job-1.ogg"

func jobBody(t *testing.T, mutate func(*queue.TranscriptionJob)) []byte {
	t.Helper()
	msg := queue.TranscriptionJob{
		JobID:     "job-1",
		Source:    string(model.JobSourceAPI),
		AudioKey:  audioKey,
		Filename:  "clip.ogg",
		Language:  "sw-KE",
		Reference: "nina maumivu ya tumbo",
		CreatedAt: time.Now(),
	}
	if mutate != nil {
		mutate(&msg)
	}
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

type fixture struct {
	jobs     *MockJobStore
	audio    *MockAudioStore
	stt      *MockTranscriber
	notifier *MockNotifier
	proc     *Processor
}

func newFixture() *fixture {
	f := &fixture{
		jobs:     &MockJobStore{},
		audio:    &MockAudioStore{},
		stt:      &MockTranscriber{},
		notifier: &MockNotifier{},
	}
	f.proc = NewProcessor(f.jobs, f.audio, f.stt, wer.New(), WithNotifier(f.notifier))
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.jobs.AssertExpectations(t)
	f.audio.AssertExpectations(t)
	f.stt.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestProcessJob_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.jobs.On("GetJob", ctx, "job-1").Return(&model.Job{ID: "job-1", Source: model.JobSourceAPI, Status: model.JobStatusQueued}, nil)
	f.jobs.On("SaveJob", ctx, mock.Anything).Return(nil)
	f.audio.On("DownloadFile", ctx, audioKey).Return([]byte("OggS"), nil)
	f.audio.On("DeleteFile", ctx, audioKey).Return(nil)
	f.stt.On("Transcribe", ctx, []byte("OggS"), "clip.ogg", "sw-KE").
		Return(&speech.Transcription{Text: "nina maumivu ya kichwa", Confidence: 90, Language: "swahili"}, nil)

	err := f.proc.ProcessJob(ctx, jobBody(t, nil))
	require.NoError(t, err)

	require.Len(t, f.jobs.saved, 2)
	assert.Equal(t, model.JobStatusInProgress, f.jobs.saved[0].Status)

	done := f.jobs.saved[1]
	assert.Equal(t, model.JobStatusDone, done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, "nina maumivu ya kichwa", done.Result.Transcript)
	assert.Equal(t, ReferenceSupplied, done.Result.ReferenceFrom)
	assert.Equal(t, 0.25, done.Result.WER.WER)
	assert.Equal(t, 1, done.Result.WER.Substitutions)
	assert.Equal(t, 0.26, done.Result.AdjustedWER)

	f.assertExpectations(t)
}

func TestProcessJob_KeywordReferenceAndNotify(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.jobs.On("GetJob", ctx, "job-1").Return(nil, fmt.Errorf("%w: job-1", storage.ErrJobNotFound))
	f.jobs.On("SaveJob", ctx, mock.Anything).Return(nil)
	f.audio.On("DownloadFile", ctx, audioKey).Return([]byte("OggS"), nil)
	f.audio.On("DeleteFile", ctx, audioKey).Return(nil)
	f.stt.On("Transcribe", ctx, mock.Anything, "clip.ogg", "sw-KE").
		Return(&speech.Transcription{Text: "nina homa na joto la mwili", Confidence: 100}, nil)
	f.notifier.On("NotifyJob", ctx, mock.MatchedBy(func(j *model.Job) bool {
		return j.ChatID == 42 && j.Status == model.JobStatusDone
	})).Return(nil)

	body := jobBody(t, func(m *queue.TranscriptionJob) {
		m.Source = string(model.JobSourceTelegram)
		m.ChatID = 42
		m.Reference = ""
	})
	require.NoError(t, f.proc.ProcessJob(ctx, body))

	done := f.jobs.saved[len(f.jobs.saved)-1]
	assert.Equal(t, ReferenceKeyword, done.Result.ReferenceFrom)
	assert.Equal(t, "nina homa na joto la mwili", done.Result.Reference)
	assert.Equal(t, 0.0, done.Result.WER.WER)

	f.assertExpectations(t)
}

func TestProcessJob_InvalidPayload(t *testing.T) {
	f := newFixture()

	err := f.proc.ProcessJob(context.Background(), []byte(`{"job_id":""}`))
	assert.ErrorIs(t, err, queue.ErrInvalidPayload)

	f.assertExpectations(t)
}

func TestProcessJob_AlreadyDone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.jobs.On("GetJob", ctx, "job-1").Return(&model.Job{ID: "job-1", Status: model.JobStatusDone}, nil)

	require.NoError(t, f.proc.ProcessJob(ctx, jobBody(t, nil)))
	f.assertExpectations(t)
}

func TestProcessJob_TransientFailureRequeues(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	boom := errors.New("openai unavailable")

	f.jobs.On("GetJob", ctx, "job-1").Return(&model.Job{ID: "job-1", Status: model.JobStatusQueued}, nil)
	f.jobs.On("SaveJob", ctx, mock.Anything).Return(nil)
	f.audio.On("DownloadFile", ctx, audioKey).Return([]byte("OggS"), nil)
	f.stt.On("Transcribe", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

	err := f.proc.ProcessJob(ctx, jobBody(t, nil))
	assert.ErrorIs(t, err, boom)

	last := f.jobs.saved[len(f.jobs.saved)-1]
	assert.Equal(t, model.JobStatusFailed, last.Status)
	assert.Equal(t, 1, last.Attempts)
	require.NotNil(t, last.ErrorText)

	// audio is kept for the retry
	f.audio.AssertNotCalled(t, "DeleteFile", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestProcessJob_LastAttemptGivesUp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.jobs.On("GetJob", ctx, "job-1").Return(&model.Job{
		ID:       "job-1",
		Source:   model.JobSourceTelegram,
		ChatID:   7,
		Status:   model.JobStatusFailed,
		Attempts: model.MaxJobAttempts - 1,
	}, nil)
	f.jobs.On("SaveJob", ctx, mock.Anything).Return(nil)
	f.audio.On("DownloadFile", ctx, audioKey).Return(nil, errors.New("timeout"))
	f.audio.On("DeleteFile", ctx, audioKey).Return(nil)
	f.notifier.On("NotifyJob", ctx, mock.MatchedBy(func(j *model.Job) bool {
		return j.Status == model.JobStatusFailed
	})).Return(nil)

	require.NoError(t, f.proc.ProcessJob(ctx, jobBody(t, nil)), "final failure is acknowledged")

	last := f.jobs.saved[len(f.jobs.saved)-1]
	assert.Equal(t, model.MaxJobAttempts, last.Attempts)
	assert.False(t, last.CanRetry())

	f.assertExpectations(t)
}

func TestProcessJob_PermanentFailureEndsJob(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.jobs.On("GetJob", ctx, "job-1").Return(&model.Job{ID: "job-1", Status: model.JobStatusQueued}, nil)
	f.jobs.On("SaveJob", ctx, mock.Anything).Return(nil)
	f.audio.On("DownloadFile", ctx, audioKey).Return([]byte{}, nil)
	f.audio.On("DeleteFile", ctx, audioKey).Return(nil)
	f.stt.On("Transcribe", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, resilience.Permanent(speech.ErrEmptyAudio))

	require.NoError(t, f.proc.ProcessJob(ctx, jobBody(t, nil)))

	last := f.jobs.saved[len(f.jobs.saved)-1]
	assert.Equal(t, model.JobStatusFailed, last.Status)
	assert.False(t, last.CanRetry())

	f.assertExpectations(t)
}

func TestProcessJob_MissingAudioIsPermanent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.jobs.On("GetJob", ctx, "job-1").Return(&model.Job{ID: "job-1", Status: model.JobStatusQueued}, nil)
	f.jobs.On("SaveJob", ctx, mock.Anything).Return(nil)
	f.audio.On("DownloadFile", ctx, audioKey).Return(nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, audioKey))
	f.audio.On("DeleteFile", ctx, audioKey).Return(nil)

	require.NoError(t, f.proc.ProcessJob(ctx, jobBody(t, nil)))
	f.stt.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}
