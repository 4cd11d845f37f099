package model

import (
	"time"

	"sauti/internal/wer"
)

// Message roles
const (
	RoleUser   = wer.RoleUser
	RoleDoctor = wer.RoleDoctor
)

// MaxJobAttempts bounds how often a failed job is retried
const MaxJobAttempts = 3

// Message is one entry of a survey conversation
type Message struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence int       `json:"confidence,omitempty"`
}

// Turns converts a history into the form the WER engine scores
func Turns(messages []Message) []wer.Turn {
	turns := make([]wer.Turn, len(messages))
	for i, m := range messages {
		turns[i] = wer.Turn{Role: m.Role, Content: m.Content}
	}
	return turns
}

// JobStatus represents the status of a transcription job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// JobSource tells the worker where to deliver the result
type JobSource string

const (
	JobSourceAPI      JobSource = "api"
	JobSourceTelegram JobSource = "telegram"
)

// Job tracks one audio transcription and its WER evaluation
type Job struct {
	ID        string      `json:"id"`
	Source    JobSource   `json:"source"`
	SessionID string      `json:"session_id,omitempty"`
	ChatID    int64       `json:"chat_id,omitempty"`
	MessageID int64       `json:"message_id,omitempty"`
	AudioKey  string      `json:"audio_key"`
	Language  string      `json:"language"`
	Reference string      `json:"reference,omitempty"`
	Status    JobStatus   `json:"status"`
	Attempts  int         `json:"attempts"`
	ErrorText *string     `json:"error_text,omitempty"`
	Result    *Evaluation `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Evaluation is the outcome of a finished job
type Evaluation struct {
	Transcript    string     `json:"transcript"`
	Confidence    int        `json:"confidence"`
	Language      string     `json:"language,omitempty"`
	Duration      float64    `json:"duration,omitempty"`
	Reference     string     `json:"reference"`
	WER           wer.Result `json:"wer"`
	AdjustedWER   float64    `json:"adjusted_wer"`
	ReferenceFrom string     `json:"reference_from"`
}

// IsCompleted returns true if the job is in a final state
func (j *Job) IsCompleted() bool {
	return j.Status == JobStatusDone || (j.Status == JobStatusFailed && !j.CanRetry())
}

// CanRetry returns true if the job can be retried
func (j *Job) CanRetry() bool {
	return j.Status == JobStatusFailed && j.Attempts < MaxJobAttempts
}

// IncrementAttempts increases the attempt counter
func (j *Job) IncrementAttempts() {
	j.Attempts++
}

// SetError sets the job status to failed with error message
func (j *Job) SetError(errorText string) {
	j.Status = JobStatusFailed
	j.ErrorText = &errorText
	j.UpdatedAt = time.Now()
}

// SetCompleted stores the evaluation and marks the job done
func (j *Job) SetCompleted(result *Evaluation) {
	j.Status = JobStatusDone
	j.Result = result
	j.ErrorText = nil
	j.UpdatedAt = time.Now()
}

// SetInProgress marks the job as picked up by a worker
func (j *Job) SetInProgress() {
	j.Status = JobStatusInProgress
	j.UpdatedAt = time.Now()
}
