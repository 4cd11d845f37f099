package queue

import (
	"errors"
	"time"
)

// ErrInvalidPayload marks messages that can never be processed. They are
// dropped instead of requeued.
var ErrInvalidPayload = errors.New("queue: invalid payload")

// TranscriptionJob asks a worker to transcribe staged audio and score it
type TranscriptionJob struct {
	JobID     string    `json:"job_id"`
	Source    string    `json:"source"`
	SessionID string    `json:"session_id,omitempty"`
	ChatID    int64     `json:"chat_id,omitempty"`
	MessageID int64     `json:"message_id,omitempty"`
	AudioKey  string    `json:"audio_key"`
	Filename  string    `json:"filename"`
	Language  string    `json:"language"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields a worker cannot do without
func (j *TranscriptionJob) Validate() error {
	switch {
	case j.JobID == "":
		return errors.New("job_id is required")
	case j.AudioKey == "":
		return errors.New("audio_key is required")
	}
	return nil
}
