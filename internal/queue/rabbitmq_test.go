package queue

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAcknowledger struct {
	mock.Mock
}

func (m *mockAcknowledger) Ack(tag uint64, multiple bool) error {
	return m.Called(tag, multiple).Error(0)
}

func (m *mockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	return m.Called(tag, multiple, requeue).Error(0)
}

func (m *mockAcknowledger) Reject(tag uint64, requeue bool) error {
	return m.Called(tag, requeue).Error(0)
}

func TestDecodeJob(t *testing.T) {
	body := []byte(`{"job_id":"j1","source":"api","audio_key":"audio/2024/05/01/j1.wav","filename":"a.wav","language":"sw-KE","created_at":"2024-05-01T10:00:00Z"}`)

	job, err := DecodeJob(body)
	require.NoError(t, err)
	assert.Equal(t, "j1", job.JobID)
	assert.Equal(t, "audio/2024/05/01/j1.wav", job.AudioKey)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), job.CreatedAt)
}

func TestDecodeJob_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not json"},
		{name: "missing id", body: `{"audio_key":"k"}`},
		{name: "missing audio", body: `{"job_id":"j1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJob([]byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		setup func(m *mockAcknowledger)
	}{
		{
			name:  "success acks",
			setup: func(m *mockAcknowledger) { m.On("Ack", uint64(7), false).Return(nil) },
		},
		{
			name:  "invalid payload is dropped",
			err:   fmt.Errorf("%w: bad json", ErrInvalidPayload),
			setup: func(m *mockAcknowledger) { m.On("Nack", uint64(7), false, false).Return(nil) },
		},
		{
			name:  "transient failure is requeued",
			err:   errors.New("s3 unavailable"),
			setup: func(m *mockAcknowledger) { m.On("Nack", uint64(7), false, true).Return(nil) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockAcknowledger{}
			tt.setup(m)

			settle(m, 7, tt.err)

			m.AssertExpectations(t)
		})
	}
}
