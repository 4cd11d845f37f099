package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"sauti/pkg/cache"
	"sauti/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCacheJobStore_SaveAndGet(t *testing.T) {
	store := NewCacheJobStore(cache.NewMemoryCache(time.Hour), time.Hour)
	ctx := context.Background()

	job := &model.Job{
		ID:       "job-1",
		Source:   model.JobSourceAPI,
		AudioKey: "audio/2024/05/07/job-1.ogg",
		Status:   model.JobStatusQueued,
	}
	require.NoError(t, store.SaveJob(ctx, job))

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, got.Status)
	assert.Equal(t, job.AudioKey, got.AudioKey)
}

func TestCacheJobStore_Missing(t *testing.T) {
	store := NewCacheJobStore(cache.NewMemoryCache(time.Hour), time.Hour)

	_, err := store.GetJob(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *mockCache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockCache) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) Close() error {
	return m.Called().Error(0)
}

func TestCacheJobStore_UsesTTLAndKey(t *testing.T) {
	c := &mockCache{}
	store := NewCacheJobStore(c, 6*time.Hour)
	ctx := context.Background()
	job := &model.Job{ID: "job-9"}

	c.On("SetWithTTL", ctx, "job:job-9", job, 6*time.Hour).Return(nil)
	require.NoError(t, store.SaveJob(ctx, job))

	c.On("Get", ctx, "job:job-9", mock.AnythingOfType("*model.Job")).Return(errors.New("connection refused"))
	_, err := store.GetJob(ctx, "job-9")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrJobNotFound)

	c.AssertExpectations(t)
}
