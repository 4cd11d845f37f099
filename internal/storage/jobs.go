package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sauti/pkg/cache"
	"sauti/pkg/model"
)

// ErrJobNotFound is returned for unknown or expired jobs
var ErrJobNotFound = errors.New("storage: job not found")

// JobStore keeps transcription job state between the API, bot and worker
type JobStore interface {
	GetJob(ctx context.Context, id string) (*model.Job, error)
	SaveJob(ctx context.Context, job *model.Job) error
}

var _ JobStore = (*CacheJobStore)(nil)

// CacheJobStore stores jobs as JSON under job:<id> with a TTL
type CacheJobStore struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewCacheJobStore(c cache.Cache, ttl time.Duration) *CacheJobStore {
	return &CacheJobStore{cache: c, ttl: ttl}
}

func (s *CacheJobStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := s.cache.Get(ctx, cache.JobCacheKey(id), &job); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return &job, nil
}

func (s *CacheJobStore) SaveJob(ctx context.Context, job *model.Job) error {
	if err := s.cache.SetWithTTL(ctx, cache.JobCacheKey(job.ID), job, s.ttl); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}
