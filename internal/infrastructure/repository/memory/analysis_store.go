package memory

import (
	"context"
	"time"

	"github.com/playpulse/playpulse/internal/domain/forecast"
	"github.com/playpulse/playpulse/internal/domain/job"
	basecache "github.com/playpulse/playpulse/internal/platform/cache"
)

// Key namespaces match the redis store so a deployment can switch backends
// without changing how operators inspect entries.
const (
	jobKeyPrefix    = "analysis:job:"
	resultKeyPrefix = "analysis:result:"
)

// AnalysisStore tracks job records and run results in process memory with
// per-entry TTLs. It is the single-node counterpart of the redis-backed
// store.
type AnalysisStore struct {
	entries *basecache.Store
}

func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{entries: basecache.NewStore(0)}
}

var _ job.Store = (*AnalysisStore)(nil)

func (s *AnalysisStore) GetJob(ctx context.Context, key string) (job.Job, bool, error) {
	v, ok := s.entries.Get(ctx, jobKeyPrefix+key)
	if !ok {
		return job.Job{}, false, nil
	}

	j, ok := v.(job.Job)
	if !ok {
		return job.Job{}, false, nil
	}
	return j, true, nil
}

func (s *AnalysisStore) PutJob(ctx context.Context, key string, j job.Job, ttl time.Duration) error {
	s.entries.SetTTL(ctx, jobKeyPrefix+key, j, ttl)
	return nil
}

func (s *AnalysisStore) PutJobIfAbsent(ctx context.Context, key string, j job.Job, ttl time.Duration) (bool, error) {
	return s.entries.SetIfAbsent(ctx, jobKeyPrefix+key, j, ttl), nil
}

// SwapJob replaces the record under key only while it still carries
// expectedID. Losing the race reports false with no error.
func (s *AnalysisStore) SwapJob(ctx context.Context, key string, expectedID string, j job.Job, ttl time.Duration) (bool, error) {
	swapped := s.entries.Update(ctx, jobKeyPrefix+key, ttl, func(current any, exists bool) (any, bool) {
		if !exists {
			return nil, false
		}
		existing, ok := current.(job.Job)
		if !ok || existing.ID != expectedID {
			return nil, false
		}
		return j, true
	})

	return swapped, nil
}

func (s *AnalysisStore) DeleteJob(ctx context.Context, key string) error {
	s.entries.Delete(ctx, jobKeyPrefix+key)
	return nil
}

func (s *AnalysisStore) GetResult(ctx context.Context, key string) (forecast.RunResult, bool, error) {
	v, ok := s.entries.Get(ctx, resultKeyPrefix+key)
	if !ok {
		return forecast.RunResult{}, false, nil
	}

	res, ok := v.(forecast.RunResult)
	if !ok {
		return forecast.RunResult{}, false, nil
	}
	return res, true, nil
}

func (s *AnalysisStore) PutResult(ctx context.Context, key string, res forecast.RunResult, ttl time.Duration) error {
	s.entries.SetTTL(ctx, resultKeyPrefix+key, res, ttl)
	return nil
}

func (s *AnalysisStore) DeleteResult(ctx context.Context, key string) error {
	s.entries.Delete(ctx, resultKeyPrefix+key)
	return nil
}
