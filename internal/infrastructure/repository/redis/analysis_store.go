// Package redis implements the job store on a shared redis deployment so
// multiple orchestrator replicas agree on who owns a run key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/playpulse/playpulse/internal/domain/forecast"
	"github.com/playpulse/playpulse/internal/domain/job"
)

const (
	jobKeyPrefix    = "analysis:job:"
	resultKeyPrefix = "analysis:result:"
)

// errSwapConflict aborts a watch transaction when the stored record no longer
// carries the expected owner id.
var errSwapConflict = errors.New("job record changed owner")

type AnalysisStore struct {
	client *redis.Client
}

func NewAnalysisStore(client *redis.Client) *AnalysisStore {
	return &AnalysisStore{client: client}
}

var _ job.Store = (*AnalysisStore)(nil)

func jobStoreKey(key string) string    { return jobKeyPrefix + key }
func resultStoreKey(key string) string { return resultKeyPrefix + key }

func (s *AnalysisStore) GetJob(ctx context.Context, key string) (job.Job, bool, error) {
	raw, err := s.client.Get(ctx, jobStoreKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return job.Job{}, false, nil
	}
	if err != nil {
		return job.Job{}, false, fmt.Errorf("get job record: %w", err)
	}

	var j job.Job
	if err := sonic.Unmarshal(raw, &j); err != nil {
		return job.Job{}, false, fmt.Errorf("decode job record: %w", err)
	}

	return j, true, nil
}

func (s *AnalysisStore) PutJob(ctx context.Context, key string, j job.Job, ttl time.Duration) error {
	payload, err := sonic.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job record: %w", err)
	}
	if err := s.client.Set(ctx, jobStoreKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store job record: %w", err)
	}

	return nil
}

func (s *AnalysisStore) PutJobIfAbsent(ctx context.Context, key string, j job.Job, ttl time.Duration) (bool, error) {
	payload, err := sonic.Marshal(j)
	if err != nil {
		return false, fmt.Errorf("encode job record: %w", err)
	}

	inserted, err := s.client.SetNX(ctx, jobStoreKey(key), payload, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim job key: %w", err)
	}

	return inserted, nil
}

// SwapJob replaces the record under key only while it still carries
// expectedID, using WATCH so a concurrent writer voids the attempt instead of
// being overwritten. Losing the race reports false with no error.
func (s *AnalysisStore) SwapJob(ctx context.Context, key string, expectedID string, j job.Job, ttl time.Duration) (bool, error) {
	payload, err := sonic.Marshal(j)
	if err != nil {
		return false, fmt.Errorf("encode job record: %w", err)
	}

	storeKey := jobStoreKey(key)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, storeKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return errSwapConflict
		}
		if err != nil {
			return err
		}

		var current job.Job
		if err := sonic.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode job record: %w", err)
		}
		if current.ID != expectedID {
			return errSwapConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, storeKey, payload, ttl)
			return nil
		})
		return err
	}, storeKey)

	switch {
	case errors.Is(err, errSwapConflict), errors.Is(err, redis.TxFailedErr):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("swap job record: %w", err)
	}

	return true, nil
}

func (s *AnalysisStore) DeleteJob(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, jobStoreKey(key)).Err(); err != nil {
		return fmt.Errorf("delete job record: %w", err)
	}

	return nil
}

func (s *AnalysisStore) GetResult(ctx context.Context, key string) (forecast.RunResult, bool, error) {
	raw, err := s.client.Get(ctx, resultStoreKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return forecast.RunResult{}, false, nil
	}
	if err != nil {
		return forecast.RunResult{}, false, fmt.Errorf("get run result: %w", err)
	}

	var res forecast.RunResult
	if err := sonic.Unmarshal(raw, &res); err != nil {
		return forecast.RunResult{}, false, fmt.Errorf("decode run result: %w", err)
	}

	return res, true, nil
}

func (s *AnalysisStore) PutResult(ctx context.Context, key string, res forecast.RunResult, ttl time.Duration) error {
	payload, err := sonic.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode run result: %w", err)
	}
	if err := s.client.Set(ctx, resultStoreKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store run result: %w", err)
	}

	return nil
}

func (s *AnalysisStore) DeleteResult(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, resultStoreKey(key)).Err(); err != nil {
		return fmt.Errorf("delete run result: %w", err)
	}

	return nil
}
