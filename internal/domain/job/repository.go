package job

import (
	"context"
	"time"

	"github.com/playpulse/playpulse/internal/domain/forecast"
)

// Store tracks job records and completed results under per-key TTLs. Both
// record kinds expire independently; an expired result makes the key absent
// again for purposes of starting a fresh run.
//
// PutJobIfAbsent is the atomic check-and-set the orchestrator relies on to
// keep at most one running job per key under concurrent starts. SwapJob is
// the matching compare-and-swap for taking over a key whose previous run
// ended failed: the write succeeds only while the stored record still carries
// expectedID.
type Store interface {
	GetJob(ctx context.Context, key string) (Job, bool, error)
	PutJob(ctx context.Context, key string, j Job, ttl time.Duration) error
	PutJobIfAbsent(ctx context.Context, key string, j Job, ttl time.Duration) (bool, error)
	SwapJob(ctx context.Context, key string, expectedID string, j Job, ttl time.Duration) (bool, error)
	DeleteJob(ctx context.Context, key string) error

	GetResult(ctx context.Context, key string) (forecast.RunResult, bool, error)
	PutResult(ctx context.Context, key string, res forecast.RunResult, ttl time.Duration) error
	DeleteResult(ctx context.Context, key string) error
}
