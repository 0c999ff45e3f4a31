package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/panjf2000/ants/v2"

	"github.com/playpulse/playpulse/internal/domain/forecast"
	"github.com/playpulse/playpulse/internal/domain/job"
	"github.com/playpulse/playpulse/internal/platform/id"
	"github.com/playpulse/playpulse/internal/platform/logging"
)

// AnalysisRunner executes one full analysis run. Implemented by
// AnalysisPipelineService; stubbed in tests.
type AnalysisRunner interface {
	Run(ctx context.Context, query string, maxMatches int, progress func(string)) (forecast.RunResult, error)
}

type AnalysisRequest struct {
	Player     string `json:"player" validate:"required"`
	MaxMatches int    `json:"max_matches" validate:"gte=1,lte=50"`
}

// AnalysisStatus is the structured outcome every caller receives: one of the
// job states (or absent), plus whichever of progress, error, and result the
// state carries.
type AnalysisStatus struct {
	State    job.State           `json:"state"`
	JobID    string              `json:"job_id,omitempty"`
	Progress string              `json:"progress,omitempty"`
	Error    string              `json:"error,omitempty"`
	Result   *forecast.RunResult `json:"result,omitempty"`
}

type AnalysisOrchestratorConfig struct {
	JobTTL    time.Duration
	ResultTTL time.Duration

	// TaskRetries bounds whole-pipeline retries on unexpected errors.
	// Zero disables retries; a negative value selects the default of 2.
	TaskRetries int

	RetryDelay        time.Duration
	WorkerPoolSize    int
	DefaultMaxMatches int
}

func (c AnalysisOrchestratorConfig) withDefaults() AnalysisOrchestratorConfig {
	if c.JobTTL <= 0 {
		c.JobTTL = 10 * time.Minute
	}
	if c.ResultTTL <= 0 {
		c.ResultTTL = 24 * time.Hour
	}
	if c.TaskRetries < 0 {
		c.TaskRetries = 2
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 8
	}
	if c.DefaultMaxMatches <= 0 {
		c.DefaultMaxMatches = 5
	}
	return c
}

var jobKeyUnsafeCharRegex = regexp.MustCompile(`[^a-z0-9_-]`)

// AnalysisOrchestratorService coordinates one analysis run per job key with
// idempotent submit, poll, and best-effort cancel. At most one running job
// exists per key, enforced through the store's atomic check-and-set even
// under concurrent submits.
type AnalysisOrchestratorService struct {
	store    job.Store
	pipeline AnalysisRunner
	archive  forecast.Repository
	pool     *ants.Pool
	validate *validator.Validate
	ids      id.Generator
	cfg      AnalysisOrchestratorConfig
	logger   *logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewAnalysisOrchestratorService builds the orchestrator with its own worker
// pool. archive may be nil; completed runs are then not archived.
func NewAnalysisOrchestratorService(
	store job.Store,
	pipeline AnalysisRunner,
	archive forecast.Repository,
	cfg AnalysisOrchestratorConfig,
	logger *logging.Logger,
) (*AnalysisOrchestratorService, error) {
	if store == nil {
		return nil, fmt.Errorf("job store is required")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("analysis runner is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg = cfg.withDefaults()

	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &AnalysisOrchestratorService{
		store:    store,
		pipeline: pipeline,
		archive:  archive,
		pool:     pool,
		validate: validator.New(),
		ids:      id.NewRandomGenerator(),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		cancels:  make(map[string]context.CancelFunc),
	}, nil
}

// Close releases the worker pool. In-flight runs finish in the background.
func (s *AnalysisOrchestratorService) Close() {
	s.pool.Release()
}

// Submit starts an analysis run for the request key, or adopts whatever the
// key already holds: a fresh cached result short-circuits to completed, a
// running job is returned as-is, a failed record is atomically taken over.
func (s *AnalysisOrchestratorService) Submit(ctx context.Context, req AnalysisRequest) (AnalysisStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalysisOrchestratorService.Submit")
	defer span.End()

	req, key, err := s.normalizeRequest(ctx, req)
	if err != nil {
		return AnalysisStatus{}, err
	}

	if result, ok, err := s.store.GetResult(ctx, key); err != nil {
		return AnalysisStatus{}, fmt.Errorf("read cached result: %w", err)
	} else if ok {
		return AnalysisStatus{State: job.StateCompleted, Result: &result}, nil
	}

	jobID, err := s.ids.NewID()
	if err != nil {
		return AnalysisStatus{}, fmt.Errorf("generate job id: %w", err)
	}

	now := s.now()
	candidate := job.Job{
		ID:        jobID,
		Key:       key,
		State:     job.StateRunning,
		Progress:  job.ProgressStarting,
		StartedAt: now,
		UpdatedAt: now,
	}

	owned, adopted, err := s.claimKey(ctx, key, candidate)
	if err != nil {
		return AnalysisStatus{}, err
	}
	if adopted {
		return statusFromJob(owned), nil
	}

	if err := s.schedule(ctx, owned, req); err != nil {
		return AnalysisStatus{}, err
	}

	s.logger.InfoContext(ctx, "analysis job started",
		"key", key, "job_id", owned.ID, "player", req.Player, "max_matches", req.MaxMatches)

	return statusFromJob(owned), nil
}

// Poll reports the key's current state: a cached result wins, then the job
// record, then absent.
func (s *AnalysisOrchestratorService) Poll(ctx context.Context, req AnalysisRequest) (AnalysisStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalysisOrchestratorService.Poll")
	defer span.End()

	_, key, err := s.normalizeRequest(ctx, req)
	if err != nil {
		return AnalysisStatus{}, err
	}

	if result, ok, err := s.store.GetResult(ctx, key); err != nil {
		return AnalysisStatus{}, fmt.Errorf("read cached result: %w", err)
	} else if ok {
		return AnalysisStatus{State: job.StateCompleted, Result: &result}, nil
	}

	if current, ok, err := s.store.GetJob(ctx, key); err != nil {
		return AnalysisStatus{}, fmt.Errorf("read job record: %w", err)
	} else if ok {
		return statusFromJob(current), nil
	}

	return AnalysisStatus{State: job.StateAbsent}, nil
}

// Cancel requests a stop for the key's run: the local context (when this
// process owns the run) is cancelled and the job record removed, which makes
// the write boundary discard any result the run still produces. Returns false
// when no job record exists.
func (s *AnalysisOrchestratorService) Cancel(ctx context.Context, req AnalysisRequest) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalysisOrchestratorService.Cancel")
	defer span.End()

	_, key, err := s.normalizeRequest(ctx, req)
	if err != nil {
		return false, err
	}

	current, ok, err := s.store.GetJob(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read job record: %w", err)
	}
	if !ok {
		return false, nil
	}

	s.cancelLocal(current.ID)
	if err := s.store.DeleteJob(ctx, key); err != nil {
		return false, fmt.Errorf("delete job record: %w", err)
	}

	s.logger.InfoContext(ctx, "analysis job cancelled", "key", key, "job_id", current.ID)
	return true, nil
}

func (s *AnalysisOrchestratorService) normalizeRequest(ctx context.Context, req AnalysisRequest) (AnalysisRequest, string, error) {
	req.Player = strings.TrimSpace(req.Player)
	if req.MaxMatches <= 0 {
		req.MaxMatches = s.cfg.DefaultMaxMatches
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return req, "", fmt.Errorf("%w: validation failed: %v", ErrInvalidInput, err)
	}

	return req, jobKey(req.Player, req.MaxMatches), nil
}

// claimKey makes this submit the key's owner, or adopts the job already
// there. Ownership is only ever taken through the store's atomic primitives:
// PutJobIfAbsent for empty keys, SwapJob for keys holding a terminal record.
func (s *AnalysisOrchestratorService) claimKey(ctx context.Context, key string, candidate job.Job) (job.Job, bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		inserted, err := s.store.PutJobIfAbsent(ctx, key, candidate, s.cfg.JobTTL)
		if err != nil {
			return job.Job{}, false, fmt.Errorf("register job: %w", err)
		}
		if inserted {
			return candidate, false, nil
		}

		existing, ok, err := s.store.GetJob(ctx, key)
		if err != nil {
			return job.Job{}, false, fmt.Errorf("read job record: %w", err)
		}
		if !ok {
			// Record expired between the check and the read; try again.
			continue
		}
		if existing.State == job.StateRunning {
			return existing, true, nil
		}

		swapped, err := s.store.SwapJob(ctx, key, existing.ID, candidate, s.cfg.JobTTL)
		if err != nil {
			return job.Job{}, false, fmt.Errorf("take over job record: %w", err)
		}
		if swapped {
			return candidate, false, nil
		}
		// Another submit won the takeover; loop to adopt it.
	}

	current, ok, err := s.store.GetJob(ctx, key)
	if err != nil {
		return job.Job{}, false, fmt.Errorf("read job record: %w", err)
	}
	if !ok {
		return job.Job{}, false, fmt.Errorf("job key %s is contended, retry the submit", key)
	}

	return current, true, nil
}

// schedule hands the run to the worker pool. The run context detaches from
// the submit request but keeps its trace, and carries the job TTL as the
// whole-pipeline wall-clock budget.
func (s *AnalysisOrchestratorService) schedule(ctx context.Context, owned job.Job, req AnalysisRequest) error {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.JobTTL)
	s.trackCancel(owned.ID, cancel)

	err := s.pool.Submit(func() {
		defer cancel()
		defer s.untrackCancel(owned.ID)
		s.execute(runCtx, owned, req)
	})
	if err != nil {
		s.untrackCancel(owned.ID)
		cancel()
		if deleteErr := s.store.DeleteJob(ctx, owned.Key); deleteErr != nil {
			s.logger.WarnContext(ctx, "failed to roll back job record after scheduling failure",
				"key", owned.Key, "error", deleteErr)
		}
		return fmt.Errorf("schedule analysis run: %w", err)
	}

	return nil
}

// execute runs the pipeline with bounded whole-run retries, then settles the
// job at the write boundary.
func (s *AnalysisOrchestratorService) execute(ctx context.Context, owned job.Job, req AnalysisRequest) {
	var result forecast.RunResult
	var runErr error

	for attempt := 0; ; attempt++ {
		result, runErr = s.pipeline.Run(ctx, req.Player, req.MaxMatches, func(stage string) {
			s.updateProgress(ctx, owned, stage)
		})
		if runErr == nil || attempt >= s.cfg.TaskRetries || isDomainError(runErr) {
			break
		}

		s.logger.WarnContext(ctx, "retrying analysis run after unexpected error",
			"key", owned.Key, "attempt", attempt+1, "error", runErr)
		if err := sleepContext(ctx, s.cfg.RetryDelay); err != nil {
			runErr = fmt.Errorf("%w: analysis interrupted", ErrCancelled)
			break
		}
	}

	if runErr != nil {
		s.finishFailed(ctx, owned, runErr)
		return
	}
	s.finishCompleted(ctx, owned, req, result)
}

// updateProgress refreshes the job record's progress message, but only while
// this run still owns the key. The swap is atomic on the job id, so a Cancel
// landing mid-update cannot have its deletion overwritten.
func (s *AnalysisOrchestratorService) updateProgress(ctx context.Context, owned job.Job, stage string) {
	updated := owned
	updated.Progress = stage
	updated.UpdatedAt = s.now()

	if _, err := s.store.SwapJob(ctx, owned.Key, owned.ID, updated, s.cfg.JobTTL); err != nil {
		s.logger.WarnContext(ctx, "failed to update job progress",
			"key", owned.Key, "stage", stage, "error", err)
	}
}

// finishCompleted writes the result, subject to the write boundary: the job
// record is re-read first, and a record that is gone or owned by another run
// means cancellation won and the result is discarded.
func (s *AnalysisOrchestratorService) finishCompleted(ctx context.Context, owned job.Job, req AnalysisRequest, result forecast.RunResult) {
	current, ok, err := s.store.GetJob(ctx, owned.Key)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to re-read job record at write boundary",
			"key", owned.Key, "error", err)
		return
	}
	if !ok || current.ID != owned.ID {
		s.logger.InfoContext(ctx, "discarding result for cancelled analysis job",
			"key", owned.Key, "job_id", owned.ID)
		return
	}

	if err := s.store.PutResult(ctx, owned.Key, result, s.cfg.ResultTTL); err != nil {
		s.finishFailed(ctx, owned, fmt.Errorf("write result: %w", err))
		return
	}
	if err := s.store.DeleteJob(ctx, owned.Key); err != nil {
		s.logger.WarnContext(ctx, "failed to clear job record after completion",
			"key", owned.Key, "error", err)
	}

	s.archiveRun(ctx, req, result)
}

// finishFailed marks the job failed while the run still owns the key. The
// swap is atomic on the job id: a missing or re-owned record means the job
// was cancelled, and the failure record must not resurrect it.
func (s *AnalysisOrchestratorService) finishFailed(ctx context.Context, owned job.Job, runErr error) {
	failed := owned
	failed.State = job.StateFailed
	failed.Error = runErr.Error()
	failed.Progress = ""
	failed.UpdatedAt = s.now()

	swapped, err := s.store.SwapJob(ctx, owned.Key, owned.ID, failed, s.cfg.JobTTL)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record analysis failure",
			"key", owned.Key, "error", err)
		return
	}
	if !swapped {
		s.logger.InfoContext(ctx, "analysis run ended after cancellation",
			"key", owned.Key, "job_id", owned.ID, "error", runErr)
		return
	}

	s.logger.WarnContext(ctx, "analysis job failed",
		"key", owned.Key, "job_id", owned.ID, "error", runErr)
}

// archiveRun appends the completed run to the archive when one is configured.
// Best effort: failures are logged, never surfaced.
func (s *AnalysisOrchestratorService) archiveRun(ctx context.Context, req AnalysisRequest, result forecast.RunResult) {
	if s.archive == nil {
		return
	}

	record := forecast.RunRecord{
		PlayerID:      result.PlayerID,
		PlayerName:    result.PlayerName,
		MaxMatches:    req.MaxMatches,
		MatchesFound:  result.MatchesFound,
		Status:        result.Status,
		Payload:       result,
		ProcessingSec: result.ProcessingSec,
		CreatedAt:     s.now(),
	}
	if err := s.archive.SaveRun(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "failed to archive analysis run",
			"player_id", result.PlayerID, "error", err)
	}
}

func (s *AnalysisOrchestratorService) trackCancel(jobID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()
}

func (s *AnalysisOrchestratorService) untrackCancel(jobID string) {
	s.mu.Lock()
	delete(s.cancels, jobID)
	s.mu.Unlock()
}

func (s *AnalysisOrchestratorService) cancelLocal(jobID string) {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func statusFromJob(j job.Job) AnalysisStatus {
	return AnalysisStatus{
		State:    j.State,
		JobID:    j.ID,
		Progress: j.Progress,
		Error:    j.Error,
	}
}

// jobKey builds the deduplication key for one (player query, max matches)
// pair. Queries are lowercased and unsafe characters collapsed so equivalent
// requests share a key.
func jobKey(player string, maxMatches int) string {
	sanitized := jobKeyUnsafeCharRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(player)), "-")
	return fmt.Sprintf("%s:%d", sanitized, maxMatches)
}

func isDomainError(err error) bool {
	return stderrors.Is(err, ErrInvalidInput) ||
		stderrors.Is(err, ErrNotFound) ||
		stderrors.Is(err, ErrInsufficientData) ||
		stderrors.Is(err, ErrCancelled) ||
		stderrors.Is(err, ErrDependencyUnavailable)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
