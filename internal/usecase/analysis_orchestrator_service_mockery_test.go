package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/playpulse/playpulse/internal/domain/forecast"
	"github.com/playpulse/playpulse/internal/domain/job"
	"github.com/playpulse/playpulse/internal/infrastructure/repository/memory"
	forecastmock "github.com/playpulse/playpulse/internal/mocks/domain/forecast"
	jobmock "github.com/playpulse/playpulse/internal/mocks/domain/job"
)

func TestAnalysisOrchestrator_SubmitFailsWhenResultReadFailsUsingMockery(t *testing.T) {
	t.Parallel()

	store := jobmock.NewStore(t)
	runner := &stubRunner{fn: func(context.Context, string, int, func(string)) (forecast.RunResult, error) {
		return completedRun(), nil
	}}

	orch, err := NewAnalysisOrchestratorService(store, runner, nil, AnalysisOrchestratorConfig{}, nil)
	if err != nil {
		t.Fatalf("NewAnalysisOrchestratorService error: %v", err)
	}
	defer orch.Close()

	store.
		On("GetResult", mock.Anything, "mohamed-salah:5").
		Return(forecast.RunResult{}, false, errors.New("store offline")).
		Once()

	_, err = orch.Submit(context.Background(), salahRequest)
	if err == nil || !strings.Contains(err.Error(), "read cached result") {
		t.Fatalf("expected a wrapped store error, got=%v", err)
	}
	if calls := runner.calls.Load(); calls != 0 {
		t.Fatalf("expected no run when the store is unreadable, got=%d", calls)
	}
}

func TestAnalysisOrchestrator_ArchivesCompletedRunUsingMockery(t *testing.T) {
	t.Parallel()

	archive := forecastmock.NewRepository(t)
	archived := make(chan forecast.RunRecord, 1)
	archive.
		On("SaveRun", mock.Anything, mock.AnythingOfType("forecast.RunRecord")).
		Run(func(args mock.Arguments) { archived <- args.Get(1).(forecast.RunRecord) }).
		Return(nil).
		Once()

	runner := &stubRunner{fn: func(context.Context, string, int, func(string)) (forecast.RunResult, error) {
		return completedRun(), nil
	}}
	orch, err := NewAnalysisOrchestratorService(memory.NewAnalysisStore(), runner, archive, testOrchestratorConfig(), nil)
	if err != nil {
		t.Fatalf("NewAnalysisOrchestratorService error: %v", err)
	}
	defer orch.Close()

	if _, err := orch.Submit(context.Background(), salahRequest); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	var record forecast.RunRecord
	select {
	case record = <-archived:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the archive write")
	}

	if record.PlayerID != salah.ID || record.PlayerName != salah.Name {
		t.Fatalf("expected the player on the archived record, got=%+v", record)
	}
	if record.MaxMatches != 5 || record.MatchesFound != 3 {
		t.Fatalf("expected the request and run sizes on the record, got=%+v", record)
	}
	if record.Status != forecast.StatusCompleted || record.Payload.PlayerName != salah.Name {
		t.Fatalf("expected the full result as payload, got=%+v", record)
	}
	if record.CreatedAt.IsZero() {
		t.Fatalf("expected a creation timestamp on the record")
	}
}

func TestAnalysisOrchestrator_ArchiveFailureDoesNotBlockResultUsingMockery(t *testing.T) {
	t.Parallel()

	archive := forecastmock.NewRepository(t)
	archived := make(chan struct{})
	archive.
		On("SaveRun", mock.Anything, mock.AnythingOfType("forecast.RunRecord")).
		Run(func(mock.Arguments) { close(archived) }).
		Return(errors.New("archive database down")).
		Once()

	runner := &stubRunner{fn: func(context.Context, string, int, func(string)) (forecast.RunResult, error) {
		return completedRun(), nil
	}}
	orch, err := NewAnalysisOrchestratorService(memory.NewAnalysisStore(), runner, archive, testOrchestratorConfig(), nil)
	if err != nil {
		t.Fatalf("NewAnalysisOrchestratorService error: %v", err)
	}
	defer orch.Close()

	if _, err := orch.Submit(context.Background(), salahRequest); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	select {
	case <-archived:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the archive attempt")
	}

	final := waitForState(t, orch, salahRequest, job.StateCompleted)
	if final.Result == nil || final.Result.PlayerName != salah.Name {
		t.Fatalf("expected the result despite the archive failure, got=%+v", final)
	}
}

func testOrchestratorConfig() AnalysisOrchestratorConfig {
	return AnalysisOrchestratorConfig{
		JobTTL:         time.Minute,
		ResultTTL:      time.Minute,
		TaskRetries:    0,
		RetryDelay:     time.Millisecond,
		WorkerPoolSize: 4,
	}
}
