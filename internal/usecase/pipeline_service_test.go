package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/playpulse/playpulse/internal/domain/forecast"
	"github.com/playpulse/playpulse/internal/domain/job"
	"github.com/playpulse/playpulse/internal/domain/match"
)

func TestAnalysisPipeline_RunsAllStagesInOrder(t *testing.T) {
	t.Parallel()

	service := pipelineService(salahSeasonSource(6))

	var stages []string
	result, err := service.Run(context.Background(), "Salah", 10, func(stage string) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	wantStages := []string{
		job.ProgressVerifying,
		job.ProgressCollecting(salah.Name),
		job.ProgressProcessing,
		job.ProgressDone,
	}
	if len(stages) != len(wantStages) {
		t.Fatalf("expected %d progress stages, got=%v", len(wantStages), stages)
	}
	for i, want := range wantStages {
		if stages[i] != want {
			t.Fatalf("expected stage %q at position %d, got=%q", want, i, stages[i])
		}
	}

	if result.Status != forecast.StatusCompleted {
		t.Fatalf("expected completed status, got=%s", result.Status)
	}
	if result.PlayerID != salah.ID || result.PlayerName != salah.Name {
		t.Fatalf("expected resolved player in the result, got=%+v", result)
	}
	if result.MatchesFound != 6 || len(result.Performances) != 6 {
		t.Fatalf("expected 6 analyzed matches, got=%d/%d", result.MatchesFound, len(result.Performances))
	}
	if result.Predictions == nil || result.Predictions.Method != forecast.MethodModel {
		t.Fatalf("expected a model forecast on 6 matches, got=%+v", result.Predictions)
	}
	if result.ProcessingSec < 0 {
		t.Fatalf("expected non-negative processing time, got=%f", result.ProcessingSec)
	}
	if result.GeneratedAt.IsZero() {
		t.Fatalf("expected a generation timestamp")
	}
}

func TestAnalysisPipeline_ShortSeriesCompletesWithoutForecast(t *testing.T) {
	t.Parallel()

	service := pipelineService(salahSeasonSource(2))

	result, err := service.Run(context.Background(), "Salah", 10, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Status != forecast.StatusCompleted {
		t.Fatalf("expected completed status, got=%s", result.Status)
	}
	if result.MatchesFound != 2 {
		t.Fatalf("expected 2 matches, got=%d", result.MatchesFound)
	}
	if result.Predictions != nil {
		t.Fatalf("expected no predictions on a 2-match series, got=%+v", result.Predictions)
	}
}

func TestAnalysisPipeline_ResolveFailureAborts(t *testing.T) {
	t.Parallel()

	service := pipelineService(&stubMatchSource{})

	var stages []string
	_, err := service.Run(context.Background(), "Salah", 10, func(stage string) {
		stages = append(stages, stage)
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}
	if len(stages) != 1 || stages[0] != job.ProgressVerifying {
		t.Fatalf("expected only the verification stage, got=%v", stages)
	}
}

func pipelineService(source MatchDataSource) *AnalysisPipelineService {
	return NewAnalysisPipelineService(
		NewPlayerResolverService(source, PlayerResolverConfig{}, nil),
		NewMatchCollectorService(source, MatchCollectorConfig{}, nil),
		NewMetricsDeriverService(nil),
		NewAnomalyFilterService(AnomalyFilterConfig{}, nil),
		NewPredictionEngineService(PredictionEngineConfig{}, nil),
		AnalysisPipelineConfig{MemoryOptimization: true},
		nil,
	)
}

// salahSeasonSource serves one competition in which the player appears in n
// matches, with event counts that climb gently so the metrics vary without
// tripping the anomaly filter.
func salahSeasonSource(n int) *stubMatchSource {
	matches := make([]match.Match, 0, n)
	events := make(map[int64][]match.EventRecord, n)
	for i := 0; i < n; i++ {
		id := int64(401 + i)
		matches = append(matches, testMatch(id, 11+i))

		rows := make([]match.EventRecord, 0, 8)
		for c := 0; c < 3+i; c++ {
			rows = append(rows, passEvent(id, salah.ID, salah.Name, "Liverpool", ""))
		}
		rows = append(rows,
			passEvent(id, salah.ID, salah.Name, "Liverpool", "Incomplete"),
			passEvent(id, salah.ID, salah.Name, "Liverpool", "Incomplete"),
			match.EventRecord{MatchID: id, PlayerID: salah.ID, PlayerName: salah.Name, Team: "Liverpool", Type: match.EventShot, Outcome: match.ShotOutcomeGoal},
		)
		for p := 0; p < 1+i%2; p++ {
			rows = append(rows, match.EventRecord{MatchID: id, PlayerID: salah.ID, PlayerName: salah.Name, Team: "Liverpool", Type: match.EventPressure})
		}
		events[id] = rows
	}

	// Provider contract: newest first.
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}

	return &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
		matches:      map[[2]int64][]match.Match{{9, 281}: matches},
		events:       events,
	}
}
