package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/playpulse/playpulse/internal/domain/forecast"
	"github.com/playpulse/playpulse/internal/domain/job"
	"github.com/playpulse/playpulse/internal/platform/logging"
)

type AnalysisPipelineConfig struct {
	// MemoryOptimization drops raw event rows as soon as a match's metrics
	// are derived; only aggregates travel forward.
	MemoryOptimization bool
}

// AnalysisPipelineService runs one full analysis: resolve the player, collect
// appearances, derive metrics, drop anomalies, forecast. Stages run strictly
// in order; progress strings are reported between them.
type AnalysisPipelineService struct {
	resolver  *PlayerResolverService
	collector *MatchCollectorService
	deriver   *MetricsDeriverService
	filter    *AnomalyFilterService
	engine    *PredictionEngineService
	cfg       AnalysisPipelineConfig
	logger    *logging.Logger
	now       func() time.Time
}

func NewAnalysisPipelineService(
	resolver *PlayerResolverService,
	collector *MatchCollectorService,
	deriver *MetricsDeriverService,
	filter *AnomalyFilterService,
	engine *PredictionEngineService,
	cfg AnalysisPipelineConfig,
	logger *logging.Logger,
) *AnalysisPipelineService {
	if logger == nil {
		logger = logging.Default()
	}

	return &AnalysisPipelineService{
		resolver:  resolver,
		collector: collector,
		deriver:   deriver,
		filter:    filter,
		engine:    engine,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes the pipeline for one player query. A series too short to
// forecast still completes with nil predictions; every other stage failure
// aborts the run.
func (s *AnalysisPipelineService) Run(ctx context.Context, query string, maxMatches int, progress func(string)) (forecast.RunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalysisPipelineService.Run")
	defer span.End()

	if progress == nil {
		progress = func(string) {}
	}
	started := s.now()

	progress(job.ProgressVerifying)
	target, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		return forecast.RunResult{}, fmt.Errorf("resolve player: %w", err)
	}

	progress(job.ProgressCollecting(target.Name))
	appearances, err := s.collector.Collect(ctx, target, maxMatches)
	if err != nil {
		return forecast.RunResult{}, fmt.Errorf("collect matches: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return forecast.RunResult{}, fmt.Errorf("%w: analysis interrupted", ErrCancelled)
	}

	progress(job.ProgressProcessing)
	series := s.deriver.Derive(ctx, appearances)
	if s.cfg.MemoryOptimization {
		for i := range appearances {
			appearances[i].Events = nil
		}
	}
	series = s.filter.Filter(ctx, series)

	predictions, err := s.engine.Forecast(ctx, series)
	if err != nil {
		if !stderrors.Is(err, ErrInsufficientData) {
			return forecast.RunResult{}, fmt.Errorf("forecast: %w", err)
		}
		s.logger.InfoContext(ctx, "series too short for forecasting",
			"player", target.Name, "matches", len(series))
		predictions = nil
	}

	progress(job.ProgressDone)

	finished := s.now()
	result := forecast.RunResult{
		Status:        forecast.StatusCompleted,
		PlayerID:      target.ID,
		PlayerName:    target.Name,
		MatchesFound:  len(series),
		Performances:  series,
		Predictions:   predictions,
		ProcessingSec: finished.Sub(started).Seconds(),
		GeneratedAt:   finished,
	}

	s.logger.InfoContext(ctx, "analysis pipeline completed",
		"player", target.Name, "matches", result.MatchesFound,
		"predicted", predictions != nil, "seconds", result.ProcessingSec)

	return result, nil
}
