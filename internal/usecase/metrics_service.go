package usecase

import (
	"context"

	"github.com/playpulse/playpulse/internal/domain/match"
	"github.com/playpulse/playpulse/internal/domain/performance"
	"github.com/playpulse/playpulse/internal/platform/logging"
)

// MetricsDeriverService reduces each collected appearance to one MatchMetrics
// record. Metrics are raw per-match counts and ratios; no smoothing.
type MetricsDeriverService struct {
	logger *logging.Logger
}

func NewMetricsDeriverService(logger *logging.Logger) *MetricsDeriverService {
	if logger == nil {
		logger = logging.Default()
	}

	return &MetricsDeriverService{logger: logger}
}

// Derive builds the per-match series, sorted date ascending with dense
// match numbers. An empty input yields an empty series.
func (s *MetricsDeriverService) Derive(ctx context.Context, appearances []match.Appearance) performance.Series {
	_, span := startUsecaseSpan(ctx, "usecase.MetricsDeriverService.Derive")
	defer span.End()

	series := make(performance.Series, 0, len(appearances))
	for _, appearance := range appearances {
		series = append(series, reduceAppearance(appearance))
	}

	series.SortByDate()
	series.Renumber()

	s.logger.DebugContext(ctx, "derived match metrics", "matches", len(series))
	return series
}

// reduceAppearance folds one match's player events into a metrics record. A
// pass with no recorded outcome counts as completed; goals are shots whose
// outcome is "Goal".
func reduceAppearance(a match.Appearance) performance.MatchMetrics {
	metrics := performance.MatchMetrics{
		MatchID:            a.Match.ID,
		MatchDate:          a.Match.Date,
		Competition:        a.Match.CompetitionName,
		Season:             a.Match.SeasonName,
		HomeTeam:           a.Match.HomeTeam,
		AwayTeam:           a.Match.AwayTeam,
		TotalEvents:        len(a.Events),
		TeamPassCompletion: a.TeamPassCompletion,
	}

	for _, event := range a.Events {
		switch event.Type {
		case match.EventPass:
			metrics.TotalPasses++
			if event.Outcome == "" {
				metrics.CompletedPasses++
			}
		case match.EventShot:
			metrics.TotalShots++
			if event.Outcome == match.ShotOutcomeGoal {
				metrics.Goals++
			}
		}
		if event.IsDefensiveAction() {
			metrics.DefensiveActions++
		}
	}

	if metrics.TotalPasses > 0 {
		metrics.PassCompletionRate = float64(metrics.CompletedPasses) / float64(metrics.TotalPasses)
	}

	return metrics
}
