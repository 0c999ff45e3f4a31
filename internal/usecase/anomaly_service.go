package usecase

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/playpulse/playpulse/internal/domain/performance"
	"github.com/playpulse/playpulse/internal/platform/logging"
)

// Metrics whose per-match z-scores decide anomaly removal.
var anomalyTargetMetrics = []string{
	performance.MetricPassCompletionRate,
	performance.MetricTotalEvents,
	performance.MetricDefensiveActions,
}

const minSeriesForAnomalyStats = 4

type AnomalyFilterConfig struct {
	// Threshold is the absolute z-score above which a match is anomalous.
	Threshold float64
}

func (c AnomalyFilterConfig) withDefaults() AnomalyFilterConfig {
	if c.Threshold <= 0 {
		c.Threshold = 2.0
	}
	return c
}

// AnomalyFilterService removes statistically outlying matches from a series
// in a single pass. A match is anomalous when any target metric's population
// z-score exceeds the threshold; team-level pass completion joins the test
// when enough team values are present.
type AnomalyFilterService struct {
	cfg    AnomalyFilterConfig
	logger *logging.Logger
}

func NewAnomalyFilterService(cfg AnomalyFilterConfig, logger *logging.Logger) *AnomalyFilterService {
	if logger == nil {
		logger = logging.Default()
	}

	return &AnomalyFilterService{cfg: cfg.withDefaults(), logger: logger}
}

// Filter returns the series with anomalous matches removed, re-sorted by date
// and densely renumbered. Series shorter than four matches are returned
// unchanged; zero-variance metrics are skipped. Removal happens in one pass:
// survivors are never re-scored.
func (s *AnomalyFilterService) Filter(ctx context.Context, series performance.Series) performance.Series {
	_, span := startUsecaseSpan(ctx, "usecase.AnomalyFilterService.Filter")
	defer span.End()

	if len(series) < minSeriesForAnomalyStats {
		return series
	}

	anomalous := make(map[int]bool)
	for _, metric := range anomalyTargetMetrics {
		markOutliers(series.Values(metric), s.cfg.Threshold, func(i int) {
			anomalous[i] = true
		})
	}

	if teamValues, indexes := series.TeamPassCompletions(); len(teamValues) >= minSeriesForAnomalyStats {
		markOutliers(teamValues, s.cfg.Threshold, func(i int) {
			anomalous[indexes[i]] = true
		})
	}

	if len(anomalous) == 0 {
		return series
	}

	kept := make(performance.Series, 0, len(series)-len(anomalous))
	removed := make([]int64, 0, len(anomalous))
	for i, metrics := range series {
		if anomalous[i] {
			removed = append(removed, metrics.MatchID)
			continue
		}
		kept = append(kept, metrics)
	}

	kept.SortByDate()
	kept.Renumber()

	s.logger.InfoContext(ctx, "removed anomalous matches",
		"removed", len(removed), "match_ids", removed, "remaining", len(kept))

	return kept
}

// markOutliers calls mark(i) for every value whose population z-score exceeds
// the threshold. A zero standard deviation yields no z-scores and no marks.
func markOutliers(values []float64, threshold float64, mark func(int)) {
	mean := stat.Mean(values, nil)
	std := stat.PopStdDev(values, nil)
	if std == 0 || math.IsNaN(std) {
		return
	}

	for i, value := range values {
		if math.Abs(value-mean)/std > threshold {
			mark(i)
		}
	}
}
