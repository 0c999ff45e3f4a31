package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/playpulse/playpulse/internal/domain/performance"
)

func TestAnomalyFilter_ShortSeriesUnchanged(t *testing.T) {
	t.Parallel()

	series := performance.Series{
		rateMetrics(101, 11, 0.95),
		rateMetrics(102, 12, 0.10),
		rateMetrics(103, 13, 0.90),
	}

	service := NewAnomalyFilterService(AnomalyFilterConfig{}, nil)
	got := service.Filter(context.Background(), series)

	if len(got) != 3 {
		t.Fatalf("expected series below the stats minimum to pass through, got=%d", len(got))
	}
}

func TestAnomalyFilter_RemovesSingleOutlierMatch(t *testing.T) {
	t.Parallel()

	// Rate 0.15 sits 2.23 population standard deviations off the mean; every
	// other value stays well inside the 2.0 threshold.
	rates := []float64{0.80, 0.82, 0.79, 0.81, 0.15, 0.83}
	series := make(performance.Series, 0, len(rates))
	for i, rate := range rates {
		series = append(series, rateMetrics(int64(101+i), 11+i, rate))
	}

	service := NewAnomalyFilterService(AnomalyFilterConfig{}, nil)
	got := service.Filter(context.Background(), series)

	if len(got) != 5 {
		t.Fatalf("expected 5 surviving matches, got=%d", len(got))
	}
	for i, metrics := range got {
		if metrics.MatchID == 105 {
			t.Fatalf("expected match 105 to be removed, found it at position %d", i)
		}
		if metrics.MatchNum != i+1 {
			t.Fatalf("expected dense renumbering, got match_num=%d at position %d", metrics.MatchNum, i)
		}
	}
}

func TestAnomalyFilter_ConstantSeriesUntouched(t *testing.T) {
	t.Parallel()

	series := make(performance.Series, 0, 5)
	for i := 0; i < 5; i++ {
		series = append(series, rateMetrics(int64(101+i), 11+i, 0.80))
	}

	service := NewAnomalyFilterService(AnomalyFilterConfig{}, nil)
	got := service.Filter(context.Background(), series)

	if len(got) != 5 {
		t.Fatalf("expected zero-variance series to pass through, got=%d", len(got))
	}
}

func TestAnomalyFilter_TeamContextJoinsTheTest(t *testing.T) {
	t.Parallel()

	// The player's own metrics are flat; only the team-level pass completion
	// flags the fifth match.
	teamRates := []float64{0.80, 0.82, 0.79, 0.81, 0.15, 0.83}
	series := make(performance.Series, 0, len(teamRates))
	for i := range teamRates {
		metrics := rateMetrics(int64(101+i), 11+i, 0.80)
		metrics.TeamPassCompletion = &teamRates[i]
		series = append(series, metrics)
	}

	service := NewAnomalyFilterService(AnomalyFilterConfig{}, nil)
	got := service.Filter(context.Background(), series)

	if len(got) != 5 {
		t.Fatalf("expected the team outlier match to be removed, got=%d survivors", len(got))
	}
	for _, metrics := range got {
		if metrics.MatchID == 105 {
			t.Fatalf("expected match 105 to be removed")
		}
	}
}

func TestAnomalyFilter_ThresholdIsConfigurable(t *testing.T) {
	t.Parallel()

	rates := []float64{0.80, 0.82, 0.79, 0.81, 0.15, 0.83}
	series := make(performance.Series, 0, len(rates))
	for i, rate := range rates {
		series = append(series, rateMetrics(int64(101+i), 11+i, rate))
	}

	service := NewAnomalyFilterService(AnomalyFilterConfig{Threshold: 3.0}, nil)
	got := service.Filter(context.Background(), series)

	if len(got) != 6 {
		t.Fatalf("expected no removals under a 3.0 threshold, got=%d survivors", len(got))
	}
}

// rateMetrics builds a record whose pass completion rate varies while every
// other target metric stays constant, so only that rate can trip the filter.
func rateMetrics(id int64, day int, rate float64) performance.MatchMetrics {
	return performance.MatchMetrics{
		MatchID:            id,
		MatchDate:          time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		TotalEvents:        50,
		TotalPasses:        40,
		CompletedPasses:    int(rate * 40),
		PassCompletionRate: rate,
		DefensiveActions:   5,
	}
}
