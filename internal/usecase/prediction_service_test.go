package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/playpulse/playpulse/internal/domain/forecast"
	"github.com/playpulse/playpulse/internal/domain/performance"
	"github.com/playpulse/playpulse/internal/platform/regress"
)

func TestPredictionEngine_TooFewMatches(t *testing.T) {
	t.Parallel()

	series := performance.Series{
		rateMetrics(101, 11, 0.80),
		rateMetrics(102, 12, 0.82),
	}

	service := NewPredictionEngineService(PredictionEngineConfig{}, nil)
	_, err := service.Forecast(context.Background(), series)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got=%v", err)
	}
}

func TestPredictionEngine_TrendExtrapolation(t *testing.T) {
	t.Parallel()

	series := performance.Series{
		rateMetrics(101, 11, 0.5),
		rateMetrics(102, 12, 0.6),
		rateMetrics(103, 13, 0.7),
	}

	service := NewPredictionEngineService(PredictionEngineConfig{}, nil)
	got, err := service.Forecast(context.Background(), series)
	if err != nil {
		t.Fatalf("Forecast error: %v", err)
	}

	if got.Method != forecast.MethodTrend {
		t.Fatalf("expected trend method for a 3-match series, got=%s", got.Method)
	}

	rate := got.Metrics[performance.MetricPassCompletionRate]
	if math.Abs(rate.CurrentValue-0.7) > 1e-9 {
		t.Fatalf("expected current value 0.7, got=%f", rate.CurrentValue)
	}
	if math.Abs(rate.PredictedValue-0.8) > 1e-9 {
		t.Fatalf("expected predicted value 0.8, got=%f", rate.PredictedValue)
	}
	if math.Abs(rate.PercentageChange-1.0/7.0) > 1e-9 {
		t.Fatalf("expected change 1/7, got=%f", rate.PercentageChange)
	}

	events := got.Metrics[performance.MetricTotalEvents]
	if events.PercentageChange != 0 || events.PredictedValue != 50 {
		t.Fatalf("expected a flat metric to project unchanged, got=%+v", events)
	}
	if len(got.DecliningMetrics) != 0 {
		t.Fatalf("expected no declines on a rising series, got=%v", got.DecliningMetrics)
	}
}

func TestPredictionEngine_TrendFlagsDecline(t *testing.T) {
	t.Parallel()

	series := performance.Series{
		rateMetrics(101, 11, 0.9),
		rateMetrics(102, 12, 0.8),
		rateMetrics(103, 13, 0.7),
	}

	service := NewPredictionEngineService(PredictionEngineConfig{}, nil)
	got, err := service.Forecast(context.Background(), series)
	if err != nil {
		t.Fatalf("Forecast error: %v", err)
	}

	rate := got.Metrics[performance.MetricPassCompletionRate]
	if math.Abs(rate.PercentageChange+1.0/7.0) > 1e-9 {
		t.Fatalf("expected change -1/7, got=%f", rate.PercentageChange)
	}
	if len(got.DecliningMetrics) != 1 || got.DecliningMetrics[0] != performance.MetricPassCompletionRate {
		t.Fatalf("expected only pass_completion_rate flagged, got=%v", got.DecliningMetrics)
	}
}

func TestPredictionEngine_ModelPathOnLongerSeries(t *testing.T) {
	t.Parallel()

	series := variedSeries(8)

	service := NewPredictionEngineService(PredictionEngineConfig{}, nil)
	got, err := service.Forecast(context.Background(), series)
	if err != nil {
		t.Fatalf("Forecast error: %v", err)
	}

	if got.Method != forecast.MethodModel {
		t.Fatalf("expected model method for an 8-match series, got=%s", got.Method)
	}
	if len(got.Metrics) != len(performance.FeatureMetrics()) {
		t.Fatalf("expected a forecast per feature metric, got=%d", len(got.Metrics))
	}

	last := series[len(series)-1]
	for _, metric := range performance.FeatureMetrics() {
		entry, ok := got.Metrics[metric]
		if !ok {
			t.Fatalf("expected a forecast for %s", metric)
		}
		if entry.CurrentValue != last.MetricValue(metric) {
			t.Fatalf("expected current value of %s to be the raw last value, got=%f", metric, entry.CurrentValue)
		}
		if math.IsNaN(entry.PredictedValue) || math.IsInf(entry.PredictedValue, 0) {
			t.Fatalf("expected a finite prediction for %s, got=%f", metric, entry.PredictedValue)
		}
		if entry.CurrentValue != 0 {
			wantChange := (entry.PredictedValue - entry.CurrentValue) / entry.CurrentValue
			if math.Abs(entry.PercentageChange-wantChange) > 1e-9 {
				t.Fatalf("expected change %f for %s, got=%f", wantChange, metric, entry.PercentageChange)
			}
		}
	}
}

func TestPredictionEngine_ModelPathAtMinimumLength(t *testing.T) {
	t.Parallel()

	series := variedSeries(5)

	service := NewPredictionEngineService(PredictionEngineConfig{}, nil)
	got, err := service.Forecast(context.Background(), series)
	if err != nil {
		t.Fatalf("Forecast error: %v", err)
	}
	if got.Method != forecast.MethodModel {
		t.Fatalf("expected a 5-match series to use the model path, got=%s", got.Method)
	}
}

func TestPredictionEngine_OverfitGuardRejectsPerfectTree(t *testing.T) {
	t.Parallel()

	// A step function the tree reproduces exactly: its held-out error is zero,
	// which is implausible on data this small, so the guard must swap it out.
	trainX := [][]float64{{0}, {0.1}, {0.9}, {1.0}}
	trainY := []float64{0, 0, 1, 1}
	testX := [][]float64{{0.05}, {0.95}}
	testY := []float64{0, 1}

	service := NewPredictionEngineService(PredictionEngineConfig{}, nil)
	champion, err := service.selectChampion(context.Background(), performance.MetricPassCompletionRate, trainX, trainY, testX, testY)
	if err != nil {
		t.Fatalf("selectChampion error: %v", err)
	}
	if champion.Model == nil {
		t.Fatalf("expected a champion model")
	}
	if champion.Model.Name() == regress.NameTree {
		t.Fatalf("expected the guard to replace the zero-error tree, kept %s with mse=%g",
			champion.Model.Name(), champion.TestMSE)
	}
}

func TestEffectiveWindow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		configured int
		seriesLen  int
		want       int
	}{
		{3, 5, 1},
		{3, 6, 2},
		{3, 7, 3},
		{3, 12, 3},
		{1, 5, 1},
		{5, 12, 5},
	}
	for _, tc := range cases {
		if got := effectiveWindow(tc.configured, tc.seriesLen); got != tc.want {
			t.Fatalf("effectiveWindow(%d, %d): expected %d, got=%d", tc.configured, tc.seriesLen, tc.want, got)
		}
	}
}

// variedSeries builds n matches whose metrics oscillate upward so every
// feature column has variance for the scaler and the regressors.
func variedSeries(n int) performance.Series {
	series := make(performance.Series, 0, n)
	for i := 0; i < n; i++ {
		bump := 0.0
		if i%2 == 1 {
			bump = 1.0
		}
		rate := 0.70 + 0.01*float64(i) + 0.03*bump
		series = append(series, performance.MatchMetrics{
			MatchID:            int64(101 + i),
			MatchDate:          time.Date(2024, 3, 11+i, 0, 0, 0, 0, time.UTC),
			MatchNum:           i + 1,
			TotalEvents:        40 + 2*i + int(4*bump),
			TotalPasses:        30 + i + int(3*bump),
			CompletedPasses:    24 + i,
			PassCompletionRate: rate,
			TotalShots:         2,
			Goals:              1,
			DefensiveActions:   3 + i%4,
		})
	}
	return series
}
