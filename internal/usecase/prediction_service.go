package usecase

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/playpulse/playpulse/internal/domain/forecast"
	"github.com/playpulse/playpulse/internal/domain/performance"
	"github.com/playpulse/playpulse/internal/platform/logging"
	"github.com/playpulse/playpulse/internal/platform/regress"
)

const (
	// minSeriesForForecast is the floor under which no projection is made.
	minSeriesForForecast = 3

	// minSeriesForModeling is the floor for the windowed model path; shorter
	// series fall back to trend extrapolation.
	minSeriesForModeling = 5

	// minTrainingSamples is how many window/target pairs training requires.
	minTrainingSamples = 4

	// overfitEpsilon flags a decision tree whose held-out error is too good
	// to be trusted on series this short.
	overfitEpsilon = 1e-4

	// forestSeed keeps bagging deterministic across runs.
	forestSeed = 42

	trainSplitRatio = 0.8
)

type PredictionEngineConfig struct {
	// Window is the preferred number of consecutive matches per training
	// sample. Shrunk automatically on short series so that at least
	// minTrainingSamples pairs exist.
	Window int

	// DeclineThreshold is the fractional drop at which a metric is flagged
	// as declining (0.05 means -5%).
	DeclineThreshold float64
}

func (c PredictionEngineConfig) withDefaults() PredictionEngineConfig {
	if c.Window <= 0 {
		c.Window = 3
	}
	if c.DeclineThreshold <= 0 {
		c.DeclineThreshold = 0.05
	}
	return c
}

// ChampionModel is the regressor selected for one metric, with the held-out
// error that won it the slot.
type ChampionModel struct {
	Model   regress.Model
	TestMSE float64
}

// ModelBundle is the trained state for one series snapshot: a champion per
// metric, the window the samples were built with, and the scaler fitted
// jointly over the whole series. Rebuilt per request, never persisted.
type ModelBundle struct {
	Window    int
	Scaler    *regress.MinMaxScaler
	Champions map[string]ChampionModel
}

// PredictionEngineService forecasts the next match's value for each feature
// metric. Series of 3-4 matches use trend extrapolation; longer series train
// a menu of regressors per metric and use the lowest-error champion.
type PredictionEngineService struct {
	cfg    PredictionEngineConfig
	logger *logging.Logger
}

func NewPredictionEngineService(cfg PredictionEngineConfig, logger *logging.Logger) *PredictionEngineService {
	if logger == nil {
		logger = logging.Default()
	}

	return &PredictionEngineService{cfg: cfg.withDefaults(), logger: logger}
}

// Forecast projects each feature metric one match ahead. Series shorter than
// three matches yield ErrInsufficientData, never a fabricated number.
func (s *PredictionEngineService) Forecast(ctx context.Context, series performance.Series) (*forecast.Forecast, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionEngineService.Forecast")
	defer span.End()

	if len(series) < minSeriesForForecast {
		return nil, fmt.Errorf("%w: need at least %d matches to forecast, have %d",
			ErrInsufficientData, minSeriesForForecast, len(series))
	}

	var (
		result *forecast.Forecast
		err    error
	)
	if len(series) < minSeriesForModeling {
		result = s.trendForecast(series)
	} else {
		result, err = s.modelForecast(ctx, series)
		if err != nil {
			return nil, err
		}
	}

	s.alertDeclines(ctx, result)
	return result, nil
}

// trendForecast extrapolates each metric by its average match-over-match
// delta across the whole series.
func (s *PredictionEngineService) trendForecast(series performance.Series) *forecast.Forecast {
	out := &forecast.Forecast{
		Method:  forecast.MethodTrend,
		Metrics: make(map[string]forecast.MetricForecast, len(performance.FeatureMetrics())),
	}

	for _, metric := range performance.FeatureMetrics() {
		values := series.Values(metric)
		deltas := make([]float64, len(values)-1)
		for i := range deltas {
			deltas[i] = values[i+1] - values[i]
		}
		avgDelta := stat.Mean(deltas, nil)

		current := values[len(values)-1]
		change := 0.0
		if current != 0 {
			change = avgDelta / current
		}

		out.Metrics[metric] = forecast.MetricForecast{
			CurrentValue:     current,
			PredictedValue:   current + avgDelta,
			PercentageChange: change,
		}
		if change <= -s.cfg.DeclineThreshold {
			out.DecliningMetrics = append(out.DecliningMetrics, metric)
		}
	}

	return out
}

// modelForecast trains the regressor menu on windowed samples and runs each
// metric's champion over the most recent window.
func (s *PredictionEngineService) modelForecast(ctx context.Context, series performance.Series) (*forecast.Forecast, error) {
	bundle, err := s.Train(ctx, series)
	if err != nil {
		return nil, err
	}

	rows := featureRows(series)
	normalized, err := bundle.Scaler.TransformAll(rows)
	if err != nil {
		return nil, fmt.Errorf("normalize series: %w", err)
	}
	window := flattenRows(normalized[len(normalized)-bundle.Window:])

	out := &forecast.Forecast{
		Method:  forecast.MethodModel,
		Metrics: make(map[string]forecast.MetricForecast, len(performance.FeatureMetrics())),
	}

	for j, metric := range performance.FeatureMetrics() {
		champion, ok := bundle.Champions[metric]
		if !ok {
			return nil, fmt.Errorf("no champion model for metric %s", metric)
		}

		predictedNorm, err := champion.Model.Predict(window)
		if err != nil {
			return nil, fmt.Errorf("predict %s with %s: %w", metric, champion.Model.Name(), err)
		}
		predicted, err := bundle.Scaler.Inverse(j, predictedNorm)
		if err != nil {
			return nil, fmt.Errorf("denormalize %s prediction: %w", metric, err)
		}

		current := series[len(series)-1].MetricValue(metric)
		change := 0.0
		if current != 0 {
			change = (predicted - current) / current
		}

		out.Metrics[metric] = forecast.MetricForecast{
			CurrentValue:     current,
			PredictedValue:   predicted,
			PercentageChange: change,
		}
		if change <= -s.cfg.DeclineThreshold {
			out.DecliningMetrics = append(out.DecliningMetrics, metric)
		}

		s.logger.DebugContext(ctx, "metric forecast",
			"metric", metric, "model", champion.Model.Name(),
			"test_mse", champion.TestMSE, "change", change)
	}

	return out, nil
}

// Train fits the regressor menu per metric on windowed samples and selects
// the lowest held-out-error champion, subject to the overfit guard: a
// decision tree with implausibly low error is replaced by the better of the
// forest and the network.
func (s *PredictionEngineService) Train(ctx context.Context, series performance.Series) (*ModelBundle, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionEngineService.Train")
	defer span.End()

	window := effectiveWindow(s.cfg.Window, len(series))
	sampleCount := len(series) - window
	if sampleCount < minTrainingSamples {
		return nil, fmt.Errorf("%w: need %d training samples, have %d",
			ErrInsufficientData, minTrainingSamples, sampleCount)
	}

	rows := featureRows(series)
	scaler := &regress.MinMaxScaler{}
	if err := scaler.Fit(rows); err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	normalized, err := scaler.TransformAll(rows)
	if err != nil {
		return nil, fmt.Errorf("normalize series: %w", err)
	}

	features := make([][]float64, sampleCount)
	targets := make([][]float64, sampleCount)
	for i := 0; i < sampleCount; i++ {
		features[i] = flattenRows(normalized[i : i+window])
		targets[i] = normalized[i+window]
	}

	// Temporal 80/20 split; order is causality, never shuffled.
	trainCount := int(float64(sampleCount) * trainSplitRatio)
	if trainCount < 1 {
		trainCount = 1
	}
	if trainCount >= sampleCount {
		trainCount = sampleCount - 1
	}

	bundle := &ModelBundle{
		Window:    window,
		Scaler:    scaler,
		Champions: make(map[string]ChampionModel, len(performance.FeatureMetrics())),
	}

	for j, metric := range performance.FeatureMetrics() {
		trainY := make([]float64, trainCount)
		testY := make([]float64, sampleCount-trainCount)
		for i := 0; i < sampleCount; i++ {
			if i < trainCount {
				trainY[i] = targets[i][j]
			} else {
				testY[i-trainCount] = targets[i][j]
			}
		}

		champion, err := s.selectChampion(ctx, metric, features[:trainCount], trainY, features[trainCount:], testY)
		if err != nil {
			return nil, err
		}
		bundle.Champions[metric] = champion
	}

	return bundle, nil
}

// selectChampion trains the menu and returns the lowest held-out-MSE model.
// Models that fail to fit or predict are skipped.
func (s *PredictionEngineService) selectChampion(ctx context.Context, metric string, trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) (ChampionModel, error) {
	menu := []regress.Model{
		regress.NewLinear(),
		regress.NewTree(regress.TreeConfig{}),
		regress.NewForest(regress.ForestConfig{Seed: forestSeed}),
		regress.NewKernelRidge(regress.KernelConfig{}),
		regress.NewNetwork(regress.NetworkConfig{}),
	}

	scored := make(map[string]ChampionModel, len(menu))
	for _, model := range menu {
		if err := model.Fit(trainX, trainY); err != nil {
			s.logger.WarnContext(ctx, "regressor failed to fit",
				"metric", metric, "model", model.Name(), "error", err)
			continue
		}

		predictions := make([]float64, len(testX))
		ok := true
		for i, x := range testX {
			predicted, err := model.Predict(x)
			if err != nil {
				s.logger.WarnContext(ctx, "regressor failed to predict held-out sample",
					"metric", metric, "model", model.Name(), "error", err)
				ok = false
				break
			}
			predictions[i] = predicted
		}
		if !ok {
			continue
		}

		mse, err := regress.MSE(predictions, testY)
		if err != nil {
			return ChampionModel{}, fmt.Errorf("score %s for %s: %w", model.Name(), metric, err)
		}
		scored[model.Name()] = ChampionModel{Model: model, TestMSE: mse}
	}
	if len(scored) == 0 {
		return ChampionModel{}, fmt.Errorf("no regressor produced a usable model for metric %s", metric)
	}

	champion := lowestError(scored, regress.NameLinear, regress.NameTree, regress.NameForest, regress.NameKernel, regress.NameNeural)

	if champion.Model.Name() == regress.NameTree && champion.TestMSE < overfitEpsilon {
		replacement := lowestError(scored, regress.NameForest, regress.NameNeural)
		if replacement.Model == nil {
			replacement = lowestError(scored, regress.NameLinear, regress.NameKernel)
		}
		if replacement.Model != nil {
			s.logger.InfoContext(ctx, "replacing overfit decision tree champion",
				"metric", metric, "tree_mse", champion.TestMSE,
				"replacement", replacement.Model.Name(), "replacement_mse", replacement.TestMSE)
			champion = replacement
		} else {
			return ChampionModel{}, fmt.Errorf("only an overfit decision tree is available for metric %s", metric)
		}
	}

	return champion, nil
}

// lowestError picks the candidate with the smallest test MSE among names,
// preferring earlier names on exact ties. A zero value means none were found.
func lowestError(scored map[string]ChampionModel, names ...string) ChampionModel {
	var best ChampionModel
	for _, name := range names {
		candidate, ok := scored[name]
		if !ok {
			continue
		}
		if best.Model == nil || candidate.TestMSE < best.TestMSE {
			best = candidate
		}
	}
	return best
}

// alertDeclines logs the decline alert. Alerting is a side effect and never
// gates returning the forecast.
func (s *PredictionEngineService) alertDeclines(ctx context.Context, f *forecast.Forecast) {
	if f == nil || len(f.DecliningMetrics) == 0 {
		return
	}
	for _, metric := range f.DecliningMetrics {
		s.logger.WarnContext(ctx, "performance decline predicted",
			"metric", metric, "change", f.Metrics[metric].PercentageChange)
	}
}

// effectiveWindow shrinks the configured window on short series so that at
// least minTrainingSamples window/target pairs exist, with a floor of one
// match per window.
func effectiveWindow(configured, seriesLen int) int {
	window := configured
	if maxWindow := seriesLen - minTrainingSamples; window > maxWindow {
		window = maxWindow
	}
	if window < 1 {
		window = 1
	}
	return window
}

// featureRows extracts the feature metrics into one row per match.
func featureRows(series performance.Series) [][]float64 {
	metrics := performance.FeatureMetrics()
	rows := make([][]float64, len(series))
	for i, m := range series {
		row := make([]float64, len(metrics))
		for j, metric := range metrics {
			row[j] = m.MetricValue(metric)
		}
		rows[i] = row
	}
	return rows
}

func flattenRows(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}
