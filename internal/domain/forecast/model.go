package forecast

import (
	"time"

	"github.com/playpulse/playpulse/internal/domain/performance"
)

// Forecast methods. The trend path covers series too short for windowed
// modeling; the model path runs the per-metric champion regressors.
const (
	MethodTrend = "trend"
	MethodModel = "model"
)

// Run statuses carried on completed payloads.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// MetricForecast is the next-match projection for one metric.
type MetricForecast struct {
	CurrentValue     float64 `json:"current_value"`
	PredictedValue   float64 `json:"predicted_value"`
	PercentageChange float64 `json:"percentage_change"`
}

// Forecast is the per-metric projection set for one series snapshot.
type Forecast struct {
	Method           string                    `json:"method"`
	Metrics          map[string]MetricForecast `json:"metrics"`
	DecliningMetrics []string                  `json:"declining_metrics"`
}

// RunResult is the full payload of a completed analysis run. It is what the
// result cache stores and what pollers receive.
type RunResult struct {
	Status        string             `json:"status"`
	PlayerID      int64              `json:"player_id"`
	PlayerName    string             `json:"player_name"`
	MatchesFound  int                `json:"matches_found"`
	Performances  performance.Series `json:"performances"`
	Predictions   *Forecast          `json:"predictions,omitempty"`
	ProcessingSec float64            `json:"processing_time"`
	GeneratedAt   time.Time          `json:"generated_at"`
}
