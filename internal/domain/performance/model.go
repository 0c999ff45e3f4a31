package performance

import (
	"fmt"
	"sort"
	"time"
)

// Metric names used across derivation, anomaly filtering and forecasting.
const (
	MetricPassCompletionRate = "pass_completion_rate"
	MetricTotalEvents        = "total_events"
	MetricTotalPasses        = "total_passes"
	MetricDefensiveActions   = "defensive_actions"
	MetricTotalShots         = "total_shots"
	MetricGoals              = "goals"
)

// FeatureMetrics returns the metrics used as model features, in fixed order.
func FeatureMetrics() []string {
	return []string{
		MetricPassCompletionRate,
		MetricTotalEvents,
		MetricTotalPasses,
		MetricDefensiveActions,
	}
}

// MatchMetrics is the per-match reduction of a player's event rows.
type MatchMetrics struct {
	MatchID            int64      `json:"match_id"`
	MatchDate          time.Time  `json:"match_date"`
	Competition        string     `json:"competition"`
	Season             string     `json:"season"`
	HomeTeam           string     `json:"home_team"`
	AwayTeam           string     `json:"away_team"`
	MatchNum           int        `json:"match_num"`
	TotalEvents        int        `json:"total_events"`
	TotalPasses        int        `json:"total_passes"`
	CompletedPasses    int        `json:"completed_passes"`
	PassCompletionRate float64    `json:"pass_completion_rate"`
	TotalShots         int        `json:"total_shots"`
	Goals              int        `json:"goals"`
	DefensiveActions   int        `json:"defensive_actions"`
	TeamPassCompletion *float64   `json:"team_pass_completion,omitempty"`
}

func (m MatchMetrics) Validate() error {
	if m.MatchID <= 0 {
		return fmt.Errorf("match id must be a positive identifier")
	}
	if m.PassCompletionRate < 0 || m.PassCompletionRate > 1 {
		return fmt.Errorf("pass completion rate %f out of [0,1]", m.PassCompletionRate)
	}
	if m.TotalPasses == 0 && m.PassCompletionRate != 0 {
		return fmt.Errorf("pass completion rate must be 0 without passes")
	}

	return nil
}

// MetricValue returns the named metric as a float. Unknown names yield 0.
func (m MatchMetrics) MetricValue(name string) float64 {
	switch name {
	case MetricPassCompletionRate:
		return m.PassCompletionRate
	case MetricTotalEvents:
		return float64(m.TotalEvents)
	case MetricTotalPasses:
		return float64(m.TotalPasses)
	case MetricDefensiveActions:
		return float64(m.DefensiveActions)
	case MetricTotalShots:
		return float64(m.TotalShots)
	case MetricGoals:
		return float64(m.Goals)
	default:
		return 0
	}
}

// Series is a player's per-match metrics ordered oldest to newest.
type Series []MatchMetrics

// SortByDate orders the series date ascending, ties broken by match id so
// the ordering is stable across runs.
func (s Series) SortByDate() {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].MatchDate.Equal(s[j].MatchDate) {
			return s[i].MatchID < s[j].MatchID
		}
		return s[i].MatchDate.Before(s[j].MatchDate)
	})
}

// Renumber assigns the dense 1..N chronological sequence. Callers sort first.
func (s Series) Renumber() {
	for i := range s {
		s[i].MatchNum = i + 1
	}
}

// Values extracts one metric across the series in order.
func (s Series) Values(metric string) []float64 {
	out := make([]float64, len(s))
	for i, m := range s {
		out[i] = m.MetricValue(metric)
	}
	return out
}

// TeamPassCompletions returns the team-level values that are present, along
// with the series indexes they belong to.
func (s Series) TeamPassCompletions() ([]float64, []int) {
	values := make([]float64, 0, len(s))
	indexes := make([]int, 0, len(s))
	for i, m := range s {
		if m.TeamPassCompletion == nil {
			continue
		}
		values = append(values, *m.TeamPassCompletion)
		indexes = append(indexes, i)
	}
	return values, indexes
}
