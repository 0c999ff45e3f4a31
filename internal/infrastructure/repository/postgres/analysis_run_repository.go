package postgres

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/playpulse/playpulse/internal/domain/forecast"
	qb "github.com/playpulse/playpulse/internal/platform/querybuilder"
)

// AnalysisRunRepository archives completed runs in the analysis_runs table.
// The full result payload is stored as JSONB next to the queryable columns.
type AnalysisRunRepository struct {
	db *sqlx.DB
}

func NewAnalysisRunRepository(db *sqlx.DB) *AnalysisRunRepository {
	return &AnalysisRunRepository{db: db}
}

var _ forecast.Repository = (*AnalysisRunRepository)(nil)

func (r *AnalysisRunRepository) SaveRun(ctx context.Context, rec forecast.RunRecord) error {
	payload, err := sonic.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("encode run payload: %w", err)
	}

	insertModel := analysisRunInsertModel{
		PlayerID:      rec.PlayerID,
		PlayerName:    rec.PlayerName,
		MaxMatches:    rec.MaxMatches,
		MatchesFound:  rec.MatchesFound,
		Status:        rec.Status,
		Payload:       string(payload),
		ProcessingSec: rec.ProcessingSec,
	}

	query, args, err := qb.InsertModel("analysis_runs", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert analysis run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert analysis run player_id=%d: %w", rec.PlayerID, err)
	}

	return nil
}

func (r *AnalysisRunRepository) ListRecentByPlayer(ctx context.Context, playerID int64, limit int) ([]forecast.RunRecord, error) {
	query, args, err := recentRunsQuery(playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("build select analysis runs query: %w", err)
	}

	var rows []analysisRunTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select analysis runs player_id=%d: %w", playerID, err)
	}

	out := make([]forecast.RunRecord, 0, len(rows))
	for _, row := range rows {
		var payload forecast.RunResult
		if err := sonic.Unmarshal([]byte(row.Payload), &payload); err != nil {
			return nil, fmt.Errorf("decode run payload id=%d: %w", row.ID, err)
		}
		out = append(out, forecast.RunRecord{
			ID:            row.ID,
			PlayerID:      row.PlayerID,
			PlayerName:    row.PlayerName,
			MaxMatches:    row.MaxMatches,
			MatchesFound:  row.MatchesFound,
			Status:        row.Status,
			Payload:       payload,
			ProcessingSec: row.ProcessingSec,
			CreatedAt:     row.CreatedAt,
		})
	}

	return out, nil
}

func recentRunsQuery(playerID int64, limit int) (string, []any, error) {
	builder := qb.Select("*").From("analysis_runs").
		Where(qb.Eq("player_id", playerID)).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	return builder.ToSQL()
}
