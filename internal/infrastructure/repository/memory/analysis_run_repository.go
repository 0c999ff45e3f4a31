package memory

import (
	"context"
	"sync"
	"time"

	"github.com/playpulse/playpulse/internal/domain/forecast"
)

// AnalysisRunRepository archives completed runs in process memory. It stands
// in for the postgres archive when no database is configured.
type AnalysisRunRepository struct {
	mu     sync.RWMutex
	nextID int64
	runs   []forecast.RunRecord
}

func NewAnalysisRunRepository() *AnalysisRunRepository {
	return &AnalysisRunRepository{nextID: 1}
}

var _ forecast.Repository = (*AnalysisRunRepository)(nil)

func (r *AnalysisRunRepository) SaveRun(_ context.Context, rec forecast.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ID = r.nextID
	r.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r.runs = append(r.runs, rec)

	return nil
}

// ListRecentByPlayer returns the player's runs newest first. limit <= 0 means
// no cap.
func (r *AnalysisRunRepository) ListRecentByPlayer(_ context.Context, playerID int64, limit int) ([]forecast.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []forecast.RunRecord
	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].PlayerID != playerID {
			continue
		}
		out = append(out, r.runs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return out, nil
}
