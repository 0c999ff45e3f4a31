package forecast

import (
	"context"
	"time"
)

// RunRecord is one archived analysis run.
type RunRecord struct {
	ID            int64
	PlayerID      int64
	PlayerName    string
	MaxMatches    int
	MatchesFound  int
	Status        string
	Payload       RunResult
	ProcessingSec float64
	CreatedAt     time.Time
}

// Repository archives completed runs for later inspection.
type Repository interface {
	SaveRun(ctx context.Context, rec RunRecord) error
	ListRecentByPlayer(ctx context.Context, playerID int64, limit int) ([]RunRecord, error)
}
