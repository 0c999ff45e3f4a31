package postgres

import (
	"strings"
	"testing"

	qb "github.com/playpulse/playpulse/internal/platform/querybuilder"
)

func TestAnalysisRunInsertModel_BuildsPositionalInsert(t *testing.T) {
	t.Parallel()

	model := analysisRunInsertModel{
		PlayerID:      5503,
		PlayerName:    "Mohamed Salah",
		MaxMatches:    5,
		MatchesFound:  5,
		Status:        "completed",
		Payload:       `{"status":"completed"}`,
		ProcessingSec: 1.25,
	}

	query, args, err := qb.InsertModel("analysis_runs", model, "")
	if err != nil {
		t.Fatalf("build insert: %v", err)
	}

	if !strings.HasPrefix(query, "INSERT INTO analysis_runs (") {
		t.Fatalf("unexpected query prefix: %s", query)
	}
	for _, col := range []string{"player_id", "player_name", "max_matches", "matches_found", "status", "payload", "processing_seconds"} {
		if !strings.Contains(query, col) {
			t.Fatalf("query missing column %s: %s", col, query)
		}
	}
	if len(args) != 7 {
		t.Fatalf("expected 7 args, got=%d", len(args))
	}
}

func TestRecentRunsQuery_OrdersNewestFirst(t *testing.T) {
	t.Parallel()

	query, args, err := recentRunsQuery(5503, 10)
	if err != nil {
		t.Fatalf("build select: %v", err)
	}

	if !strings.Contains(query, "ORDER BY created_at DESC, id DESC") {
		t.Fatalf("query missing newest-first ordering: %s", query)
	}
	if !strings.Contains(query, "LIMIT 10") {
		t.Fatalf("query missing limit: %s", query)
	}
	if len(args) != 1 || args[0] != int64(5503) {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestRecentRunsQuery_OmitsLimitWhenUnbounded(t *testing.T) {
	t.Parallel()

	query, _, err := recentRunsQuery(5503, 0)
	if err != nil {
		t.Fatalf("build select: %v", err)
	}
	if strings.Contains(query, "LIMIT") {
		t.Fatalf("unbounded query carries a limit: %s", query)
	}
}
