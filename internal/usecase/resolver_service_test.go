package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/playpulse/playpulse/internal/domain/match"
)

func TestPlayerResolver_NumericQueryMatchesIdentifierOnly(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
		matches: map[[2]int64][]match.Match{
			{9, 281}: {testMatch(101, 11)},
		},
		events: map[int64][]match.EventRecord{
			101: {
				// A display name that happens to contain the digits must not
				// win over the identifier match.
				passEvent(101, 99, "5503 Lookalike", "Arsenal", ""),
				passEvent(101, salah.ID, salah.Name, "Liverpool", ""),
			},
		},
	}
	service := NewPlayerResolverService(source, PlayerResolverConfig{}, nil)

	got, err := service.Resolve(context.Background(), "5503")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got.ID != salah.ID || got.Name != salah.Name {
		t.Fatalf("expected %+v, got=%+v", salah, got)
	}
}

func TestPlayerResolver_NameMatchesCaseInsensitiveSubstring(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
		matches: map[[2]int64][]match.Match{
			{9, 281}: {testMatch(101, 11)},
		},
		events: map[int64][]match.EventRecord{
			101: {
				passEvent(101, 77, "Virgil van Dijk", "Liverpool", ""),
				passEvent(101, salah.ID, salah.Name, "Liverpool", ""),
			},
		},
	}
	service := NewPlayerResolverService(source, PlayerResolverConfig{}, nil)

	got, err := service.Resolve(context.Background(), "SALAH")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got.ID != salah.ID {
		t.Fatalf("expected player %d, got=%+v", salah.ID, got)
	}
}

func TestPlayerResolver_CompetitionBudgetBoundsScan(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{
			testCompetition(10, 300),
			testCompetition(11, 299),
			testCompetition(12, 298),
		},
		matches: map[[2]int64][]match.Match{
			{10, 300}: {testMatch(201, 13)},
			{11, 299}: {testMatch(202, 12)},
			{12, 298}: {testMatch(203, 11)},
		},
		events: map[int64][]match.EventRecord{
			201: {passEvent(201, 77, "Someone Else", "Arsenal", "")},
			202: {passEvent(202, 78, "Another Player", "Chelsea", "")},
			203: {passEvent(203, salah.ID, salah.Name, "Liverpool", "")},
		},
	}
	service := NewPlayerResolverService(source, PlayerResolverConfig{CompetitionLimit: 2}, nil)

	_, err := service.Resolve(context.Background(), "Salah")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}
	if !strings.Contains(err.Error(), "2 scanned competitions") {
		t.Fatalf("expected the scanned count in the error, got=%v", err)
	}
}

func TestPlayerResolver_MatchSampleBoundsEventInspection(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
		matches: map[[2]int64][]match.Match{
			{9, 281}: {testMatch(202, 12), testMatch(201, 11)},
		},
		events: map[int64][]match.EventRecord{
			202: {passEvent(202, 77, "Someone Else", "Arsenal", "")},
			201: {passEvent(201, salah.ID, salah.Name, "Liverpool", "")},
		},
	}
	service := NewPlayerResolverService(source, PlayerResolverConfig{MatchSample: 1}, nil)

	_, err := service.Resolve(context.Background(), "Salah")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}
	if calls := source.eventCalls.Load(); calls != 1 {
		t.Fatalf("expected 1 event fetch, got=%d", calls)
	}
}

func TestPlayerResolver_FailedCompetitionStillConsumesBudget(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{
			testCompetition(10, 300),
			testCompetition(11, 299),
		},
		matchErrs: map[[2]int64]error{
			{10, 300}: errors.New("matches unavailable"),
		},
		matches: map[[2]int64][]match.Match{
			{11, 299}: {testMatch(201, 11)},
		},
		events: map[int64][]match.EventRecord{
			201: {passEvent(201, salah.ID, salah.Name, "Liverpool", "")},
		},
	}

	service := NewPlayerResolverService(source, PlayerResolverConfig{CompetitionLimit: 1}, nil)
	_, err := service.Resolve(context.Background(), "Salah")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound when the only budgeted competition fails, got=%v", err)
	}
	if !strings.Contains(err.Error(), "1 scanned competitions") {
		t.Fatalf("expected the scanned count in the error, got=%v", err)
	}

	service = NewPlayerResolverService(source, PlayerResolverConfig{CompetitionLimit: 2}, nil)
	got, err := service.Resolve(context.Background(), "Salah")
	if err != nil {
		t.Fatalf("Resolve error with budget for the second competition: %v", err)
	}
	if got.ID != salah.ID {
		t.Fatalf("expected player %d, got=%+v", salah.ID, got)
	}
}

func TestPlayerResolver_EmptyQueryRejected(t *testing.T) {
	t.Parallel()

	service := NewPlayerResolverService(&stubMatchSource{}, PlayerResolverConfig{}, nil)

	if _, err := service.Resolve(context.Background(), "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got=%v", err)
	}
}

func TestPlayerResolver_CancelledContextStopsScan(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
	}
	service := NewPlayerResolverService(source, PlayerResolverConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Resolve(ctx, "Salah")
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got=%v", err)
	}
}
