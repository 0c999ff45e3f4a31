package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playpulse/playpulse/internal/domain/match"
	"github.com/playpulse/playpulse/internal/domain/player"
)

var salah = player.Player{ID: 5503, Name: "Mohamed Salah"}

func TestMatchCollector_StopsAtMatchQuota(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
		matches: map[[2]int64][]match.Match{
			{9, 281}: {testMatch(104, 14), testMatch(103, 13), testMatch(102, 12), testMatch(101, 11)},
		},
		events: map[int64][]match.EventRecord{
			104: {passEvent(104, salah.ID, salah.Name, "Liverpool", "")},
			103: {passEvent(103, salah.ID, salah.Name, "Liverpool", "")},
			102: {passEvent(102, salah.ID, salah.Name, "Liverpool", "")},
			101: {passEvent(101, salah.ID, salah.Name, "Liverpool", "")},
		},
	}
	service := NewMatchCollectorService(source, MatchCollectorConfig{}, nil)

	got, err := service.Collect(context.Background(), salah, 2)
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 appearances, got=%d", len(got))
	}
	if got[0].Match.ID != 104 || got[1].Match.ID != 103 {
		t.Fatalf("expected the two newest matches, got=[%d %d]", got[0].Match.ID, got[1].Match.ID)
	}
}

func TestMatchCollector_FewerMatchesThanRequestedIsSuccess(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
		matches: map[[2]int64][]match.Match{
			{9, 281}: {testMatch(101, 11)},
		},
		events: map[int64][]match.EventRecord{
			101: {passEvent(101, salah.ID, salah.Name, "Liverpool", "")},
		},
	}
	service := NewMatchCollectorService(source, MatchCollectorConfig{}, nil)

	got, err := service.Collect(context.Background(), salah, 5)
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 appearance, got=%d", len(got))
	}
}

func TestMatchCollector_EmptyCompetitionsDoNotConsumeBudget(t *testing.T) {
	t.Parallel()

	// Competitions 10 and 11 have no matches. Skipping them must leave the
	// single-competition budget intact for 12.
	source := &stubMatchSource{
		competitions: []match.Competition{
			testCompetition(10, 300),
			testCompetition(11, 299),
			testCompetition(12, 298),
		},
		matches: map[[2]int64][]match.Match{
			{12, 298}: {testMatch(202, 11)},
		},
		events: map[int64][]match.EventRecord{
			202: {passEvent(202, salah.ID, salah.Name, "Liverpool", "")},
		},
	}
	service := NewMatchCollectorService(source, MatchCollectorConfig{CompetitionLimit: 1}, nil)

	got, err := service.Collect(context.Background(), salah, 5)
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if len(got) != 1 || got[0].Match.ID != 202 {
		t.Fatalf("expected the appearance from competition 12, got=%+v", got)
	}
}

func TestMatchCollector_InspectedCompetitionsConsumeBudgetWithoutAppearances(t *testing.T) {
	t.Parallel()

	// The player appears only in the fifth of five competitions with data.
	// A budget of 3 bounds event fetching to the first three competitions;
	// the walk must stop there and report NotFound rather than scanning on.
	competitions := make([]match.Competition, 0, 5)
	matches := make(map[[2]int64][]match.Match, 5)
	events := make(map[int64][]match.EventRecord, 5)
	for i := int64(0); i < 5; i++ {
		compID, seasonID := 20+i, 400-i
		matchID := 300 + i
		competitions = append(competitions, testCompetition(compID, seasonID))
		matches[[2]int64{compID, seasonID}] = []match.Match{testMatch(matchID, int(11+i))}
		if i == 4 {
			events[matchID] = []match.EventRecord{passEvent(matchID, salah.ID, salah.Name, "Liverpool", "")}
		} else {
			events[matchID] = []match.EventRecord{passEvent(matchID, 77, "Someone Else", "Arsenal", "")}
		}
	}
	source := &stubMatchSource{competitions: competitions, matches: matches, events: events}
	service := NewMatchCollectorService(source, MatchCollectorConfig{CompetitionLimit: 3}, nil)

	_, err := service.Collect(context.Background(), salah, 5)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after exhausting the budget, got=%v", err)
	}
	if calls := source.eventCalls.Load(); calls != 3 {
		t.Fatalf("expected event fetches for exactly 3 competitions, got=%d", calls)
	}
}

func TestMatchCollector_SkipsMatchWhoseEventsFail(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
		matches: map[[2]int64][]match.Match{
			{9, 281}: {testMatch(103, 13), testMatch(102, 12), testMatch(101, 11)},
		},
		events: map[int64][]match.EventRecord{
			103: {passEvent(103, salah.ID, salah.Name, "Liverpool", "")},
			101: {passEvent(101, salah.ID, salah.Name, "Liverpool", "")},
		},
		eventErrs: map[int64]error{102: errors.New("events unavailable")},
	}
	service := NewMatchCollectorService(source, MatchCollectorConfig{}, nil)

	got, err := service.Collect(context.Background(), salah, 5)
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if len(got) != 2 || got[0].Match.ID != 103 || got[1].Match.ID != 101 {
		t.Fatalf("expected matches 103 and 101, got=%+v", got)
	}
}

func TestMatchCollector_NoAppearancesMeansNotFound(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
		matches: map[[2]int64][]match.Match{
			{9, 281}: {testMatch(101, 11)},
		},
		events: map[int64][]match.EventRecord{
			101: {passEvent(101, 77, "Someone Else", "Arsenal", "")},
		},
	}
	service := NewMatchCollectorService(source, MatchCollectorConfig{}, nil)

	_, err := service.Collect(context.Background(), salah, 5)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}
}

func TestMatchCollector_CapturesTeamContext(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
		matches: map[[2]int64][]match.Match{
			{9, 281}: {testMatch(101, 11)},
		},
		events: map[int64][]match.EventRecord{
			101: {
				passEvent(101, salah.ID, salah.Name, "Liverpool", ""),
				passEvent(101, 66, "Teammate", "Liverpool", ""),
				passEvent(101, 66, "Teammate", "Liverpool", "Incomplete"),
				passEvent(101, 77, "Opponent", "Arsenal", ""),
			},
		},
	}
	service := NewMatchCollectorService(source, MatchCollectorConfig{}, nil)

	got, err := service.Collect(context.Background(), salah, 5)
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 appearance, got=%d", len(got))
	}

	appearance := got[0]
	if appearance.Team != "Liverpool" {
		t.Fatalf("expected team Liverpool, got=%s", appearance.Team)
	}
	if len(appearance.Events) != 1 {
		t.Fatalf("expected only the player's events, got=%d", len(appearance.Events))
	}
	if appearance.TeamPassCompletion == nil {
		t.Fatalf("expected team pass completion to be captured")
	}
	if got, want := *appearance.TeamPassCompletion, 2.0/3.0; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("expected team pass completion 2/3, got=%f", got)
	}
}

func TestMatchCollector_CancelledContextStopsCollection(t *testing.T) {
	t.Parallel()

	source := &stubMatchSource{
		competitions: []match.Competition{testCompetition(9, 281)},
		matches: map[[2]int64][]match.Match{
			{9, 281}: {testMatch(101, 11)},
		},
		events: map[int64][]match.EventRecord{
			101: {passEvent(101, salah.ID, salah.Name, "Liverpool", "")},
		},
	}
	service := NewMatchCollectorService(source, MatchCollectorConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Collect(ctx, salah, 5)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got=%v", err)
	}
}

func TestMatchCollector_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	service := NewMatchCollectorService(&stubMatchSource{}, MatchCollectorConfig{}, nil)

	if _, err := service.Collect(context.Background(), player.Player{}, 5); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty player, got=%v", err)
	}
	if _, err := service.Collect(context.Background(), salah, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero quota, got=%v", err)
	}
}

// stubMatchSource serves fixed data keyed by competition/season and match.
// Maps are read-only after construction so concurrent event prefetches are
// safe; the call counter is atomic.
type stubMatchSource struct {
	competitions    []match.Competition
	competitionsErr error
	matches         map[[2]int64][]match.Match
	matchErrs       map[[2]int64]error
	events          map[int64][]match.EventRecord
	eventErrs       map[int64]error
	eventCalls      atomic.Int32
}

func (s *stubMatchSource) ListCompetitions(context.Context) ([]match.Competition, error) {
	if s.competitionsErr != nil {
		return nil, s.competitionsErr
	}
	return append([]match.Competition(nil), s.competitions...), nil
}

func (s *stubMatchSource) ListMatches(_ context.Context, competitionID, seasonID int64) ([]match.Match, error) {
	key := [2]int64{competitionID, seasonID}
	if err, ok := s.matchErrs[key]; ok {
		return nil, err
	}
	return append([]match.Match(nil), s.matches[key]...), nil
}

func (s *stubMatchSource) ListEvents(_ context.Context, matchID int64) ([]match.EventRecord, error) {
	s.eventCalls.Add(1)
	if err, ok := s.eventErrs[matchID]; ok {
		return nil, err
	}
	return append([]match.EventRecord(nil), s.events[matchID]...), nil
}

func testCompetition(id, seasonID int64) match.Competition {
	return match.Competition{
		ID:         id,
		SeasonID:   seasonID,
		Name:       fmt.Sprintf("Competition %d", id),
		SeasonName: fmt.Sprintf("Season %d", seasonID),
	}
}

func testMatch(id int64, day int) match.Match {
	return match.Match{
		ID:            id,
		Date:          time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		CompetitionID: 9,
		SeasonID:      281,
		HomeTeam:      "Home FC",
		AwayTeam:      "Away FC",
	}
}

func passEvent(matchID, playerID int64, name, team, outcome string) match.EventRecord {
	return match.EventRecord{
		MatchID:    matchID,
		PlayerID:   playerID,
		PlayerName: name,
		Team:       team,
		Type:       match.EventPass,
		Outcome:    outcome,
	}
}
