package usecase

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/playpulse/playpulse/internal/domain/match"
	"github.com/playpulse/playpulse/internal/domain/player"
	"github.com/playpulse/playpulse/internal/platform/logging"
)

// MatchDataSource is the external provider surface the resolver and collector
// walk. Implementations retry transient failures internally; empty results
// mean "no data", never an error.
type MatchDataSource interface {
	ListCompetitions(ctx context.Context) ([]match.Competition, error)
	ListMatches(ctx context.Context, competitionID, seasonID int64) ([]match.Match, error)
	ListEvents(ctx context.Context, matchID int64) ([]match.EventRecord, error)
}

type MatchCollectorConfig struct {
	// CompetitionLimit bounds how many competitions with match data are
	// inspected, whether or not the player appears in them. Competitions
	// with no matches at all do not consume the budget.
	CompetitionLimit int

	// FetchConcurrency bounds how many event fetches run at once while a
	// competition's matches are scanned.
	FetchConcurrency int
}

func (c MatchCollectorConfig) withDefaults() MatchCollectorConfig {
	if c.CompetitionLimit <= 0 {
		c.CompetitionLimit = 3
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 4
	}
	return c
}

// MatchCollectorService walks competitions newest season first and gathers
// matches in which the target player appears, together with the player's
// event rows and team context.
type MatchCollectorService struct {
	source MatchDataSource
	cfg    MatchCollectorConfig
	logger *logging.Logger
}

func NewMatchCollectorService(source MatchDataSource, cfg MatchCollectorConfig, logger *logging.Logger) *MatchCollectorService {
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchCollectorService{
		source: source,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Collect gathers up to maxMatches appearances for the target player. Fewer
// than requested is a success with a shorter result; zero appearances after
// exhausting the competition budget is ErrNotFound. Individual fetch failures
// skip the affected match or competition.
func (s *MatchCollectorService) Collect(ctx context.Context, target player.Player, maxMatches int) ([]match.Appearance, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchCollectorService.Collect")
	defer span.End()

	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if maxMatches <= 0 {
		return nil, fmt.Errorf("%w: max matches must be positive", ErrInvalidInput)
	}

	competitions, err := s.source.ListCompetitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}

	appearances := make([]match.Appearance, 0, maxMatches)
	inspected := 0

	for _, competition := range competitions {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: collection interrupted", ErrCancelled)
		}
		if len(appearances) >= maxMatches || inspected >= s.cfg.CompetitionLimit {
			break
		}

		matches, err := s.source.ListMatches(ctx, competition.ID, competition.SeasonID)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping competition after match list failure",
				"competition_id", competition.ID, "season_id", competition.SeasonID, "error", err)
			continue
		}
		if len(matches) == 0 {
			continue
		}
		// Scanning a competition's events is the expensive part, so any
		// competition with match data consumes the inspection budget even
		// when the player never shows up in it.
		inspected++

		found, err := s.collectFromCompetition(ctx, target, matches, maxMatches-len(appearances))
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			appearances = append(appearances, found...)
			s.logger.InfoContext(ctx, "collected matches from competition",
				"competition", competition.Name, "season", competition.SeasonName,
				"matches", len(found), "total", len(appearances))
		}
	}

	if len(appearances) == 0 {
		return nil, fmt.Errorf("%w: no match appearances found for player %q", ErrNotFound, target.Name)
	}

	return appearances, nil
}

// collectFromCompetition scans matches newest first until the remaining quota
// is filled. Event fetches are prefetched per batch; evaluation order stays
// date descending.
func (s *MatchCollectorService) collectFromCompetition(ctx context.Context, target player.Player, matches []match.Match, remaining int) ([]match.Appearance, error) {
	found := make([]match.Appearance, 0, remaining)

	for start := 0; start < len(matches) && len(found) < remaining; start += s.cfg.FetchConcurrency {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: collection interrupted", ErrCancelled)
		}

		end := start + s.cfg.FetchConcurrency
		if end > len(matches) {
			end = len(matches)
		}
		batch := matches[start:end]
		fetched := s.prefetchEvents(ctx, batch)

		for i, m := range batch {
			if len(found) >= remaining {
				break
			}
			if fetched[i].err != nil {
				s.logger.WarnContext(ctx, "skipping match after event fetch failure",
					"match_id", m.ID, "error", fetched[i].err)
				continue
			}

			appearance, ok := buildAppearance(target, m, fetched[i].events)
			if !ok {
				continue
			}
			found = append(found, appearance)
		}
	}

	return found, nil
}

type eventsFetch struct {
	events []match.EventRecord
	err    error
}

func (s *MatchCollectorService) prefetchEvents(ctx context.Context, batch []match.Match) []eventsFetch {
	out := make([]eventsFetch, len(batch))

	p := pool.New().WithMaxGoroutines(s.cfg.FetchConcurrency)
	for i := range batch {
		i := i
		p.Go(func() {
			events, err := s.source.ListEvents(ctx, batch[i].ID)
			out[i] = eventsFetch{events: events, err: err}
		})
	}
	p.Wait()

	return out
}

// buildAppearance extracts the target player's rows from one match's events
// and captures team context. ok is false when the player never appears.
func buildAppearance(target player.Player, m match.Match, events []match.EventRecord) (match.Appearance, bool) {
	playerEvents := make([]match.EventRecord, 0, 64)
	team := ""
	for _, event := range events {
		if event.PlayerID != target.ID {
			continue
		}
		playerEvents = append(playerEvents, event)
		if team == "" && event.Team != "" {
			team = event.Team
		}
	}
	if len(playerEvents) == 0 {
		return match.Appearance{}, false
	}

	appearance := match.Appearance{
		Match:  m,
		Events: playerEvents,
		Team:   team,
	}
	if rate, ok := teamPassCompletion(events, team); ok {
		appearance.TeamPassCompletion = &rate
	}

	return appearance, true
}

// teamPassCompletion computes the team-level pass completion over one match's
// full event set. ok is false when the team is unknown or recorded no passes.
func teamPassCompletion(events []match.EventRecord, team string) (float64, bool) {
	if team == "" {
		return 0, false
	}

	total := 0
	completed := 0
	for _, event := range events {
		if event.Team != team || event.Type != match.EventPass {
			continue
		}
		total++
		if event.Outcome == "" {
			completed++
		}
	}
	if total == 0 {
		return 0, false
	}

	return float64(completed) / float64(total), true
}
