package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/playpulse/playpulse/internal/domain/player"
	"github.com/playpulse/playpulse/internal/platform/logging"
)

type PlayerResolverConfig struct {
	// CompetitionLimit caps how many competitions are scanned before the
	// search gives up.
	CompetitionLimit int

	// MatchSample caps how many of a competition's newest matches have
	// their events inspected.
	MatchSample int
}

func (c PlayerResolverConfig) withDefaults() PlayerResolverConfig {
	if c.CompetitionLimit <= 0 {
		c.CompetitionLimit = 15
	}
	if c.MatchSample <= 0 {
		c.MatchSample = 3
	}
	return c
}

// PlayerResolverService locates a player's canonical identifier and display
// name by sampling recent matches across competitions. Numeric queries match
// the source identifier exactly; everything else matches display names by
// case-insensitive substring.
type PlayerResolverService struct {
	source MatchDataSource
	cfg    PlayerResolverConfig
	logger *logging.Logger
}

func NewPlayerResolverService(source MatchDataSource, cfg PlayerResolverConfig, logger *logging.Logger) *PlayerResolverService {
	if logger == nil {
		logger = logging.Default()
	}

	return &PlayerResolverService{
		source: source,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Resolve returns the first player whose identifier or name matches query.
// The scan is first-found: competitions newest season first, a bounded match
// sample per competition, no ranking of multiple candidates.
func (s *PlayerResolverService) Resolve(ctx context.Context, query string) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerResolverService.Resolve")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return player.Player{}, fmt.Errorf("%w: player query is required", ErrInvalidInput)
	}

	byID, wantID := int64(0), false
	if parsed, err := strconv.ParseInt(query, 10, 64); err == nil && parsed > 0 {
		byID, wantID = parsed, true
	}
	loweredQuery := strings.ToLower(query)

	competitions, err := s.source.ListCompetitions(ctx)
	if err != nil {
		return player.Player{}, fmt.Errorf("list competitions: %w", err)
	}

	scanned := 0
	for _, competition := range competitions {
		if err := ctx.Err(); err != nil {
			return player.Player{}, fmt.Errorf("%w: resolve interrupted", ErrCancelled)
		}
		if scanned >= s.cfg.CompetitionLimit {
			break
		}
		scanned++

		matches, err := s.source.ListMatches(ctx, competition.ID, competition.SeasonID)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping competition during player resolve",
				"competition_id", competition.ID, "season_id", competition.SeasonID, "error", err)
			continue
		}

		sample := matches
		if len(sample) > s.cfg.MatchSample {
			sample = sample[:s.cfg.MatchSample]
		}

		for _, m := range sample {
			events, err := s.source.ListEvents(ctx, m.ID)
			if err != nil {
				s.logger.WarnContext(ctx, "skipping match during player resolve",
					"match_id", m.ID, "error", err)
				continue
			}

			for _, event := range events {
				if event.PlayerID <= 0 || event.PlayerName == "" {
					continue
				}
				if wantID && event.PlayerID == byID {
					return player.Player{ID: event.PlayerID, Name: event.PlayerName}, nil
				}
				if !wantID && strings.Contains(strings.ToLower(event.PlayerName), loweredQuery) {
					return player.Player{ID: event.PlayerID, Name: event.PlayerName}, nil
				}
			}
		}
	}

	return player.Player{}, fmt.Errorf("%w: player %q not found in %d scanned competitions", ErrNotFound, query, scanned)
}
