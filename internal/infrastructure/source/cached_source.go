// Package source decorates the external match data source with a read-through
// cache. Competition and match lists are stable within a run and shared by the
// resolver and the collector; event payloads are large and read once, so they
// bypass the cache entirely.
package source

import (
	"context"
	"fmt"

	"github.com/playpulse/playpulse/internal/domain/match"
	basecache "github.com/playpulse/playpulse/internal/platform/cache"
	"github.com/playpulse/playpulse/internal/usecase"
)

type CachedSource struct {
	next  usecase.MatchDataSource
	cache *basecache.Store
}

func NewCachedSource(next usecase.MatchDataSource, cache *basecache.Store) *CachedSource {
	return &CachedSource{next: next, cache: cache}
}

func (s *CachedSource) ListCompetitions(ctx context.Context) ([]match.Competition, error) {
	v, err := s.cache.GetOrLoad(ctx, "source:competitions", func(ctx context.Context) (any, error) {
		items, err := s.next.ListCompetitions(ctx)
		if err != nil {
			return nil, err
		}
		return append([]match.Competition(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]match.Competition)
	return append([]match.Competition(nil), items...), nil
}

func (s *CachedSource) ListMatches(ctx context.Context, competitionID, seasonID int64) ([]match.Match, error) {
	key := fmt.Sprintf("source:matches:%d:%d", competitionID, seasonID)
	v, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := s.next.ListMatches(ctx, competitionID, seasonID)
		if err != nil {
			return nil, err
		}
		return append([]match.Match(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]match.Match)
	return append([]match.Match(nil), items...), nil
}

// ListEvents is a passthrough: one match's events are consumed exactly once
// per run and caching them would pin large payloads for no reuse.
func (s *CachedSource) ListEvents(ctx context.Context, matchID int64) ([]match.EventRecord, error) {
	return s.next.ListEvents(ctx, matchID)
}
