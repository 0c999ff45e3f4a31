package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playpulse/playpulse/internal/platform/resilience"
)

type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// Store is an in-process TTL cache with per-entry expiry and a singleflight
// loader. A zero TTL keeps an entry until it is deleted.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	flight  resilience.SingleFlight
}

// NewStore builds a store whose Set and GetOrLoad entries expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(now) {
		delete(s.entries, key)
		return nil, false
	}

	return e.value, true
}

func (s *Store) Set(ctx context.Context, key string, value any) {
	s.SetTTL(ctx, key, value, s.ttl)
}

// SetTTL stores value under key with an explicit lifetime. ttl <= 0 means the
// entry never expires.
func (s *Store) SetTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if key == "" {
		return
	}

	s.mu.Lock()
	s.entries[key] = entry{
		value:     value,
		expiresAt: expiryFrom(time.Now(), ttl),
	}
	s.mu.Unlock()
}

// SetIfAbsent stores value only when no live entry exists under key. The
// check and the write happen under one lock so concurrent callers see exactly
// one winner.
func (s *Store) SetIfAbsent(_ context.Context, key string, value any, ttl time.Duration) bool {
	if key == "" {
		return false
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && !e.expired(now) {
		return false
	}
	s.entries[key] = entry{
		value:     value,
		expiresAt: expiryFrom(now, ttl),
	}

	return true
}

// Update applies fn to the live value under key inside the store lock. fn
// receives the current value and whether a live entry exists, and returns a
// replacement plus whether to write it. Read and write are atomic, so callers
// can build compare-and-swap semantics on top. Reports whether a write
// happened.
func (s *Store) Update(_ context.Context, key string, ttl time.Duration, fn func(current any, exists bool) (any, bool)) bool {
	if key == "" || fn == nil {
		return false
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if ok && e.expired(now) {
		delete(s.entries, key)
		ok = false
	}

	var current any
	if ok {
		current = e.value
	}

	next, write := fn(current, ok)
	if !write {
		return false
	}
	s.entries[key] = entry{
		value:     next,
		expiresAt: expiryFrom(now, ttl),
	}

	return true
}

func (s *Store) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *Store) DeletePrefix(_ context.Context, prefix string) {
	if prefix == "" {
		return
	}

	s.mu.Lock()
	for key := range s.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}

func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		s.Set(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

func expiryFrom(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
