package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_CollapsesConcurrentCalls(t *testing.T) {
	t.Parallel()

	var g SingleFlight
	var executions atomic.Int32
	var sharedCount atomic.Int32

	entered := make(chan struct{})
	release := make(chan struct{})

	call := func() {
		val, err, shared := g.Do("events:3749133", func() (any, error) {
			executions.Add(1)
			<-release
			return "payload", nil
		})
		if err != nil {
			t.Errorf("collapsed call failed: %v", err)
		}
		if val != "payload" {
			t.Errorf("unexpected value: %v", val)
		}
		if shared {
			sharedCount.Add(1)
		}
	}

	const callers = 16
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		val, err, shared := g.Do("events:3749133", func() (any, error) {
			executions.Add(1)
			close(entered)
			<-release
			return "payload", nil
		})
		if err != nil || val != "payload" {
			t.Errorf("leader call failed: val=%v err=%v", val, err)
		}
		if shared {
			sharedCount.Add(1)
		}
	}()

	// Followers join only once the leader's fn holds the in-flight entry,
	// and the entry is released only after they have had time to block on it.
	<-entered
	wg.Add(callers - 1)
	for i := 0; i < callers-1; i++ {
		go func() {
			defer wg.Done()
			call()
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := executions.Load(); got != 1 {
		t.Fatalf("expected one execution, got %d", got)
	}
	if got := sharedCount.Load(); got != callers-1 {
		t.Fatalf("expected %d shared results, got %d", callers-1, got)
	}
}

func TestSingleFlight_DistinctKeysRunIndependently(t *testing.T) {
	t.Parallel()

	var g SingleFlight
	if _, err, _ := g.Do("a", func() (any, error) { return 1, nil }); err != nil {
		t.Fatalf("key a: %v", err)
	}
	if _, err, _ := g.Do("b", func() (any, error) { return nil, errors.New("boom") }); err == nil {
		t.Fatal("expected key b error to propagate")
	}

	// The leader's error is not sticky; the next call runs fresh.
	val, err, shared := g.Do("b", func() (any, error) { return 2, nil })
	if err != nil || shared || val != 2 {
		t.Fatalf("unexpected retry outcome: val=%v err=%v shared=%v", val, err, shared)
	}
}
