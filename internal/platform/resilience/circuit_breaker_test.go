package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(3, 10*time.Second, 1)
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		b.RecordFailure()
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed below the threshold, got %s", state)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open at the threshold, got %s", state)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureRun(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(2, 10*time.Second, 1)

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after an interleaved success, got %s", state)
	}
}

func TestCircuitBreaker_HalfOpenProbeClosesOrReopens(t *testing.T) {
	t.Parallel()

	t.Run("probe success closes", func(t *testing.T) {
		t.Parallel()

		b := NewCircuitBreaker(1, 5*time.Second, 1)
		now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
		b.now = func() time.Time { return now }

		b.RecordFailure()
		now = now.Add(6 * time.Second)

		if err := b.Allow(); err != nil {
			t.Fatalf("expected a probe to pass after the cooldown, got %v", err)
		}
		if state := b.State(); state != CircuitStateHalfOpen {
			t.Fatalf("expected half-open during the probe, got %s", state)
		}

		b.RecordSuccess()
		if state := b.State(); state != CircuitStateClosed {
			t.Fatalf("expected closed after the probe succeeded, got %s", state)
		}
	})

	t.Run("probe failure reopens", func(t *testing.T) {
		t.Parallel()

		b := NewCircuitBreaker(1, 5*time.Second, 1)
		now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
		b.now = func() time.Time { return now }

		b.RecordFailure()
		now = now.Add(6 * time.Second)

		if err := b.Allow(); err != nil {
			t.Fatalf("expected a probe to pass after the cooldown, got %v", err)
		}
		b.RecordFailure()
		if state := b.State(); state != CircuitStateOpen {
			t.Fatalf("expected open after the probe failed, got %s", state)
		}
	})
}

func TestCircuitBreaker_HalfOpenBoundsProbes(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker(1, 5*time.Second, 2)
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(6 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("first probe rejected: %v", err)
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("second probe rejected: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected the third concurrent probe to be rejected, got %v", err)
	}
}

func TestNormalizeCircuitBreakerConfig(t *testing.T) {
	t.Parallel()

	got := NormalizeCircuitBreakerConfig(CircuitBreakerConfig{Enabled: true})
	want := DefaultCircuitBreakerConfig()
	if got != want {
		t.Fatalf("unexpected normalized config: %+v", got)
	}

	custom := CircuitBreakerConfig{Enabled: false, FailureThreshold: 9, OpenTimeout: time.Minute, HalfOpenMaxReq: 3}
	if got := NormalizeCircuitBreakerConfig(custom); got != custom {
		t.Fatalf("expected explicit values preserved, got %+v", got)
	}
}
