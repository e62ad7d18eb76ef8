package limiter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNilThrottleNeverWaits(t *testing.T) {
	th := NewThrottle(0, 1)
	if th != nil {
		t.Fatalf("expected nil throttle for zero rate")
	}
	for i := 0; i < 100; i++ {
		if err := th.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}

func TestNilThrottleHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var th *Throttle
	if err := th.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestThrottlePaces(t *testing.T) {
	th := NewThrottle(20, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := th.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	// first token is immediate, four more at 50ms each
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("throttle too fast: %v", elapsed)
	}
}

func TestThrottleCancelled(t *testing.T) {
	th := NewThrottle(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := th.Wait(ctx); err != nil {
		t.Fatalf("first wait should use the burst token: %v", err)
	}
	if err := th.Wait(ctx); err == nil {
		t.Error("expected error waiting past the deadline")
	}
}
