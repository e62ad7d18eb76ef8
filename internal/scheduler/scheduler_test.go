package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"unletterbox/internal/logging"
)

func TestRunOnceHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := RunOnce(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("cycle ran after cancellation")
	}
}

func TestRunRejectsZeroInterval(t *testing.T) {
	err := Run(context.Background(), 0, func(context.Context) error { return nil }, logging.Discard())
	if !errors.Is(err, errInterval) {
		t.Errorf("expected errInterval, got %v", err)
	}
}

// TestRunRepeatsAndSurvivesFailures verifies a failing cycle is logged and
// later cycles still run.
func TestRunRepeatsAndSurvivesFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var n atomic.Int32
	cycle := func(context.Context) error {
		if n.Add(1) == 3 {
			cancel()
		}
		if n.Load() == 1 {
			return errors.New("first cycle failed")
		}
		return nil
	}

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- Run(ctx, 10*time.Millisecond, cycle, logging.NewWriter(&buf, false)) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}

	if got := n.Load(); got < 3 {
		t.Errorf("expected at least 3 cycles, got %d", got)
	}
	if !strings.Contains(buf.String(), "[ERROR] Watch cycle failed") {
		t.Errorf("failed cycle not logged: %q", buf.String())
	}
}
