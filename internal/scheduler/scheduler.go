// Package scheduler repeats a run on a fixed interval for watch mode.
package scheduler

import (
	"context"
	"errors"
	"time"
)

// Cycle is one complete run.
type Cycle func(ctx context.Context) error

type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

var errInterval = errors.New("watch interval must be positive")

// RunOnce runs a single cycle unless ctx is already done.
func RunOnce(ctx context.Context, cycle Cycle) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return cycle(ctx)
}

// Run executes cycle immediately and then every interval until ctx is done.
// A failed cycle is logged and the loop carries on.
func Run(ctx context.Context, interval time.Duration, cycle Cycle, logger Logger) error {
	if interval <= 0 {
		return errInterval
	}

	runCycle := func() {
		start := time.Now()
		if err := RunOnce(ctx, cycle); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Watch cycle failed", "error", err)
			return
		}
		logger.Info("Watch cycle complete", "duration", time.Since(start).Round(time.Millisecond))
	}

	runCycle()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch mode shutting down")
			return ctx.Err()
		case <-ticker.C:
			runCycle()
		}
	}
}
