package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle paces file processing to a maximum number of files per second.
// A nil Throttle never waits.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a Throttle for filesPerSecond, or nil when the rate is
// zero (unlimited).
func NewThrottle(filesPerSecond float64, burst int) *Throttle {
	if filesPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(filesPerSecond), burst)}
}

// Wait blocks until the next file may be processed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return ctx.Err()
	}
	return t.limiter.Wait(ctx)
}
