package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle caps the request rate shared by all workers of a run.
// A nil *Throttle never blocks.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a Throttle admitting rps requests per second with a
// burst of one. It returns nil when rps is not positive.
func NewThrottle(rps float64) *Throttle {
	if rps <= 0 {
		return nil
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Wait blocks until a request may be sent or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}

// Limit returns the configured requests per second, 0 when disabled.
func (t *Throttle) Limit() float64 {
	if t == nil {
		return 0
	}
	return float64(t.limiter.Limit())
}
