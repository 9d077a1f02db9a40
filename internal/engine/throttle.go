package engine

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle caps the outbound request rate of a Capability with a shared token bucket.
// Safe for concurrent use.
type Throttle struct {
	next    Capability
	limiter *rate.Limiter
}

// NewThrottle wraps next; rps <= 0 returns next unchanged.
func NewThrottle(next Capability, rps float64, burst int) Capability {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Complete waits for a token, then delegates. A wait aborted by the caller's context is
// reported with the same cause classification as an in-flight call.
func (t *Throttle) Complete(ctx context.Context, p Prompt) (Completion, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		cause := Classify(err)
		if ctx.Err() == nil {
			// Wait refuses when the deadline would pass before a token frees up.
			cause = CauseTimeout
		}
		return Completion{}, &CapabilityError{Cause: cause, Err: err}
	}
	return t.next.Complete(ctx, p)
}
