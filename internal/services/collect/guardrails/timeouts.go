// Package guardrails holds time budget helpers for collection runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for a single proceeding.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Proceeding caps fetching every statement of one proceeding
	Proceeding time.Duration

	// Flush caps one backend write (batch or checkpoint)
	Flush time.Duration
}

// ForProceeding returns a context limited by the proceeding budget without extending any parent deadline
func ForProceeding(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Proceeding)
}

// ForFlush returns a sub context for one backend write
func ForFlush(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Flush)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout takes the tighter of d and the parent remainder; d <= 0 only adds a cancel
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
