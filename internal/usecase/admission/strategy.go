package admission

import (
	"time"

	"github.com/fusegate/fusegate/internal/domain/tenant"
)

// verdict is a single strategy check result.
type verdict struct {
	ok         bool
	retryAfter time.Duration
	limit      string
}

// strategy decides whether one request is admitted at the given instant
// and consumes budget when it is. Implementations are not safe for
// concurrent use; the gate serializes calls per (tenant, op class).
type strategy interface {
	// check consumes one request if admitted. Consumption is
	// all-or-nothing across configured windows: a rejection by any
	// window leaves every window untouched.
	check(now time.Time) verdict

	// deferrable reports whether short waits quoted by this strategy
	// are worth re-checking (continuous-refill strategies) as opposed
	// to waiting out a whole window.
	deferrable() bool
}

// newStrategy builds a strategy instance for a tenant budget.
func newStrategy(b tenant.Budget) strategy {
	switch b.Strategy() {
	case tenant.SlidingWindow:
		return newSlidingWindow(b.Limits())
	case tenant.TokenBucket:
		return newTokenBucket(b.Limits())
	case tenant.LeakyBucket:
		return newLeakyBucket(b.Limits())
	default:
		return newFixedWindow(b.Limits())
	}
}
