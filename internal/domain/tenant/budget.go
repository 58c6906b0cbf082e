// Package tenant holds per-tenant admission budget value types.
package tenant

import "time"

// Strategy is the admission strategy for a tenant.
type Strategy string

// Admission strategy constants.
const (
	// FixedWindow counts requests per wall-clock window. Allows bursts
	// at window boundaries; accepted trade-off.
	FixedWindow Strategy = "fixed_window"
	// SlidingWindow weights the previous window by fractional overlap.
	SlidingWindow Strategy = "sliding_window"
	// TokenBucket refills continuously at limit/window up to burst.
	TokenBucket Strategy = "token_bucket"
	// LeakyBucket drains a fixed-capacity queue at constant rate.
	LeakyBucket Strategy = "leaky_bucket"
)

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == FixedWindow || s == SlidingWindow || s == TokenBucket || s == LeakyBucket
}

// Window names reported on rejection.
const (
	LimitPerMinute = "per_minute"
	LimitPerHour   = "per_hour"
	LimitPerDay    = "per_day"
)

// Limits holds per-window request budgets for one tenant.
// A zero limit disables that window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
	Burst     int
}

// Window holds one configured budget window.
type Window struct {
	Name   string
	Limit  int
	Length time.Duration
}

// Windows returns the configured windows in tightest-first order.
func (l Limits) Windows() []Window {
	var ws []Window
	if l.PerMinute > 0 {
		ws = append(ws, Window{Name: LimitPerMinute, Limit: l.PerMinute, Length: time.Minute})
	}
	if l.PerHour > 0 {
		ws = append(ws, Window{Name: LimitPerHour, Limit: l.PerHour, Length: time.Hour})
	}
	if l.PerDay > 0 {
		ws = append(ws, Window{Name: LimitPerDay, Limit: l.PerDay, Length: 24 * time.Hour})
	}
	return ws
}

// Budget couples a tenant's strategy with its limits.
type Budget struct {
	strategy Strategy
	limits   Limits
}

// NewBudget creates a tenant budget.
func NewBudget(strategy Strategy, limits Limits) Budget {
	return Budget{strategy: strategy, limits: limits}
}

// Strategy returns the admission strategy.
func (b Budget) Strategy() Strategy { return b.strategy }

// Limits returns the per-window budgets.
func (b Budget) Limits() Limits { return b.limits }
