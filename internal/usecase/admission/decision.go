package admission

import "time"

// Outcome is the admission gate verdict.
type Outcome string

// Gate outcomes.
const (
	// Allow admits the request.
	Allow Outcome = "allow"
	// Reject denies the request; the caller must not retry the
	// underlying operation.
	Reject Outcome = "reject"
	// Defer denies for now; the caller may wait RetryAfter and re-check.
	Defer Outcome = "defer"
)

// Decision is the result of one admission check.
type Decision struct {
	Outcome    Outcome
	RetryAfter time.Duration
	// Limit names the window that triggered a rejection
	// (per_minute, per_hour, per_day) for diagnostics.
	Limit string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Outcome == Allow }
