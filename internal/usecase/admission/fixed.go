package admission

import (
	"time"

	"github.com/fusegate/fusegate/internal/domain/tenant"
)

// fixedWindow counts requests in the current wall-clock window and
// resets when it rolls over. Bursts at window boundaries are an
// accepted trade-off.
type fixedWindow struct {
	windows []fixedCounter
}

type fixedCounter struct {
	win   tenant.Window
	start time.Time
	count int
}

func newFixedWindow(limits tenant.Limits) *fixedWindow {
	ws := limits.Windows()
	counters := make([]fixedCounter, len(ws))
	for i, w := range ws {
		counters[i] = fixedCounter{win: w}
	}
	return &fixedWindow{windows: counters}
}

func (f *fixedWindow) check(now time.Time) verdict {
	// First pass: roll over and verify every window. No counter moves
	// until all windows admit, so a rejection never consumes budget.
	for i := range f.windows {
		c := &f.windows[i]
		start := now.Truncate(c.win.Length)
		if !start.Equal(c.start) {
			c.start = start
			c.count = 0
		}
		if c.count >= c.win.Limit {
			return verdict{
				retryAfter: c.start.Add(c.win.Length).Sub(now),
				limit:      c.win.Name,
			}
		}
	}

	for i := range f.windows {
		f.windows[i].count++
	}
	return verdict{ok: true}
}

func (f *fixedWindow) deferrable() bool { return false }
