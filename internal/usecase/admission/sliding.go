package admission

import (
	"time"

	"github.com/fusegate/fusegate/internal/domain/tenant"
)

// slidingWindow approximates a true sliding window by weighting the
// previous window's count by its fractional overlap with the current
// instant. Smooths boundary bursts at O(1) memory per tenant.
type slidingWindow struct {
	windows []slidingCounter
}

type slidingCounter struct {
	win   tenant.Window
	start time.Time
	prev  int
	curr  int
}

func newSlidingWindow(limits tenant.Limits) *slidingWindow {
	ws := limits.Windows()
	counters := make([]slidingCounter, len(ws))
	for i, w := range ws {
		counters[i] = slidingCounter{win: w}
	}
	return &slidingWindow{windows: counters}
}

func (s *slidingWindow) check(now time.Time) verdict {
	for i := range s.windows {
		c := &s.windows[i]
		c.roll(now)

		elapsed := now.Sub(c.start)
		overlap := 1 - float64(elapsed)/float64(c.win.Length)
		weighted := float64(c.prev)*overlap + float64(c.curr)
		if weighted+1 > float64(c.win.Limit) {
			return verdict{
				retryAfter: c.start.Add(c.win.Length).Sub(now),
				limit:      c.win.Name,
			}
		}
	}

	for i := range s.windows {
		s.windows[i].curr++
	}
	return verdict{ok: true}
}

// roll advances the counter to the window containing now.
func (c *slidingCounter) roll(now time.Time) {
	start := now.Truncate(c.win.Length)
	switch {
	case start.Equal(c.start):
	case start.Equal(c.start.Add(c.win.Length)):
		c.prev = c.curr
		c.curr = 0
		c.start = start
	default:
		// Gap longer than one window: no overlap remains.
		c.prev = 0
		c.curr = 0
		c.start = start
	}
}

func (s *slidingWindow) deferrable() bool { return false }
