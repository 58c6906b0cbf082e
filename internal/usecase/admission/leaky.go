package admission

import (
	"time"

	"github.com/fusegate/fusegate/internal/domain/tenant"
)

// leakyBucket models a fixed-capacity queue draining at constant rate.
// Excess requests are rejected immediately; nothing queues across
// process boundaries.
type leakyBucket struct {
	queues []leakyQueue
}

type leakyQueue struct {
	name      string
	capacity  float64
	drainRate float64 // requests per second
	level     float64
	last      time.Time
}

func newLeakyBucket(limits tenant.Limits) *leakyBucket {
	capacity := float64(limits.Burst)
	if capacity < 1 {
		capacity = 1
	}
	ws := limits.Windows()
	queues := make([]leakyQueue, len(ws))
	for i, w := range ws {
		queues[i] = leakyQueue{
			name:      w.Name,
			capacity:  capacity,
			drainRate: float64(w.Limit) / w.Length.Seconds(),
		}
	}
	return &leakyBucket{queues: queues}
}

func (l *leakyBucket) check(now time.Time) verdict {
	// Drain and verify all queues before enqueueing anywhere.
	for i := range l.queues {
		q := &l.queues[i]
		q.drain(now)
		if q.level+1 > q.capacity {
			overflow := q.level + 1 - q.capacity
			return verdict{
				retryAfter: time.Duration(overflow / q.drainRate * float64(time.Second)),
				limit:      q.name,
			}
		}
	}

	for i := range l.queues {
		l.queues[i].level++
	}
	return verdict{ok: true}
}

func (q *leakyQueue) drain(now time.Time) {
	if !q.last.IsZero() {
		elapsed := now.Sub(q.last).Seconds()
		q.level -= elapsed * q.drainRate
		if q.level < 0 {
			q.level = 0
		}
	}
	q.last = now
}

func (l *leakyBucket) deferrable() bool { return true }
