package admission

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/fusegate/fusegate/internal/domain/tenant"
)

// tokenBucket holds one continuously refilled bucket per configured
// window: capacity burst, refill rate limit/window. A request consumes
// one token from every bucket; with tokens < 1 the quoted wait is
// (1 - tokens) / rate, which rate.Reservation computes for us.
type tokenBucket struct {
	buckets []bucket
}

type bucket struct {
	name string
	lim  *rate.Limiter
}

func newTokenBucket(limits tenant.Limits) *tokenBucket {
	burst := limits.Burst
	if burst < 1 {
		burst = 1
	}
	ws := limits.Windows()
	buckets := make([]bucket, len(ws))
	for i, w := range ws {
		buckets[i] = bucket{
			name: w.Name,
			lim:  rate.NewLimiter(rate.Limit(float64(w.Limit)/w.Length.Seconds()), burst),
		}
	}
	return &tokenBucket{buckets: buckets}
}

func (t *tokenBucket) check(now time.Time) verdict {
	reserved := make([]*rate.Reservation, 0, len(t.buckets))

	for _, b := range t.buckets {
		r := b.lim.ReserveN(now, 1)
		delay := r.DelayFrom(now)
		if !r.OK() || delay > 0 {
			// Roll back so a rejection by one bucket leaks no tokens
			// from the others.
			r.CancelAt(now)
			for _, prev := range reserved {
				prev.CancelAt(now)
			}
			return verdict{retryAfter: delay, limit: b.name}
		}
		reserved = append(reserved, r)
	}

	return verdict{ok: true}
}

func (t *tokenBucket) deferrable() bool { return true }
