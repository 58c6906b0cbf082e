// Package fusioncache is a bounded, time-expiring store for fused
// result lists, collapsing concurrent identical requests into a single
// computation.
package fusioncache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/fusegate/fusegate/internal/domain/search/result"
)

// ComputeFn produces the value for a fingerprint on cache miss.
type ComputeFn func(ctx context.Context) (result.List, error)

type entry struct {
	list      result.List
	expiresAt time.Time
}

// Cache stores fused result lists keyed by request fingerprint.
// LRU-bounded, lazily expiring, with at most one concurrent computation
// per fingerprint process-wide.
type Cache struct {
	entries    *lru.Cache[string, entry]
	group      singleflight.Group
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	now        func() time.Time
}

// New creates a result cache capped at maxEntries.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), may be nil.
func New(maxEntries int, ttl time.Duration, cacheTotal *prometheus.CounterVec) (*Cache, error) {
	entries, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Cache{
		entries:    entries,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		now:        time.Now,
	}, nil
}

// WithClock overrides the cache's time source.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// GetOrCompute returns the cached list for the fingerprint, or computes
// it. Concurrent callers with the same fingerprint share one execution
// of compute and observe the same value. Compute failures are never
// stored; the error propagates to every waiter.
//
// Returns hit=true only when a fresh stored entry was served.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, compute ComputeFn) (result.List, bool, error) {
	if e, ok := c.entries.Get(fingerprint); ok {
		if c.now().Before(e.expiresAt) {
			c.incCache("hit")
			return e.list, true, nil
		}
		c.entries.Remove(fingerprint)
	}
	c.incCache("miss")

	// The leader runs detached from the request's cancellation scope,
	// so a cancelled leader never orphans waiters joining mid-flight.
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(fingerprint, func() (any, error) {
		list, err := compute(detached)
		if err != nil {
			return nil, err
		}
		c.entries.Add(fingerprint, entry{list: list, expiresAt: c.now().Add(c.ttl)})
		return list, nil
	})

	select {
	case <-ctx.Done():
		// Abandon the wait; the computation completes in the background.
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(result.List), false, nil
	}
}

// Len returns the number of stored entries, expired included.
func (c *Cache) Len() int { return c.entries.Len() }

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
