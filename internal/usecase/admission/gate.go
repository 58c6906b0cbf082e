// Package admission decides whether a request proceeds, is rejected, or
// is deferred, based on per-tenant budgets.
package admission

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fusegate/fusegate/internal/domain"
	"github.com/fusegate/fusegate/internal/domain/tenant"
)

const shardCount = 32

// Gate is the rate admission gate. Safe for unbounded concurrent
// callers; state is sharded per (tenant, op class) so unrelated tenants
// never contend on one lock.
type Gate struct {
	defaults  tenant.Budget
	overrides map[string]tenant.Budget
	maxDefer  time.Duration
	decisions *prometheus.CounterVec
	now       func() time.Time
	shards    [shardCount]gateShard
}

type gateShard struct {
	mu      sync.RWMutex
	entries map[string]*gateEntry
}

// gateEntry is the budget state for one (tenant, op class) pair.
// entry.mu serializes mutations so exactly one logical update wins per
// request.
type gateEntry struct {
	mu       sync.Mutex
	strat    strategy
	strategy tenant.Strategy
}

// NewGate creates an admission gate. defaults apply to tenants without
// an override; budget records are created lazily on first request.
// decisions is a counter vec with labels (strategy, outcome), may be nil.
func NewGate(
	defaults tenant.Budget,
	overrides map[string]tenant.Budget,
	maxDefer time.Duration,
	decisions *prometheus.CounterVec,
) *Gate {
	g := &Gate{
		defaults:  defaults,
		overrides: overrides,
		maxDefer:  maxDefer,
		decisions: decisions,
		now:       time.Now,
	}
	for i := range g.shards {
		g.shards[i].entries = make(map[string]*gateEntry)
	}
	return g
}

// WithClock overrides the gate's time source.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// CheckAndConsume decides whether the request proceeds. It never blocks
// beyond lock acquisition; Defer waits are caller-controlled.
func (g *Gate) CheckAndConsume(ctx context.Context, tenantID, opClass string) Decision {
	if err := ctx.Err(); err != nil {
		// Abandoned wait: no budget is consumed.
		return Decision{Outcome: Reject}
	}
	if opClass == "" {
		opClass = domain.DefaultOpClass
	}

	e := g.entry(tenantID, opClass)

	e.mu.Lock()
	v := e.strat.check(g.now())
	canDefer := e.strat.deferrable()
	e.mu.Unlock()

	d := Decision{Outcome: Allow}
	if !v.ok {
		d = Decision{Outcome: Reject, RetryAfter: v.retryAfter, Limit: v.limit}
		if canDefer && v.retryAfter > 0 && v.retryAfter <= g.maxDefer {
			d.Outcome = Defer
		}
	}

	if g.decisions != nil {
		g.decisions.WithLabelValues(string(e.strategy), string(d.Outcome)).Inc()
	}
	return d
}

// entry returns the budget state for a (tenant, op class) pair,
// lazily creating it with the tenant's configured or default budget.
// A missing record is first use, not an error.
func (g *Gate) entry(tenantID, opClass string) *gateEntry {
	key := tenantID + "\x00" + opClass
	shard := &g.shards[shardIndex(key)]

	shard.mu.RLock()
	e, ok := shard.entries[key]
	shard.mu.RUnlock()
	if ok {
		return e
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if e, ok = shard.entries[key]; ok {
		return e
	}

	budget := g.defaults
	if override, ok := g.overrides[tenantID]; ok {
		budget = override
	}
	e = &gateEntry{strat: newStrategy(budget), strategy: budget.Strategy()}
	shard.entries[key] = e
	return e
}

func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}
