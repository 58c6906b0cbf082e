package search

import (
	"sort"

	"github.com/fusegate/fusegate/internal/domain/search/method"
	"github.com/fusegate/fusegate/internal/domain/search/result"
)

// fuse merges a vector-ranked list and a text-ranked list into one
// ranked list of at most k items. Output is strictly descending by
// combined score with ties broken by ascending id, and bit-identical
// across repeated calls with the same inputs.
//
// An empty list on either side degenerates to ranking by the other
// list alone, scaled by its weight.
func fuse(v, t result.List, k int, alpha float64, m method.Method, k0 int) result.List {
	// Re-sort defensively so ranks and normalization never depend on
	// the adapters' tie ordering.
	v = sortedCopy(v)
	t = sortedCopy(t)

	var scores map[string]float64
	switch m {
	case method.RRF:
		scores = fuseRRF(v, t, alpha, k0)
	case method.CombSUM:
		scores = fuseCombSUM(v, t)
	case method.CombMNZ:
		scores = fuseCombMNZ(v, t)
	case method.Borda:
		scores = fuseBorda(v, t, alpha)
	default:
		scores = fuseWeightedSum(v, t, alpha)
	}

	fused := make(result.List, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, result.New(id, score))
	}
	fused.Sort()
	return fused.Truncate(k)
}

// fuseWeightedSum combines min-max normalized scores:
// alpha*norm_v + (1-alpha)*norm_t; a side missing an item contributes 0.
// A side whose weight is exactly 0 is dropped from the candidate union
// entirely, so alpha=1 ranks by the vector list alone and alpha=0 by
// the text list alone: its zero-scored items would otherwise tie with
// the weighted list's minimum and win on the id tie-break.
func fuseWeightedSum(v, t result.List, alpha float64) map[string]float64 {
	if alpha == 1 {
		t = nil
	}
	if alpha == 0 {
		v = nil
	}

	nv := v.Normalize()
	nt := t.Normalize()

	scores := make(map[string]float64, len(nv)+len(nt))
	for id, s := range nv {
		scores[id] += alpha * s
	}
	for id, s := range nt {
		scores[id] += (1 - alpha) * s
	}
	return scores
}

// fuseRRF is Reciprocal Rank Fusion:
// alpha/(k0+rank_v) + (1-alpha)/(k0+rank_t) with 1-based ranks.
// Items absent from a list have infinite rank there, contributing 0.
// Rank-based, so robust to differing score scales.
func fuseRRF(v, t result.List, alpha float64, k0 int) map[string]float64 {
	scores := make(map[string]float64, len(v)+len(t))
	for id, rank := range v.Ranks() {
		scores[id] += alpha / float64(k0+rank)
	}
	for id, rank := range t.Ranks() {
		scores[id] += (1 - alpha) / float64(k0+rank)
	}
	return scores
}

// fuseCombSUM sums min-max normalized scores across the lists an item
// appears in. Alpha is not consulted; both lists weigh equally.
func fuseCombSUM(v, t result.List) map[string]float64 {
	nv := v.Normalize()
	nt := t.Normalize()

	scores := make(map[string]float64, len(nv)+len(nt))
	for id, s := range nv {
		scores[id] += s
	}
	for id, s := range nt {
		scores[id] += s
	}
	return scores
}

// fuseCombMNZ multiplies the CombSUM score by the number of lists
// containing the item, rewarding items found by both rankers.
func fuseCombMNZ(v, t result.List) map[string]float64 {
	nv := v.Normalize()
	nt := t.Normalize()

	scores := make(map[string]float64, len(nv)+len(nt))
	for id, s := range nv {
		scores[id] += s
	}
	for id, s := range nt {
		scores[id] += s
	}
	for id := range scores {
		hits := 0.0
		if _, ok := nv[id]; ok {
			hits++
		}
		if _, ok := nt[id]; ok {
			hits++
		}
		scores[id] *= hits
	}
	return scores
}

// fuseBorda assigns positional points per list: pool - rank + 1, where
// pool is the larger candidate list size, so an item missing from a
// list earns nothing there. Points are alpha-weighted across lists.
func fuseBorda(v, t result.List, alpha float64) map[string]float64 {
	pool := len(v)
	if len(t) > pool {
		pool = len(t)
	}

	scores := make(map[string]float64, len(v)+len(t))
	for id, rank := range v.Ranks() {
		scores[id] += alpha * float64(pool-rank+1)
	}
	for id, rank := range t.Ranks() {
		scores[id] += (1 - alpha) * float64(pool-rank+1)
	}
	return scores
}

func sortedCopy(l result.List) result.List {
	cp := make(result.List, len(l))
	copy(cp, l)
	sort.SliceStable(cp, func(i, j int) bool {
		if cp[i].Score() != cp[j].Score() {
			return cp[i].Score() > cp[j].Score()
		}
		return cp[i].ID() < cp[j].ID()
	})
	return cp
}
