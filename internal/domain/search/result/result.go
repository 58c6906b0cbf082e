package result

import "sort"

// Item is a single ranked hit produced by a ranking source.
// Scores are comparable within one source only.
type Item struct {
	id    string
	score float64
}

// New creates a ranked item.
func New(id string, score float64) Item {
	return Item{id: id, score: score}
}

// ID returns the item identifier.
func (i Item) ID() string { return i.id }

// Score returns the source-relative score.
func (i Item) Score() float64 { return i.score }

// List is an ordered ranked list. Rank is the 1-based position.
type List []Item

// Sort orders the list by descending score, ties broken by ascending id,
// so ranking is deterministic regardless of source iteration order.
func (l List) Sort() {
	sort.Slice(l, func(i, j int) bool {
		if l[i].score != l[j].score {
			return l[i].score > l[j].score
		}
		return l[i].id < l[j].id
	})
}

// Truncate returns the list capped at n items.
func (l List) Truncate(n int) List {
	if n >= 0 && len(l) > n {
		return l[:n]
	}
	return l
}

// Normalize min-max scales the list's scores into [0,1] using the
// list's own extremes. A single-item or zero-variance list maps every
// score to 1.0.
func (l List) Normalize() map[string]float64 {
	norm := make(map[string]float64, len(l))
	if len(l) == 0 {
		return norm
	}

	lo, hi := l[0].score, l[0].score
	for _, it := range l[1:] {
		if it.score < lo {
			lo = it.score
		}
		if it.score > hi {
			hi = it.score
		}
	}

	if hi == lo {
		for _, it := range l {
			norm[it.id] = 1.0
		}
		return norm
	}

	for _, it := range l {
		norm[it.id] = (it.score - lo) / (hi - lo)
	}
	return norm
}

// Ranks returns the 1-based rank of each id.
func (l List) Ranks() map[string]int {
	ranks := make(map[string]int, len(l))
	for i, it := range l {
		ranks[it.id] = i + 1
	}
	return ranks
}
