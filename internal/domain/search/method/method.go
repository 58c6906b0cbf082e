package method

// Method is the rank fusion algorithm.
type Method string

// Fusion method constants.
const (
	// WeightedSum combines min-max normalized scores weighted by alpha.
	WeightedSum Method = "weighted_sum"
	// RRF is Reciprocal Rank Fusion: rank-based, robust to score scales.
	RRF Method = "rrf"
	// CombSUM sums normalized scores across lists (alpha is ignored).
	CombSUM Method = "combsum"
	// CombMNZ multiplies CombSUM by the number of lists containing the item.
	CombMNZ Method = "combmnz"
	// Borda assigns positional points per list, weighted by alpha.
	Borda Method = "borda"
)

// DefaultK0 is the RRF damping constant (standard value from Cormack et al. 2009).
const DefaultK0 = 60

// IsValid checks if the method is one of the supported values.
func (m Method) IsValid() bool {
	switch m {
	case WeightedSum, RRF, CombSUM, CombMNZ, Borda:
		return true
	}
	return false
}
