package method

import "testing"

func TestIsValid(t *testing.T) {
	for _, m := range []Method{WeightedSum, RRF, CombSUM, CombMNZ, Borda} {
		if !m.IsValid() {
			t.Errorf("%s should be valid", m)
		}
	}
	for _, m := range []Method{"", "bayesian", "RRF", "weighted-sum"} {
		if m.IsValid() {
			t.Errorf("%q should be invalid", m)
		}
	}
}
