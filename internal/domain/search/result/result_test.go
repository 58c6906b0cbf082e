package result

import (
	"math"
	"reflect"
	"testing"
)

func TestList_SortIsDeterministic(t *testing.T) {
	l := List{
		New("c", 0.5),
		New("a", 0.5),
		New("b", 0.9),
		New("d", 0.1),
	}
	l.Sort()

	got := make([]string, len(l))
	for i, it := range l {
		got[i] = it.ID()
	}
	// Descending score; the 0.5 tie breaks by ascending id.
	want := []string{"b", "a", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestList_Truncate(t *testing.T) {
	l := List{New("a", 3), New("b", 2), New("c", 1)}

	if got := l.Truncate(2); len(got) != 2 {
		t.Errorf("expected 2 items, got %d", len(got))
	}
	if got := l.Truncate(10); len(got) != 3 {
		t.Errorf("truncate beyond length must be a no-op, got %d", len(got))
	}
	if got := l.Truncate(0); len(got) != 0 {
		t.Errorf("truncate to zero must empty the list, got %d", len(got))
	}
}

func TestList_Normalize(t *testing.T) {
	t.Run("min-max scaling", func(t *testing.T) {
		l := List{New("a", 10), New("b", 5), New("c", 0)}
		norm := l.Normalize()
		if norm["a"] != 1.0 || norm["c"] != 0.0 {
			t.Errorf("expected extremes 1.0 and 0.0, got a=%v c=%v", norm["a"], norm["c"])
		}
		if math.Abs(norm["b"]-0.5) > 1e-12 {
			t.Errorf("expected midpoint 0.5, got %v", norm["b"])
		}
	})

	t.Run("zero variance maps to one", func(t *testing.T) {
		l := List{New("a", 7), New("b", 7)}
		for id, v := range l.Normalize() {
			if v != 1.0 {
				t.Errorf("%s: expected 1.0, got %v", id, v)
			}
		}
	})

	t.Run("single item maps to one", func(t *testing.T) {
		norm := List{New("only", 42)}.Normalize()
		if norm["only"] != 1.0 {
			t.Errorf("expected 1.0, got %v", norm["only"])
		}
	})

	t.Run("empty list", func(t *testing.T) {
		if norm := (List{}).Normalize(); len(norm) != 0 {
			t.Errorf("expected empty map, got %v", norm)
		}
	})
}

func TestList_Ranks(t *testing.T) {
	l := List{New("a", 3), New("b", 2), New("c", 1)}
	ranks := l.Ranks()
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	if !reflect.DeepEqual(ranks, want) {
		t.Errorf("expected %v, got %v", want, ranks)
	}
}
