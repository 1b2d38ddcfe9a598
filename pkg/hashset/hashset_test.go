package hashset

import "testing"

func TestSet(t *testing.T) {
	s := New("a", "b", "a")

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if !s.Has("a") || !s.Has("b") {
		t.Error("expected a and b to be present")
	}
	if s.Has("c") {
		t.Error("did not expect c to be present")
	}

	s.Add("c")
	if !s.Has("c") || s.Len() != 3 {
		t.Errorf("after Add: Has(c) = %v, Len() = %d", s.Has("c"), s.Len())
	}
}
