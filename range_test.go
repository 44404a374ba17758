package efdl

import "testing"

func TestRangeLen(t *testing.T) {
	r := Range{Start: 10, End: 20}
	if r.Len() != 10 {
		t.Fatalf("expected length 10, got %d", r.Len())
	}
}

func TestRangeHTTPRange(t *testing.T) {
	r := Range{Start: 0, End: 100}
	if got, want := r.httpRange(), "bytes=0-99"; got != want {
		t.Fatalf("httpRange() = %q, want %q", got, want)
	}
}

func TestRangeLess(t *testing.T) {
	a := Range{Start: 0, End: 10}
	b := Range{Start: 10, End: 20}
	if !a.Less(b) || b.Less(a) {
		t.Fatalf("expected a < b")
	}
}

func TestRangeString(t *testing.T) {
	r := Range{Start: 5, End: 15}
	if got, want := r.String(), "[5, 15)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
