package efdl

import "fmt"

// Range is a half-open byte interval [Start, End) over a resource.
// Two Ranges produced by Plan for the same download are disjoint and
// their union equals [offset, total).
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the Range.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// String renders the Range the way the teacher's debug logging does,
// e.g. "[1048576, 2097152)".
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// httpRange renders the inclusive byte-range value used in the
// "Range" request header: "bytes=start-(end-1)".
func (r Range) httpRange() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End-1)
}

// Less orders Ranges by Start, satisfying the planner's "strictly
// ordered by start" invariant (spec.md §8).
func (r Range) Less(other Range) bool {
	return r.Start < other.Start
}
