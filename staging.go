package efdl

import "sync"

// stagingMap is the ordered mapping range.start -> ChunkBuffer|absent
// from spec.md §3. Keys are exactly the Start values of every planned
// Range, known up front, so instead of a tree/heap we keep them
// pre-sorted and walk a cursor forward: the next key to commit is
// always order[cursor], and it's ready exactly when present[order[cursor]]
// is non-nil. This is O(1) amortized per event rather than the O(log n)
// the spec allows for, while preserving the same "smallest pending key"
// semantics (spec.md §4.6).
type stagingMap struct {
	mu      sync.Mutex
	order   []int64
	present map[int64]*ChunkBuffer
	cursor  int
	total   int
}

func newStagingMap(ranges []Range) *stagingMap {
	order := make([]int64, len(ranges))
	present := make(map[int64]*ChunkBuffer, len(ranges))
	for i, r := range ranges {
		order[i] = r.Start
		present[r.Start] = nil
	}
	return &stagingMap{order: order, present: present, total: len(ranges)}
}

// deposit stores a completed chunk and drains the contiguous prefix of
// ready chunks starting at the current cursor. It returns the drained
// chunks in ascending order; whether the last one drained was the final
// range of the whole plan (for the commit pipeline's isLast flag) is
// reported by done().
func (s *stagingMap) deposit(chunk *ChunkBuffer) []*ChunkBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.present[chunk.Range.Start] = chunk

	var ready []*ChunkBuffer
	for s.cursor < len(s.order) {
		key := s.order[s.cursor]
		buf := s.present[key]
		if buf == nil {
			break
		}
		ready = append(ready, buf)
		delete(s.present, key)
		s.cursor++
	}
	return ready
}

// done reports whether every planned range has been drained.
func (s *stagingMap) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor >= len(s.order)
}
