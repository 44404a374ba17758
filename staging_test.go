package efdl

import (
	"bytes"
	"testing"
)

func mustChunk(t *testing.T, rng Range, data string) *ChunkBuffer {
	t.Helper()
	c, err := newChunkBuffer(rng, bytes.NewBufferString(data))
	if err != nil {
		t.Fatalf("newChunkBuffer: %v", err)
	}
	return c
}

func TestStagingMapDrainsContiguousPrefixOnly(t *testing.T) {
	ranges := []Range{{Start: 0, End: 5}, {Start: 5, End: 10}, {Start: 10, End: 15}}
	s := newStagingMap(ranges)

	// Out-of-order arrival: middle chunk first, nothing should drain yet.
	ready := s.deposit(mustChunk(t, ranges[1], "bbbbb"))
	if len(ready) != 0 {
		t.Fatalf("expected nothing ready, got %d", len(ready))
	}

	// First chunk arrives: both 0 and 1 should drain.
	ready = s.deposit(mustChunk(t, ranges[0], "aaaaa"))
	if len(ready) != 2 {
		t.Fatalf("expected 2 ready, got %d", len(ready))
	}
	if ready[0].Range != ranges[0] || ready[1].Range != ranges[1] {
		t.Fatalf("expected ascending start order, got %+v", ready)
	}
	if s.done() {
		t.Fatalf("expected not done, one range outstanding")
	}

	// Last chunk arrives: should drain and mark done.
	ready = s.deposit(mustChunk(t, ranges[2], "ccccc"))
	if len(ready) != 1 {
		t.Fatalf("expected 1 ready, got %d", len(ready))
	}
	if !s.done() {
		t.Fatalf("expected done after final range drains")
	}
}
