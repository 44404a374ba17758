package efdl

import (
	"io"

	"github.com/cognusion/go-recyclable"
)

// bufPool is the package-wide pool of recyclable buffers backing every
// ChunkBuffer. Recycling keeps steady-state allocation bounded to roughly
// max_conns live buffers instead of one allocation per chunk (spec.md §8,
// invariant 5).
var bufPool = recyclable.NewBufferPool()

// ChunkBuffer is the owned byte buffer produced by one successful fetch
// task, tagged with the Range it came from. It is created by a fetch task
// on HTTP success, held briefly by the staging map, and freed by the
// commit pipeline once written (spec.md §3).
type ChunkBuffer struct {
	Range Range
	buf   *recyclable.Buffer
}

// newChunkBuffer pulls a buffer from the pool and fills it by copying
// from r. The caller owns the returned ChunkBuffer until it calls Release.
func newChunkBuffer(rng Range, r io.Reader) (*ChunkBuffer, error) {
	buf := bufPool.Get()
	if _, err := io.Copy(buf, r); err != nil {
		bufPool.Put(buf)
		return nil, err
	}
	return &ChunkBuffer{Range: rng, buf: buf}, nil
}

// Len returns the number of bytes currently held.
func (c *ChunkBuffer) Len() int {
	return c.buf.Len()
}

// Bytes returns the accumulated bytes. The slice is only valid until Release.
func (c *ChunkBuffer) Bytes() []byte {
	return c.buf.Bytes()
}

// Release returns the underlying buffer to the pool. No buffer outlives
// its write: the commit pipeline calls this immediately after a
// successful WriteAt/Write (spec.md §3, "Ownership").
func (c *ChunkBuffer) Release() {
	bufPool.Put(c.buf)
	c.buf = nil
}
