package efdl

import (
	"context"
	"fmt"
	"io"
)

// rangeWriter is an internal abstraction over the output destination,
// mirroring the teacher's rangeWriter interface. Downloads write to an
// *os.File; a dry run writes nothing at all.
type rangeWriter interface {
	io.Writer
	io.WriterAt
	Close() error
}

// commitItem is one entry in the commit pipeline's FIFO, per spec.md §3
// "CommitQueue": a buffer plus whether it is the last one expected.
type commitItem struct {
	chunk  *ChunkBuffer
	isLast bool
}

// commitPipeline is the single dedicated writer that owns the output
// file descriptor and serializes every write (spec.md §4.5). Buffers
// always arrive already in ascending Range.Start order because the
// coordinator only ever forwards the smallest pending staged key.
type commitPipeline struct {
	out   rangeWriter
	items chan commitItem
	done  chan struct{}
	err   error
}

func newCommitPipeline(out rangeWriter) *commitPipeline {
	return &commitPipeline{
		out:   out,
		items: make(chan commitItem, 8),
		done:  make(chan struct{}),
	}
}

// enqueue hands a chunk to the writer. The coordinator guarantees
// ascending-start ordering; commitPipeline does not re-sort.
func (c *commitPipeline) enqueue(item commitItem) {
	c.items <- item
}

// run is the writer's body; call it in its own goroutine. It returns
// once the final item has been written and the file closed, or ctx is
// cancelled. Structured cancellation (ctx.Done) replaces the teacher's
// 500ms interruption poll; see spec.md §9.
func (c *commitPipeline) run(ctx context.Context) {
	defer close(c.done)
	defer c.out.Close()

	for {
		select {
		case item := <-c.items:
			want := item.chunk.Len()
			n, err := c.out.WriteAt(item.chunk.Bytes(), item.chunk.Range.Start)
			item.chunk.Release()
			if err != nil {
				c.err = &IOError{Op: "write", Err: err}
				return
			}
			if n != want {
				c.err = &IOError{Op: "write", Err: fmt.Errorf("%w: expected %d, wrote %d", ErrShortWrite, want, n)}
				return
			}
			if item.isLast {
				return
			}
		case <-ctx.Done():
			c.err = ErrCancelled
			return
		}
	}
}

// Err returns the terminal error, if any, once Done() is closed.
func (c *commitPipeline) Err() error { return c.err }

// Done is closed when the pipeline has finished (success, short write,
// or cancellation).
func (c *commitPipeline) Done() <-chan struct{} { return c.done }
