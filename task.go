package efdl

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cognusion/go-timings"
)

// fetchTask executes one ranged GET and returns its outcome as a
// taskResult, reporting progress through its progress callback.
// It mirrors spec.md §4.3: Accept-Encoding: identity always, Range only
// when the range isn't the sentinel whole-file range, Authorization when
// credentials are set, and a fully-buffered body (no partial delivery).
type fetchTask struct {
	num     int
	rng     Range
	url     string
	creds   Credentials
	client  Client
	debug   *log.Logger
	timings *log.Logger

	// progress is invoked with cumulative bytes received so far; total is
	// the range's length. Called from the task's own goroutine only.
	progress func(received, total int64)
}

// taskResult is the exactly-one terminal outcome of a fetchTask.
type taskResult struct {
	num   int
	rng   Range
	chunk *ChunkBuffer
	err   error
	code  int
}

// run executes the task. ctx cancellation aborts the in-flight request;
// per spec.md §4.3 this emits a failed-style result tagged with
// TransportCancelled rather than silently vanishing, so the coordinator
// always sees exactly one terminal outcome per submitted task.
func (t *fetchTask) run(ctx context.Context) taskResult {
	defer timings.Track(fmt.Sprintf("fetchChunk %s", t.rng), time.Now(), t.timings)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return taskResult{num: t.num, rng: t.rng, err: err}
	}
	req.Header.Set("Accept-Encoding", "identity")
	if t.rng.End > t.rng.Start {
		req.Header.Set("Range", t.rng.httpRange())
	}
	if !t.creds.Empty() {
		req.Header.Set("Authorization", t.creds.header())
	}

	res, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return taskResult{num: t.num, rng: t.rng, err: &TransportError{Kind: TransportCancelled, Err: ctx.Err()}}
		}
		return taskResult{num: t.num, rng: t.rng, err: &TransportError{Kind: classifyTransportErr(err), Err: err}}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusPartialContent {
		return taskResult{num: t.num, rng: t.rng, code: res.StatusCode, err: &HTTPError{Code: res.StatusCode, Status: res.Status}}
	}

	counting := &countingReader{r: res.Body, total: t.rng.Len(), onRead: t.progress}
	chunk, err := newChunkBuffer(t.rng, counting)
	if err != nil {
		if ctx.Err() != nil {
			return taskResult{num: t.num, rng: t.rng, err: &TransportError{Kind: TransportCancelled, Err: ctx.Err()}}
		}
		return taskResult{num: t.num, rng: t.rng, err: &IOError{Op: "read response body", Err: err}}
	}

	t.debug.Printf("finished downloading %s\n", t.rng)
	return taskResult{num: t.num, rng: t.rng, chunk: chunk}
}

// countingReader reports cumulative bytes read via onRead, giving the
// fetch task's "progress" events without buffering partial chunks
// (spec.md §4.3: "Partial reads are not delivered" to the coordinator,
// only the running count is).
type countingReader struct {
	r        io.Reader
	total    int64
	received int64
	onRead   func(received, total int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.received += int64(n)
		if c.onRead != nil {
			c.onRead(c.received, c.total)
		}
	}
	return n, err
}
