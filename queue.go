package efdl

import (
	"context"
	"time"
)

// AggregateProgress summarizes cross-download totals for a QueueManager
// (URL names the download currently running; the totals cover every
// download started so far),
// the core arithmetic behind original_source's DownloadManager::updateProgress
// (line-rendering itself stays a renderer concern per spec.md §1).
type AggregateProgress struct {
	URL              string
	BytesDone        int64
	BytesTotal       int64
	ChunksDone       int
	ChunksTotal      int
	BytesPerSecond   int64
	Percent          float64
}

// QueueUpdate is delivered by QueueManager.Run for every member download's
// event plus a running AggregateProgress snapshot.
type QueueUpdate struct {
	Event    Event
	Progress AggregateProgress
	// Done is true on the update carrying the final Downloader's
	// EventFinished.
	Done bool
}

// QueueManager runs a sequence of Downloaders serially, exactly as
// spec.md §4.7: wire events, start, and on EventChunkFailed escalate to an
// abort of the whole queue. It never starts member N+1 before member N's
// EventFinished, matching original_source's DownloadManager::next().
type QueueManager struct {
	downloaders []*Downloader
	// AbortOnChunkFailure mirrors spec.md §4.7 "Aborts the process on any
	// chunk_failed": when true (the default), no further Downloader is
	// started once the current one, in which a chunk failed, has finished.
	// Set false to go on with the remaining Downloaders regardless. Either
	// way the current Downloader itself runs its other chunks to the end.
	AbortOnChunkFailure bool
}

// NewQueueManager returns a QueueManager that will run downloaders in
// the order given.
func NewQueueManager(downloaders ...*Downloader) *QueueManager {
	return &QueueManager{downloaders: downloaders, AbortOnChunkFailure: true}
}

// Add appends a Downloader to the queue.
func (q *QueueManager) Add(d *Downloader) {
	q.downloaders = append(q.downloaders, d)
}

// Run drives every queued Downloader to completion in order, emitting a
// QueueUpdate per underlying Event. The returned channel is closed after
// the last downloader finishes, or, if AbortOnChunkFailure is set, after
// the first downloader that reports chunk_failed finishes. Cancelling ctx aborts the
// current download and skips the rest of the queue.
func (q *QueueManager) Run(ctx context.Context) <-chan QueueUpdate {
	out := make(chan QueueUpdate, 16)
	go q.run(ctx, out)
	return out
}

func (q *QueueManager) run(ctx context.Context, out chan<- QueueUpdate) {
	defer close(out)

	var agg AggregateProgress
	started := time.Now()

	for idx, d := range q.downloaders {
		agg.URL = d.opts.URL
		aborted := false
		lastReceived := make(map[int]int64)

		events := d.Run(ctx)
		for ev := range events {
			switch ev.Kind {
			case EventInformation:
				agg.BytesTotal += ev.Info.Size
				agg.BytesDone += ev.Info.Offset
				agg.ChunksTotal += ev.Info.Chunks
			case EventChunkProgress:
				// chunk_progress carries per-chunk cumulative bytes, not a
				// delta, so only the growth since that chunk's previous
				// report is added.
				agg.BytesDone += ev.Received - lastReceived[ev.Num]
				lastReceived[ev.Num] = ev.Received
			case EventChunkFinished:
				agg.ChunksDone++
			case EventChunkFailed:
				if q.AbortOnChunkFailure {
					aborted = true
				}
			}

			elapsed := time.Since(started).Seconds()
			if elapsed > 0 {
				agg.BytesPerSecond = int64(float64(agg.BytesDone) / elapsed)
			}
			if agg.BytesTotal > 0 {
				agg.Percent = float64(agg.BytesDone) / float64(agg.BytesTotal) * 100
			}

			select {
			case out <- QueueUpdate{Event: ev, Progress: agg, Done: ev.Kind == EventFinished && idx == len(q.downloaders)-1}:
			case <-ctx.Done():
				return
			}
		}

		if aborted {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
