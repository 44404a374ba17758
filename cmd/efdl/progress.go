package main

import (
	"fmt"
	"io"

	"github.com/netromdk/efdl"
)

// renderer prints efdl.Event and efdl.QueueUpdate values to an io.Writer,
// standing in for original_source/src/DownloadManager.cpp's console
// cursor-control rendering. The engine never imports this file's package;
// it only emits typed events (spec.md §9, "renderer ... external
// collaborator").
type renderer struct {
	out              io.Writer
	showConnProgress bool
}

func newRenderer(out io.Writer, showConnProgress bool) *renderer {
	return &renderer{out: out, showConnProgress: showConnProgress}
}

func (r *renderer) event(ev efdl.Event) {
	switch ev.Kind {
	case efdl.EventInformation:
		fmt.Fprintf(r.out, "%s: %d bytes, %d chunk(s), %d connection(s)", ev.Info.Path, ev.Info.Size, ev.Info.Chunks, ev.Info.Conns)
		if ev.Info.Resumed {
			fmt.Fprintf(r.out, " (resuming from %d)", ev.Info.Offset)
		}
		fmt.Fprintln(r.out)
	case efdl.EventChunkStarted:
		if r.showConnProgress {
			fmt.Fprintf(r.out, "chunk %d: started\n", ev.Num)
		}
	case efdl.EventChunkProgress:
		if r.showConnProgress {
			fmt.Fprintf(r.out, "chunk %d: %d/%d\n", ev.Num, ev.Received, ev.Total)
		}
	case efdl.EventChunkFinished:
		if r.showConnProgress {
			fmt.Fprintf(r.out, "chunk %d: done\n", ev.Num)
		}
	case efdl.EventChunkFailed:
		fmt.Fprintf(r.out, "chunk %d: failed (%v)\n", ev.Num, ev.Err)
	case efdl.EventFinished:
		if ev.FinalErr != nil {
			fmt.Fprintf(r.out, "failed: %v\n", ev.FinalErr)
		} else {
			fmt.Fprintln(r.out, "done")
		}
	}
}

func (r *renderer) queueUpdate(u efdl.QueueUpdate) {
	r.event(u.Event)
	if u.Event.Kind == efdl.EventChunkProgress && u.Progress.BytesTotal > 0 {
		fmt.Fprintf(r.out, "queue: %.1f%% (%d/%d bytes, %.0f B/s)\n",
			u.Progress.Percent, u.Progress.BytesDone, u.Progress.BytesTotal, float64(u.Progress.BytesPerSecond))
	}
}
