package efdl

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cognusion/go-sequence"
	"github.com/cognusion/go-timings"
	"go.uber.org/atomic"
)

var downloadSeq = sequence.New(0)

// Options configures a single Downloader (spec.md §4.6/§6).
type Options struct {
	URL        string
	OutputDir  string
	Conns      int
	ChunkCount int
	ChunkSize  int64
	Resume     bool
	Confirm    func(msg string) bool
	Creds      Credentials
	Client     Client
	Verbose    bool
	Debug      *log.Logger
	Timings    *log.Logger

	// DryRun probes and plans but never fetches; the Coordinator emits
	// EventInformation then EventFinished with FinalErr == nil.
	DryRun bool
}

// Downloader orchestrates a single URL end-to-end: probe, file setup,
// planning, fetching, and commit termination (spec.md §4.6). Use Run to
// drive it to completion while consuming the returned event channel.
type Downloader struct {
	opts Options
	id   string
}

// NewDownloader validates opts and returns a Downloader, or a
// *PolicyError if opts are invalid (spec.md §7: policy errors are
// caught before the engine starts).
func NewDownloader(opts Options) (*Downloader, error) {
	if opts.ChunkCount > 0 && opts.ChunkSize > 0 {
		return nil, &PolicyError{Err: ErrChunksAndChunkSize}
	}
	if opts.Conns <= 0 {
		opts.Conns = 1
	}
	u, err := url.Parse(strings.TrimSpace(opts.URL))
	if err != nil {
		return nil, &PolicyError{Err: fmt.Errorf("invalid URL: %w", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &PolicyError{Err: ErrInvalidScheme}
	}
	if opts.Client == nil {
		opts.Client = DefaultClient
	}
	if opts.Debug == nil {
		opts.Debug = log.New(noopWriter{}, "", 0)
	}
	if opts.Timings == nil {
		opts.Timings = log.New(noopWriter{}, "", 0)
	}
	return &Downloader{opts: opts, id: downloadSeq.NextHashID()}, nil
}

// Run drives the download to completion, sending every event on the
// returned channel, which is closed after EventFinished. Cancelling ctx
// aborts in-flight fetches and the commit pipeline (spec.md §5).
func (d *Downloader) Run(ctx context.Context) <-chan Event {
	events := make(chan Event, 16)
	go d.run(ctx, events)
	return events
}

func (d *Downloader) run(ctx context.Context, events chan<- Event) {
	defer close(events)
	defer timings.Track(fmt.Sprintf("[%s] download", d.id), time.Now(), d.opts.Timings)

	emit := func(e Event) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	}

	result, err := Probe(d.opts.URL, ProbeOptions{
		Creds:   d.opts.Creds,
		Confirm: d.opts.Confirm,
		Debug:   d.opts.Debug,
		Timings: d.opts.Timings,
		Client:  d.opts.Client,
	})
	if err != nil {
		emit(Event{Kind: EventFinished, FinalErr: err})
		return
	}

	outputPath := outputPathFor(d.opts.OutputDir, result.FinalURL)

	offset, resumed, werr := d.resolveOffset(outputPath, result)
	if werr != nil {
		emit(Event{Kind: EventFinished, FinalErr: werr})
		return
	}

	ranges, conns, err := Plan(PlanOptions{
		Total:      result.TotalSize,
		Offset:     offset,
		Conns:      d.opts.Conns,
		ChunkCount: d.opts.ChunkCount,
		ChunkSize:  d.opts.ChunkSize,
	})
	if err != nil {
		emit(Event{Kind: EventFinished, FinalErr: &PolicyError{Err: err}})
		return
	}

	emit(Event{Kind: EventInformation, Info: Information{
		Path:     outputPath,
		Size:     result.TotalSize,
		Chunks:   len(ranges),
		Conns:    conns,
		Offset:   offset,
		Resumed:  resumed,
		MimeType: result.MimeType,
	}})

	if d.opts.DryRun || len(ranges) == 0 {
		emit(Event{Kind: EventFinished})
		return
	}

	out, err := openOutput(outputPath, resumed)
	if err != nil {
		emit(Event{Kind: EventFinished, FinalErr: &IOError{Op: "open", Err: err}})
		return
	}

	finalErr := d.fetchAll(ctx, result.FinalURL.String(), ranges, conns, out, emit)
	emit(Event{Kind: EventFinished, FinalErr: finalErr})
}

// resolveOffset implements spec.md §4.6 step 2: decide whether to
// truncate, resume, or start fresh.
func (d *Downloader) resolveOffset(outputPath string, result *ProbeResult) (offset int64, resumed bool, err error) {
	fi, statErr := os.Stat(outputPath)
	exists := statErr == nil

	if !d.opts.Resume {
		if exists {
			if rmErr := os.Remove(outputPath); rmErr != nil {
				return 0, false, &IOError{Op: "remove", Err: rmErr}
			}
		}
		return 0, false, nil
	}

	if !result.Resumable {
		return 0, false, &PolicyError{Err: ErrNotResumable}
	}
	if !exists {
		return 0, false, nil
	}

	fileSize := fi.Size()
	if fileSize >= result.TotalSize {
		if d.opts.Confirm != nil {
			if !d.opts.Confirm("Local file is already complete. Truncate and redownload?") {
				return 0, false, &PolicyError{Err: ErrResumeLarger}
			}
			if rmErr := os.Remove(outputPath); rmErr != nil {
				return 0, false, &IOError{Op: "remove", Err: rmErr}
			}
			return 0, false, nil
		}
		return 0, false, &PolicyError{Err: ErrResumeLarger}
	}

	return fileSize, true, nil
}

// fetchAll submits every range to a bounded pool, drains the staging
// map in order, forwards contiguous prefixes to the commit pipeline,
// and waits for it to finish (spec.md §4.6 steps 4-7).
func (d *Downloader) fetchAll(ctx context.Context, finalURL string, ranges []Range, conns int, out rangeWriter, emit func(Event)) error {
	p := newPool(ctx, conns)
	staging := newStagingMap(ranges)
	commit := newCommitPipeline(out)
	var firstErr atomic.Error

	commitCtx, cancelCommit := context.WithCancel(ctx)
	defer cancelCommit()
	go commit.run(commitCtx)

	for i, r := range ranges {
		num := i + 1
		t := &fetchTask{
			num:    num,
			rng:    r,
			url:    finalURL,
			creds:  d.opts.Creds,
			client: d.opts.Client,
			debug:  d.opts.Debug,
			timings: d.opts.Timings,
			progress: func(received, total int64) {
				emit(Event{Kind: EventChunkProgress, Num: num, Received: received, Total: total})
			},
		}
		emit(Event{Kind: EventChunkStarted, Num: num})
		p.submit(t)
	}

	remaining := len(ranges)
	for remaining > 0 {
		select {
		case res := <-p.results:
			remaining--
			if res.err != nil {
				if firstErr.Load() == nil {
					firstErr.Store(res.err)
				}
				emit(Event{Kind: EventChunkFailed, Num: res.num, Range: res.rng, HTTPCode: res.code, Err: res.err})
				continue
			}

			ready := staging.deposit(res.chunk)
			for i, chunk := range ready {
				last := staging.done() && i == len(ready)-1
				commit.enqueue(commitItem{chunk: chunk, isLast: last})
			}
			emit(Event{Kind: EventChunkFinished, Num: res.num, Range: res.rng})

		case <-ctx.Done():
			p.stop()
			return ErrCancelled
		}
	}

	p.stop()

	if err := firstErr.Load(); err != nil {
		cancelCommit()
		return err
	}

	select {
	case <-commit.Done():
		return commit.Err()
	case <-ctx.Done():
		return ErrCancelled
	}
}

// outputPathFor mirrors spec.md §6: output_dir/basename(final_url.path).
func outputPathFor(dir string, u *url.URL) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		base = "download"
	}
	if dir == "" {
		dir = "."
	}
	return path.Join(dir, base)
}

// openOutput opens the output file append-free: WriteAt is used for every
// write (including resumes), so the file is always opened without
// O_APPEND -- Go's os.File.WriteAt rejects that combination. A fresh
// download truncates; a resume neither truncates nor appends, relying on
// WriteAt's absolute offsets to leave [0, offset) untouched (spec.md §4.5,
// "or seeking append when resuming").
func openOutput(outputPath string, resume bool) (rangeWriter, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if !resume {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(outputPath, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

var _ io.Writer = (*os.File)(nil)
