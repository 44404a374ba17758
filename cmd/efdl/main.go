package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/netromdk/efdl"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "efdl: %v\n", err)
		os.Exit(1)
	}
}

// run builds one efdl.Downloader per URL, drives them through a
// efdl.QueueManager, renders progress, and once the queue has finished
// applies --gen-checksum/--verify to each completed file.
func run(ctx context.Context, cfg *config) error {
	debug := log.New(os.Stderr, "[debug] ", log.LstdFlags)
	timingsLog := log.New(os.Stderr, "[timings] ", log.LstdFlags)
	if !cfg.verbose {
		debug = log.New(discard{}, "", 0)
		timingsLog = log.New(discard{}, "", 0)
	}

	var specs []verifySpec
	if cfg.verify != "" {
		var err error
		specs, err = parseVerifySpecs(cfg.verify)
		if err != nil {
			return err
		}
	}

	confirm := func(msg string) bool {
		if !cfg.confirm {
			return true
		}
		return promptYesNo(msg)
	}

	downloaders := make([]*efdl.Downloader, 0, len(cfg.urls))
	for _, u := range cfg.urls {
		d, err := efdl.NewDownloader(efdl.Options{
			URL:        u,
			OutputDir:  cfg.output,
			Conns:      cfg.conns,
			ChunkCount: cfg.chunks,
			ChunkSize:  cfg.chunkSize,
			Resume:     cfg.resume,
			Confirm:    confirm,
			Creds:      efdl.Credentials{User: cfg.httpUser, Pass: cfg.httpPass},
			Verbose:    cfg.verbose,
			Debug:      debug,
			Timings:    timingsLog,
			DryRun:     cfg.dryRun,
		})
		if err != nil {
			return fmt.Errorf("efdl: %s: %w", u, err)
		}
		downloaders = append(downloaders, d)
	}

	qm := efdl.NewQueueManager(downloaders...)
	r := newRenderer(os.Stdout, cfg.showConnProgress)

	// finishedPaths holds one entry per finished download, in URL order,
	// so it pairs with specs by index; a failed download's entry is "".
	var failed bool
	var finishedPaths []string
	var currentPath string
	for upd := range qm.Run(ctx) {
		r.queueUpdate(upd)
		if upd.Event.Kind == efdl.EventInformation {
			currentPath = upd.Event.Info.Path
		}
		if upd.Event.Kind == efdl.EventFinished {
			if upd.Event.FinalErr != nil {
				failed = true
				currentPath = ""
			}
			finishedPaths = append(finishedPaths, currentPath)
			currentPath = ""
		}
	}

	if err := postProcess(ctx, finishedPaths, specs, cfg.genChecksum, os.Stdout); err != nil {
		failed = true
		fmt.Fprintln(os.Stderr, err)
	}

	if failed {
		return fmt.Errorf("one or more downloads failed")
	}
	return nil
}

// postProcess runs --gen-checksum/--verify over every finished file
// concurrently: each file's digesting is independent I/O-bound work, the
// same fan-out-with-first-error shape leo-pony-model-runner's
// pkg/inference/scheduling/scheduler.go uses, rather than the
// strictly ordered, single-writer shape the download path itself needs
// (spec.md §4.7 forbids that kind of concurrency for the queue, but
// nothing here requires ordering between files). Output lines are
// collected per file and flushed in input order so concurrent hashing
// never interleaves stdout.
func postProcess(ctx context.Context, paths []string, specs []verifySpec, genChecksum string, out *os.File) error {
	if genChecksum == "" && len(specs) == 0 {
		return nil
	}

	lines := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		if path == "" {
			continue
		}
		i, path := i, path
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			var sum string
			if genChecksum != "" {
				s, err := checksumFile(path, genChecksum)
				if err != nil {
					return fmt.Errorf("efdl: checksum %s: %w", path, err)
				}
				sum = s
				lines[i] = fmt.Sprintf("%s  %s  %s", genChecksum, sum, path)
			}
			if i < len(specs) {
				if err := verifyFile(path, []verifySpec{specs[i]}); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	for _, line := range lines {
		if line != "" {
			fmt.Fprintln(out, line)
		}
	}
	return err
}

func promptYesNo(msg string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", msg)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	ans := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return ans == "y" || ans == "yes"
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
