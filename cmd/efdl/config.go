package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// config mirrors spec.md §6's CLI surface, resolved by cobra and
// validated before a single efdl.Downloader is constructed, the same
// fail-fast-before-network-IO boundary original_source's main.cpp draws
// around QCommandLineParser.
type config struct {
	urls []string

	output           string
	conns            int
	resume           bool
	chunks           int
	chunkSize        int64
	confirm          bool
	verbose          bool
	showHTTPHeaders  bool
	dryRun           bool
	showConnProgress bool
	httpUser         string
	httpPass         string
	genChecksum      string
	verify           string
}

func newRootCmd() *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:     "efdl [urls...]",
		Short:   "Segmented HTTP(S) downloader with resume support",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.urls = append(append([]string{}, args...), readStdinURLs()...)
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), &cfg)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.output, "output", "o", ".", "output directory (must exist)")
	flags.IntVarP(&cfg.conns, "conns", "c", 1, "max concurrent connections")
	flags.BoolVarP(&cfg.resume, "resume", "r", false, "attempt to resume an existing partial file")
	flags.IntVar(&cfg.chunks, "chunks", 0, "split into this many chunks (mutually exclusive with --chunk-size)")
	flags.Int64Var(&cfg.chunkSize, "chunk-size", 0, "split into chunks of this many bytes (mutually exclusive with --chunks)")
	flags.BoolVar(&cfg.confirm, "confirm", false, "ask before proceeding after a redirect or truncating a complete file")
	flags.BoolVar(&cfg.verbose, "verbose", false, "log timings and request tracing to stderr")
	flags.BoolVar(&cfg.showHTTPHeaders, "show-http-headers", false, "log request/response headers (implies --verbose)")
	flags.BoolVar(&cfg.dryRun, "dry-run", false, "probe and plan only, never fetch")
	flags.BoolVar(&cfg.showConnProgress, "show-conn-progress", false, "render per-connection progress")
	flags.StringVar(&cfg.httpUser, "http-user", "", "HTTP Basic username (requires --http-pass)")
	flags.StringVar(&cfg.httpPass, "http-pass", "", "HTTP Basic password (requires --http-user)")
	flags.StringVar(&cfg.genChecksum, "gen-checksum", "", "compute and print this digest after each download")
	flags.StringVar(&cfg.verify, "verify", "", "comma-separated alg=hex list, one set per URL, to verify after download")

	return cmd
}

// validate implements the policy checks of spec.md §6/§7 that don't need
// the network: missing output dir, mutually exclusive sizing flags,
// one-sided credentials, and a --verify count mismatched against the URL
// count (original_source/src/main.cpp enforces the same pairing).
func (c *config) validate() error {
	if len(c.urls) == 0 {
		return fmt.Errorf("efdl: no URLs given")
	}
	if fi, err := os.Stat(c.output); err != nil || !fi.IsDir() {
		return fmt.Errorf("efdl: output directory %q does not exist", c.output)
	}
	if c.conns <= 0 {
		return fmt.Errorf("efdl: --conns must be > 0")
	}
	if c.chunks > 0 && c.chunkSize > 0 {
		return fmt.Errorf("efdl: --chunks and --chunk-size are mutually exclusive")
	}
	if (c.httpUser == "") != (c.httpPass == "") {
		return fmt.Errorf("efdl: --http-user and --http-pass must both be set or both be empty")
	}
	if c.showHTTPHeaders {
		c.verbose = true
	}
	if c.verify != "" {
		specs, err := parseVerifySpecs(c.verify)
		if err != nil {
			return err
		}
		if len(specs) != len(c.urls) {
			return fmt.Errorf("efdl: --verify supplies %d spec(s) for %d URL(s)", len(specs), len(c.urls))
		}
	}
	return nil
}

// readStdinURLs reads one URL per line from stdin when it is a pipe,
// per spec.md §6 ("Additional URLs may be read from stdin ... positional
// and piped URLs are concatenated").
func readStdinURLs() []string {
	fi, err := os.Stdin.Stat()
	if err != nil || (fi.Mode()&os.ModeCharDevice) != 0 {
		return nil
	}
	var urls []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}
