// Package efdl implements a segmented HTTP(S) download engine: it probes
// a URL for byte-range support, partitions the remaining content into an
// ordered queue of ranges, fetches them with a bounded pool of
// concurrent workers, and reassembles them into a single output file
// through a serialized commit pipeline.
//
// The package mirrors the architecture of github.com/cognusion/go-rangetripper
// (an http.RoundTripper that does the same thing as a Transport) but
// exposes typed progress/error events instead, so a caller can drive
// several downloads through a QueueManager and render progress however
// it likes; see cmd/efdl for a CLI built on top.
package efdl
