package efdl

import "fmt"

const (
	defaultChunkSize      = 1 << 20  // 1 MiB, used when conns < minConnsForAutoSizing and no override
	maxAutoChunkSize      = 10 << 20 // 10 MiB cap for the conns>=8 auto-sizing policy
	minConnsForAutoSizing = 8
)

// PlanOptions selects the sizing policy used by Plan, per spec.md §4.2.
// At most one of ChunkCount / ChunkSize should be non-zero; Plan returns
// ErrChunksAndChunkSize otherwise.
type PlanOptions struct {
	Total      int64
	Offset     int64
	Conns      int
	ChunkCount int
	ChunkSize  int64
}

// DownloadPlan is the result of discovery plus planning: everything the
// Coordinator needs to start fetching (spec.md §3).
type DownloadPlan struct {
	FinalURL  string
	Total     int64
	Resumable bool
	MimeType  string
	Path      string
	Offset    int64
	Ranges    []Range
	Conns     int
}

// Plan partitions [offset, total) into an ordered, disjoint queue of
// Ranges per the sizing policy in spec.md §4.2, and caps Conns to the
// number of emitted ranges (spec.md §4.2 "Cap").
func Plan(opts PlanOptions) ([]Range, int, error) {
	if opts.ChunkCount > 0 && opts.ChunkSize > 0 {
		return nil, 0, ErrChunksAndChunkSize
	}
	if opts.Total < opts.Offset {
		return nil, 0, fmt.Errorf("efdl: offset %d exceeds total %d", opts.Offset, opts.Total)
	}

	size := chunkSizeFor(opts)

	var ranges []Range
	for start := opts.Offset; start < opts.Total; start += size {
		end := start + size
		if end > opts.Total {
			end = opts.Total
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	if len(ranges) == 0 {
		// Total == Offset: nothing left to fetch, but still a valid plan.
		return ranges, 0, nil
	}

	conns := opts.Conns
	if conns <= 0 {
		conns = 1
	}
	if conns > len(ranges) {
		conns = len(ranges)
	}
	return ranges, conns, nil
}

// chunkSizeFor implements the sizing-policy priority order of spec.md §4.2.
func chunkSizeFor(opts PlanOptions) int64 {
	switch {
	case opts.ChunkSize > 0:
		return opts.ChunkSize
	case opts.ChunkCount > 0:
		remaining := opts.Total - opts.Offset
		size := remaining / int64(opts.ChunkCount)
		if size < 1 {
			size = 1
		}
		return size
	case opts.Conns >= minConnsForAutoSizing:
		remaining := opts.Total - opts.Offset
		size := remaining / int64(opts.Conns)
		if size > maxAutoChunkSize {
			size = maxAutoChunkSize
		}
		if size < 1 {
			size = 1
		}
		return size
	default:
		return defaultChunkSize
	}
}
