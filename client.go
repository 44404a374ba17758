package efdl

import (
	"net/http"
	"time"
)

// Client is satisfied by *http.Client and by RetryClient. Fetch tasks and
// the probe only ever talk to this interface, the same seam the teacher
// draws in client.go.
type Client interface {
	Do(*http.Request) (*http.Response, error)
}

// DefaultClient is the Client used when a Downloader is not given one
// explicitly. It retries transient failures with a constant backoff.
// Don't point a RangeTripper-style RoundTripper's transport back at one
// of these; this package has no such recursive concept to worry about,
// unlike the teacher's.
var DefaultClient Client = NewRetryClient(3, time.Second, 30*time.Second)
