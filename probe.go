package efdl

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cognusion/go-timings"
)

const maxRedirects = 10

// ProbeOptions configures a Probe call.
type ProbeOptions struct {
	Creds    Credentials
	Confirm  func(msg string) bool // asked once, only after at least one redirect
	Debug    *log.Logger
	Timings  *log.Logger
	Client   Client
}

// ProbeResult is the outcome of a successful Probe.
type ProbeResult struct {
	FinalURL      *url.URL
	ContentLength int64
	// TotalSize is ContentLength unless a Content-Range header on the
	// probe response advertises a different, positive authoritative total.
	TotalSize  int64
	Resumable  bool
	MimeType   string
	Headers    http.Header
}

// Probe issues the discovery request described in spec.md §4.1: a GET
// with Range: bytes=0-0 and Accept-Encoding: identity, following
// redirects itself rather than relying on http.Client's redirect
// handling, since it needs to inspect and possibly confirm each hop.
func Probe(rawURL string, opts ProbeOptions) (*ProbeResult, error) {
	if opts.Client == nil {
		opts.Client = DefaultClient
	}
	if opts.Debug == nil {
		opts.Debug = log.New(noopWriter{}, "", 0)
	}
	if opts.Timings == nil {
		opts.Timings = log.New(noopWriter{}, "", 0)
	}

	defer timings.Track("probe", time.Now(), opts.Timings)
	return probe(rawURL, opts, false, 0)
}

// probe threads "has a redirect already happened" through the recursion
// explicitly instead of the teacher/original's process-wide static bool
// (spec.md §9, REDESIGN FLAGS: "shared mutable global redirected flag").
func probe(rawURL string, opts ProbeOptions, redirected bool, depth int) (*ProbeResult, error) {
	if depth > maxRedirects {
		return nil, &MalformedError{Reason: "too many redirects"}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &MalformedError{Reason: "invalid URL: " + err.Error()}
	}
	u, creds := mergeCredentials(u, opts.Creds)

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", "bytes=0-0")
	req.Header.Set("Accept-Encoding", "identity")
	if !creds.Empty() {
		req.Header.Set("Authorization", creds.header())
	}

	opts.Debug.Printf("PROBE %s\n", u.Redacted())

	res, err := opts.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Kind: classifyTransportErr(err), Err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		if redirected && opts.Confirm != nil {
			if !opts.Confirm("Do you want to continue?") {
				return nil, ErrCancelled
			}
		}
		return parseProbeResponse(u, res)

	case res.StatusCode >= 300 && res.StatusCode < 400:
		loc := res.Header.Get("Location")
		if loc == "" {
			return nil, &MalformedError{Reason: "redirect response missing Location header"}
		}
		locURL, err := url.Parse(loc)
		if err != nil {
			return nil, &MalformedError{Reason: "invalid Location header: " + err.Error()}
		}
		next := u.ResolveReference(locURL)
		opts.Debug.Printf("REDIRECT -> %s\n", next.Redacted())
		return probe(next.String(), opts, true, depth+1)

	case res.StatusCode >= 400 && res.StatusCode < 500:
		return nil, &HTTPError{Code: res.StatusCode, Status: res.Status}

	case res.StatusCode >= 500 && res.StatusCode < 600:
		return nil, &HTTPError{Code: res.StatusCode, Status: res.Status}

	default:
		return nil, &MalformedError{Reason: fmt.Sprintf("unexpected status %s", res.Status)}
	}
}

// parseProbeResponse implements the status-class-2xx branch of spec.md §4.1.
func parseProbeResponse(u *url.URL, res *http.Response) (*ProbeResult, error) {
	clHeader := res.Header.Get("Content-Length")
	if clHeader == "" {
		return nil, &MalformedError{Reason: "missing Content-Length"}
	}
	cl, err := strconv.ParseInt(clHeader, 10, 64)
	if err != nil {
		return nil, &MalformedError{Reason: "non-numeric Content-Length: " + clHeader}
	}
	if cl == 0 {
		return nil, ErrEmptyBody
	}

	total := cl
	if cr := res.Header.Get("Content-Range"); cr != "" {
		if t, ok := parseContentRangeTotal(cr); ok && t > 0 && t != cl {
			total = t
		}
	}

	resumable := strings.Contains(strings.ToLower(res.Header.Get("Accept-Ranges")), "bytes")
	if res.StatusCode == http.StatusPartialContent {
		// The origin honored the range request; that alone implies
		// support even without an explicit Accept-Ranges header
		// (spec.md §4.1).
		resumable = true
	}

	mime := res.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(mime)

	return &ProbeResult{
		FinalURL:      u,
		ContentLength: cl,
		TotalSize:     total,
		Resumable:     resumable,
		MimeType:      mime,
		Headers:       res.Header,
	}, nil
}

// parseContentRangeTotal extracts T from "bytes a-b/T".
func parseContentRangeTotal(cr string) (int64, bool) {
	i := strings.LastIndexByte(cr, '/')
	if i < 0 || i == len(cr)-1 {
		return 0, false
	}
	total := cr[i+1:]
	if total == "*" {
		return 0, false
	}
	t, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, false
	}
	return t, true
}

// mergeCredentials prefers explicit Credentials over any embedded in the
// URL; it always returns a URL with userinfo stripped so it is never
// logged or sent twice.
func mergeCredentials(u *url.URL, explicit Credentials) (*url.URL, Credentials) {
	stripped, embedded := credentialsFromURL(u)
	if !explicit.Empty() {
		return stripped, explicit
	}
	return stripped, embedded
}

func classifyTransportErr(err error) TransportKind {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return TransportTimeout
	case strings.Contains(msg, "refused"):
		return TransportRefused
	case strings.Contains(msg, "no such host"):
		return TransportDNS
	case strings.Contains(msg, "x509"), strings.Contains(msg, "tls"):
		return TransportTLS
	case strings.Contains(msg, "context canceled"):
		return TransportCancelled
	default:
		return TransportUnknown
	}
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
