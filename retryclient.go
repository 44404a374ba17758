package efdl

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eapache/go-resiliency/retrier"
)

// errStatusNope classifies a 4xx response as non-retriable so the
// retrier gives up immediately instead of burning its budget on a
// request that will never succeed.
var errStatusNope = errors.New("efdl: non-retriable HTTP status received")

// RetryClient wraps an *http.Client with go-resiliency's retrier,
// verbatim the teacher's retryclient.go pattern generalized to take a
// caller-supplied timeout and backoff.
type RetryClient struct {
	client  *http.Client
	retrier *retrier.Retrier
}

// NewRetryClient returns a RetryClient that retries failed requests
// `retries` times, every `every`, and uses `timeout` as the per-request
// timeout.
func NewRetryClient(retries int, every, timeout time.Duration) *RetryClient {
	b := make(retrier.BlacklistClassifier, 1)
	b[0] = errStatusNope

	return &RetryClient{
		client:  &http.Client{Timeout: timeout, CheckRedirect: noFollowRedirects},
		retrier: retrier.New(retrier.ConstantBackoff(retries, every), b),
	}
}

// NewRetryClientWithExponentialBackoff returns a RetryClient that retries
// `retries` times, first after `initially` and exponentially longer each
// time, using `timeout` as the per-request timeout.
func NewRetryClientWithExponentialBackoff(retries int, initially, timeout time.Duration) *RetryClient {
	b := make(retrier.BlacklistClassifier, 1)
	b[0] = errStatusNope

	return &RetryClient{
		client:  &http.Client{Timeout: timeout, CheckRedirect: noFollowRedirects},
		retrier: retrier.New(retrier.ExponentialBackoff(retries, initially), b),
	}
}

// noFollowRedirects hands every 3xx back to the caller unfollowed, so the
// probe sees each hop and follows it itself.
func noFollowRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// Do issues req, retrying per the configured policy. 4xx responses are
// never retried (ClientError is almost certainly permanent); 5xx and
// transport failures are.
//
// A non-2xx/3xx status is not a transport failure: callers like probe()
// and fetchTask.run() need the real *http.Response to classify it as an
// HTTPError with the actual code, so Do only ever returns a non-nil
// error when no response was received at all (a genuine network-level
// failure). The most recent response is tracked across retries and
// handed back once the retrier stops, whatever the reason; any
// response superseded by a subsequent retry is closed immediately since
// it will never be returned.
func (w *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var (
		last    *http.Response
		lastErr error
	)

	try := func() error {
		if last != nil {
			last.Body.Close()
			last = nil
		}

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		last = resp
		lastErr = nil

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 400:
			// 2xx success, 206 partial content, and 3xx redirects (the
			// probe handles redirects itself; fetch tasks never see one
			// in practice since they request a concrete byte range).
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return errStatusNope
		default:
			return fmt.Errorf("efdl: non-2xx/3xx status received: %s", resp.Status)
		}
	}

	if err := w.retrier.Run(try); err != nil {
		if last != nil {
			// A real HTTP response came back (blacklisted 4xx, or 5xx
			// with retries exhausted); let the caller's own status
			// switch classify it instead of collapsing it into a
			// generic error.
			return last, nil
		}
		return nil, lastErr
	}
	return last, nil
}
