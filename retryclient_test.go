package efdl

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRetryClientReturnsResponseForNonSuccessStatus(t *testing.T) {
	Convey("Given a server that always 404s", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		rc := NewRetryClient(2, time.Millisecond, time.Second)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		So(err, ShouldBeNil)

		Convey("Do returns the 404 response instead of a generic error", func() {
			res, err := rc.Do(req)
			So(err, ShouldBeNil)
			So(res, ShouldNotBeNil)
			So(res.StatusCode, ShouldEqual, http.StatusNotFound)
			res.Body.Close()
		})
	})
}

func TestRetryClientRetriesServerErrorsThenReturnsLastResponse(t *testing.T) {
	Convey("Given a server that always 500s", t, func() {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		rc := NewRetryClient(2, time.Millisecond, time.Second)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		So(err, ShouldBeNil)

		Convey("Do retries and returns the final 500 response with no error", func() {
			res, err := rc.Do(req)
			So(err, ShouldBeNil)
			So(res, ShouldNotBeNil)
			So(res.StatusCode, ShouldEqual, http.StatusInternalServerError)
			So(atomic.LoadInt32(&hits), ShouldBeGreaterThan, 1)
			res.Body.Close()
		})
	})
}

func TestRetryClientReturnsErrorOnTransportFailure(t *testing.T) {
	Convey("Given an address nothing listens on", t, func() {
		rc := NewRetryClient(1, time.Millisecond, 200*time.Millisecond)
		req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:1", nil)
		So(err, ShouldBeNil)

		Convey("Do returns a nil response and a non-nil error", func() {
			res, err := rc.Do(req)
			So(err, ShouldNotBeNil)
			So(res, ShouldBeNil)
		})
	})
}
