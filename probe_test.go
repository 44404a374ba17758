package efdl

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fortytw2/leaktest"
	. "github.com/smartystreets/goconvey/convey"
)

func TestProbe(t *testing.T) {
	defer leaktest.Check(t)()

	Convey("Given a server that supports byte ranges", t, func() {
		body := []byte("0123456789")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", "10")
			w.Header().Set("Content-Type", "application/octet-stream; charset=binary")
			if r.Header.Get("Range") != "" {
				w.Header().Set("Content-Range", "bytes 0-0/10")
				w.WriteHeader(http.StatusPartialContent)
				w.Write(body[:1])
				return
			}
			w.Write(body)
		}))
		defer server.Close()

		Convey("Probe resolves size, mime, and resumability", func() {
			res, err := Probe(server.URL, ProbeOptions{})
			So(err, ShouldBeNil)
			So(res.TotalSize, ShouldEqual, 10)
			So(res.Resumable, ShouldBeTrue)
			So(res.MimeType, ShouldEqual, "application/octet-stream")
		})
	})

	Convey("Given a server that 404s", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		Convey("Probe returns an HTTPError with code 404", func() {
			_, err := Probe(server.URL, ProbeOptions{})
			So(err, ShouldHaveSameTypeAs, &HTTPError{})
			So(err.(*HTTPError).Code, ShouldEqual, 404)
		})
	})

	Convey("Given a server that redirects once then succeeds", t, func() {
		var final *httptest.Server
		final = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "4")
			w.Write([]byte("ABCD"))
		}))
		defer final.Close()

		redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, final.URL, http.StatusFound)
		}))
		defer redirector.Close()

		Convey("Probe follows the redirect transparently and resolves the same plan as probing final directly", func() {
			viaRedirect, err := Probe(redirector.URL, ProbeOptions{})
			So(err, ShouldBeNil)

			direct, err := Probe(final.URL, ProbeOptions{})
			So(err, ShouldBeNil)

			So(viaRedirect.TotalSize, ShouldEqual, direct.TotalSize)
			So(viaRedirect.FinalURL.Host, ShouldEqual, direct.FinalURL.Host)
		})
	})

	Convey("Given a 2xx response missing Content-Length", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("body"))
			w.(http.Flusher).Flush() // forces chunked transfer-encoding, no Content-Length
		}))
		defer server.Close()

		Convey("Probe returns an error", func() {
			_, err := Probe(server.URL, ProbeOptions{})
			So(err, ShouldNotBeNil)
		})
	})
}
