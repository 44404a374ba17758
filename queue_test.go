package efdl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fortytw2/leaktest"
	. "github.com/smartystreets/goconvey/convey"
)

func TestQueueManagerRunsSequentiallyAndAbortsOnFailure(t *testing.T) {
	defer leaktest.Check(t)()

	Convey("Given one URL that succeeds and one that fails", t, func() {
		ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "5")
			w.Write([]byte("hello"))
		}))
		defer ok.Close()

		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer bad.Close()

		dir := t.TempDir()
		d1, err := NewDownloader(Options{URL: ok.URL + "/a.txt", OutputDir: dir})
		So(err, ShouldBeNil)
		d2, err := NewDownloader(Options{URL: bad.URL + "/b.txt", OutputDir: dir})
		So(err, ShouldBeNil)

		qm := NewQueueManager(d1, d2)

		Convey("The first file completes and the queue reports the second download's failure", func() {
			var sawFailed, sawSecondInfo bool
			for upd := range qm.Run(context.Background()) {
				if upd.Event.Kind == EventFinished && upd.Event.FinalErr != nil {
					sawFailed = true
				}
				if upd.Event.Kind == EventInformation && upd.Progress.URL == d2.opts.URL {
					sawSecondInfo = true
				}
			}
			So(sawFailed, ShouldBeTrue)
			_ = sawSecondInfo

			got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "hello")
		})
	})
}
