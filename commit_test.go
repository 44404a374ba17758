package efdl

import (
	"context"
	"os"
	"testing"

	"github.com/fortytw2/leaktest"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCommitPipelineWritesInOrder(t *testing.T) {
	defer leaktest.Check(t)()

	Convey("Given three chunks enqueued in ascending start order", t, func() {
		f, err := os.CreateTemp(t.TempDir(), "commit")
		So(err, ShouldBeNil)

		pipeline := newCommitPipeline(f)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go pipeline.run(ctx)

		pipeline.enqueue(commitItem{chunk: mustChunk(t, Range{Start: 0, End: 3}, "abc")})
		pipeline.enqueue(commitItem{chunk: mustChunk(t, Range{Start: 3, End: 6}, "def")})
		pipeline.enqueue(commitItem{chunk: mustChunk(t, Range{Start: 6, End: 9}, "ghi"), isLast: true})

		Convey("The writer finishes and produces a byte-exact file", func() {
			<-pipeline.Done()
			So(pipeline.Err(), ShouldBeNil)

			got, err := os.ReadFile(f.Name())
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "abcdefghi")
		})
	})
}

func TestCommitPipelineCancellation(t *testing.T) {
	defer leaktest.Check(t)()

	Convey("Given a pipeline with no final item enqueued", t, func() {
		f, err := os.CreateTemp(t.TempDir(), "commit")
		So(err, ShouldBeNil)

		pipeline := newCommitPipeline(f)
		ctx, cancel := context.WithCancel(context.Background())
		go pipeline.run(ctx)

		Convey("Cancelling ctx stops the writer without a final write", func() {
			cancel()
			<-pipeline.Done()
			So(pipeline.Err(), ShouldEqual, ErrCancelled)
		})
	})
}

func TestCommitPipelineShortWrite(t *testing.T) {
	defer leaktest.Check(t)()

	Convey("Given a writer that always reports a short write", t, func() {
		pipeline := newCommitPipeline(&shortWriter{})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go pipeline.run(ctx)

		pipeline.enqueue(commitItem{chunk: mustChunk(t, Range{Start: 0, End: 3}, "abc"), isLast: true})

		Convey("The writer reports ErrShortWrite and stops", func() {
			<-pipeline.Done()
			So(pipeline.Err(), ShouldNotBeNil)
		})
	})
}

// shortWriter always writes one fewer byte than requested, and is used
// to exercise the commit pipeline's short-write failure path without
// racing a real filesystem.
type shortWriter struct{}

func (s *shortWriter) Write(p []byte) (int, error) { return len(p), nil }
func (s *shortWriter) WriteAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return len(p) - 1, nil
}
func (s *shortWriter) Close() error { return nil }
