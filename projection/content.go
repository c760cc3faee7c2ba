package projection

import (
	"time"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/logging"
	"github.com/polydawn/tagfs/metrics"
)

/*
	ContentSink is where file bytes are delivered.

	Allocate returns a transfer buffer of exactly `length` bytes, or nil if
	it can't; Write hands a filled buffer back to the host to land at
	`offset` in the file.
*/
type ContentSink interface {
	Allocate(length int) []byte
	Write(buf []byte, offset int64) error
}

/*
	Deliver `length` bytes of a file's content starting at `offset`.

	The range is clamped to the end of the blob; an offset at or past the
	end delivers nothing and succeeds.  Directories and missing paths are
	`ErrNotFound`; a buffer that can't be allocated is `ErrOutOfMemory`;
	any failure reading the blob is `ErrUpstream`.
*/
func (e *Engine) ReadContent(vpath string, offset int64, length int, sink ContentSink) (err error) {
	defer e.record(metrics.OpReadContent, time.Now(), &err)
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	if offset < 0 || length < 0 {
		return Errorf(tagfs.ErrUsage, "negative range (offset %d, length %d)", offset, length)
	}
	loc, err := resolve(e.repo, SplitPath(vpath, e.sep))
	if err != nil {
		return err
	}
	if loc.kind != location_File {
		return Errorf(tagfs.ErrNotFound, "%q is not a file", vpath)
	}
	if offset >= loc.obj.Size || length == 0 {
		return nil
	}
	n := length
	if remaining := loc.obj.Size - offset; int64(n) > remaining {
		n = int(remaining)
	}

	buf := sink.Allocate(n)
	if buf == nil {
		e.log.Warn("content buffer allocation failed", logging.Path(vpath), logging.Size(int64(n)))
		return Errorf(tagfs.ErrOutOfMemory, "cannot allocate %d bytes for %q", n, vpath)
	}
	got, err := e.repo.ReadBlob(loc.obj, buf[:n], offset)
	if err != nil {
		return Errorf(tagfs.ErrUpstream, "reading %q: %s", vpath, err)
	}
	if got != n {
		return Errorf(tagfs.ErrUpstream, "reading %q: wanted %d bytes, got %d", vpath, n, got)
	}
	if err := sink.Write(buf[:n], offset); err != nil {
		return hostFailure(err, "delivering "+vpath)
	}
	e.metrics.BytesServed(n)
	e.log.Debug("content served", logging.Path(vpath), logging.Offset(offset), logging.Size(int64(n)))
	return nil
}

/*
	BufferSink collects delivered content in memory.
	Allocations larger than `MaxAlloc` fail, if it's set.
*/
type BufferSink struct {
	MaxAlloc int
	Data     []byte
	Offset   int64
}

func (s *BufferSink) Allocate(length int) []byte {
	if s.MaxAlloc > 0 && length > s.MaxAlloc {
		return nil
	}
	return make([]byte, length)
}

func (s *BufferSink) Write(buf []byte, offset int64) error {
	s.Data = append(s.Data[:0], buf...)
	s.Offset = offset
	return nil
}
