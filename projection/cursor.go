package projection

import (
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/names"
)

/*
	DirBuffer is the host's output buffer for a listing call.

	Add should return an error of category `tagfs.ErrBufferFull` when the
	entry doesn't fit; the listing then stops there and resumes with that
	same entry on the next call.  Any other error aborts the listing and is
	passed back to the host as-is.
*/
type DirBuffer interface {
	Add(name string, info tagfs.FileBasicInfo) error
}

/*
	Fill the buffer with matching entries from the cursor onward.

	A restart, or the first call on a session, (re)sets the filter and
	rewinds the cursor.  The cursor is left at the entry that didn't fit, or
	at the end of the snapshot, in which case further calls list nothing.
*/
func (s *session) fill(filter string, restart bool, buf DirBuffer) error {
	if restart || !s.filterSet {
		s.filter = filter
		s.filterSet = true
		s.cursor = 0
	}
	for ; s.cursor < len(s.snapshot); s.cursor++ {
		entry := s.snapshot[s.cursor]
		if !names.Match(entry.Name, s.filter) {
			continue
		}
		switch err := buf.Add(entry.Name, entry.BasicInfo()); Category(err) {
		case nil:
		case tagfs.ErrBufferFull:
			return nil
		default:
			return err
		}
	}
	return nil
}

/*
	PageBuffer is a DirBuffer holding at most `Limit` entries.
	A zero or negative Limit holds nothing at all.
*/
type PageBuffer struct {
	Limit   int
	Entries []tagfs.Entry
}

func (b *PageBuffer) Add(name string, info tagfs.FileBasicInfo) error {
	if len(b.Entries) >= b.Limit {
		return Errorf(tagfs.ErrBufferFull, "page holds %d entries", b.Limit)
	}
	b.Entries = append(b.Entries, tagfs.Entry{Name: name, IsDirectory: info.IsDirectory, Size: info.Size})
	return nil
}

// Empties the buffer for reuse.
func (b *PageBuffer) Reset() {
	b.Entries = b.Entries[:0]
}
