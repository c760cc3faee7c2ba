package fuse

import (
	"syscall"

	"github.com/google/uuid"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/polydawn/tagfs/projection"
)

/*
	A directory stream backed by an enumeration session.

	Entries are fetched a page at a time as the kernel consumes them; the
	session is ended when the stream is closed.
*/
type enumerationStream struct {
	engine  *projection.Engine
	token   uuid.UUID
	page    projection.PageBuffer
	pos     int
	restart bool
	done    bool
	err     error
}

func openEnumeration(engine *projection.Engine, vpath string, pageSize int) (*enumerationStream, error) {
	token := uuid.New()
	if err := engine.BeginEnumeration(token, vpath); err != nil {
		return nil, err
	}
	return &enumerationStream{
		engine:  engine,
		token:   token,
		page:    projection.PageBuffer{Limit: pageSize},
		restart: true,
	}, nil
}

func (s *enumerationStream) HasNext() bool {
	if s.err != nil {
		return true
	}
	if s.pos < len(s.page.Entries) {
		return true
	}
	if s.done {
		return false
	}
	s.page.Reset()
	s.pos = 0
	if err := s.engine.GetEnumeration(s.token, "", s.restart, &s.page); err != nil {
		s.err = err
		return true
	}
	s.restart = false
	if len(s.page.Entries) == 0 {
		s.done = true
		return false
	}
	return true
}

func (s *enumerationStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.err != nil {
		err := s.err
		s.err = nil
		s.done = true
		return fuse.DirEntry{}, Errno(err)
	}
	ent := s.page.Entries[s.pos]
	s.pos++
	mode := uint32(syscall.S_IFREG)
	if ent.IsDirectory {
		mode = syscall.S_IFDIR
	}
	return fuse.DirEntry{Name: ent.Name, Mode: mode}, 0
}

func (s *enumerationStream) Close() {
	s.engine.EndEnumeration(s.token)
}
