package projection

import (
	"sync"

	"github.com/google/uuid"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/tagfs"
)

/*
	State of one directory enumeration.

	Only reachable through the Registry; `mu` is held for the duration of
	each listing call on this token, so distinct tokens never contend here.
*/
type session struct {
	mu        sync.Mutex
	snapshot  Snapshot
	filter    string
	filterSet bool // absent until the first listing call.
	cursor    int
	ended     bool // set on removal, for a listing call racing an end.
}

/*
	Registry maps enumeration tokens to their sessions.

	A token is present from the completion of its begin until its end.
	There's no eviction: a host which never ends a session leaks it.
*/
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*session)}
}

// Number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) insert(token uuid.UUID, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[token]; exists {
		return Errorf(tagfs.ErrInvalidSession, "enumeration %s already in progress", token)
	}
	r.sessions[token] = &session{snapshot: snap}
	return nil
}

/*
	Remove a session.  Unknown (or already removed) tokens are reported as
	`ErrInvalidSession`, without any other effect.
*/
func (r *Registry) remove(token uuid.UUID) error {
	r.mu.Lock()
	s, ok := r.sessions[token]
	if !ok {
		r.mu.Unlock()
		return Errorf(tagfs.ErrInvalidSession, "no enumeration %s", token)
	}
	delete(r.sessions, token)
	r.mu.Unlock()

	s.mu.Lock()
	s.ended = true
	s.snapshot = nil
	s.mu.Unlock()
	return nil
}

/*
	Apply `fn` to a session while holding that session's lock (and only
	that session's lock).
*/
func (r *Registry) withSession(token uuid.UUID, fn func(*session) error) error {
	r.mu.Lock()
	s, ok := r.sessions[token]
	r.mu.Unlock()
	if !ok {
		return Errorf(tagfs.ErrInvalidSession, "no enumeration %s", token)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return Errorf(tagfs.ErrInvalidSession, "enumeration %s has ended", token)
	}
	return fn(s)
}
