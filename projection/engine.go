/*
	The projection engine: everything a host filesystem virtualizer needs
	to present a repository's tags as a read-only directory tree.

	An Engine is built once and shared by all host callbacks, which it
	expects to arrive concurrently.  The only state it keeps between calls
	is the enumeration session registry; every path is resolved afresh
	against the repository on each call.
*/
package projection

import (
	"time"

	"github.com/google/uuid"
	. "github.com/warpfork/go-errcat"
	"go.uber.org/zap"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/logging"
	"github.com/polydawn/tagfs/metrics"
	"github.com/polydawn/tagfs/names"
)

// HostSeparator is the path separator hosts use unless configured otherwise.
const HostSeparator = '\\'

type Engine struct {
	repo     tagfs.Repository
	registry *Registry
	sep      rune
	exact    bool // tag names compare exactly, not by host name equality.
	log      *zap.Logger
	metrics  *metrics.Metrics
}

type Option func(*Engine)

// The separator in paths handed to the engine by the host.
func WithSeparator(sep rune) Option {
	return func(e *Engine) { e.sep = sep }
}

/*
	Match tag directory names exactly, for hosts whose file names are
	case-sensitive.  Without this, `V1` finds the tag `v1`, as a
	case-insensitive host expects.
*/
func WithCaseSensitiveNames() Option {
	return func(e *Engine) { e.exact = true }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = logging.OrNop(log) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(repo tagfs.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:     repo,
		registry: NewRegistry(),
		sep:      HostSeparator,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Separator() rune {
	return e.sep
}

func (e *Engine) CaseSensitive() bool {
	return e.exact
}

func (e *Engine) sameName(a, b string) bool {
	if e.exact {
		return a == b
	}
	return names.Equal(a, b)
}

// Number of enumerations begun and not yet ended.
func (e *Engine) OpenSessions() int {
	return e.registry.Len()
}

/*
	Begin enumerating the directory at `vpath`, under a token chosen by the
	host.  The listing is captured now; later calls page through it.

	Errors: `ErrNotFound` if the path isn't a directory (no session is
	created); `ErrInvalidSession` if the token is already in use;
	`ErrUpstream` for repository failures.
*/
func (e *Engine) BeginEnumeration(token uuid.UUID, vpath string) (err error) {
	defer e.record(metrics.OpBeginEnumeration, time.Now(), &err)
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	snap, err := BuildSnapshot(e.repo, SplitPath(vpath, e.sep))
	if err != nil {
		e.log.Debug("enumeration refused", logging.Path(vpath), logging.Token(token), logging.Err(err))
		return err
	}
	if err := e.registry.insert(token, snap); err != nil {
		e.log.Warn("enumeration token reused", logging.Path(vpath), logging.Token(token))
		return err
	}
	e.metrics.SessionOpened()
	e.log.Debug("enumeration begun", logging.Path(vpath), logging.Token(token), zap.Int("entries", len(snap)))
	return nil
}

/*
	Fill `buf` with the next entries of an enumeration which match `filter`
	(host wildcard syntax; empty matches everything).

	Running out of buffer space is not an error: the call succeeds, and the
	next call resumes with the entry which didn't fit.  `restart` rewinds to
	the beginning and replaces the filter.

	Any other failure from `buf` is returned exactly as `buf` raised it,
	category or not.
*/
func (e *Engine) GetEnumeration(token uuid.UUID, filter string, restart bool, buf DirBuffer) (err error) {
	defer e.record(metrics.OpGetEnumeration, time.Now(), &err)

	err = e.registry.withSession(token, func(s *session) error {
		return s.fill(filter, restart, buf)
	})
	if err != nil {
		e.log.Debug("enumeration listing failed", logging.Token(token), logging.Filter(filter), logging.Err(err))
	}
	return err
}

/*
	End an enumeration and release its snapshot.
	Ending an unknown or already-ended token returns `ErrInvalidSession`
	and changes nothing.
*/
func (e *Engine) EndEnumeration(token uuid.UUID) (err error) {
	defer e.record(metrics.OpEndEnumeration, time.Now(), &err)
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	if err := e.registry.remove(token); err != nil {
		e.log.Debug("enumeration end for unknown token", logging.Token(token))
		return err
	}
	e.metrics.SessionClosed()
	e.log.Debug("enumeration ended", logging.Token(token))
	return nil
}

// Deferred by each callback; takes the error by pointer so it sees the final result.
func (e *Engine) record(op string, start time.Time, err *error) {
	e.metrics.RecordCallback(op, start, *err)
}
