package projection

import (
	"time"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/logging"
	"github.com/polydawn/tagfs/metrics"
)

/*
	PlaceholderWriter records metadata for a path the host asked about.
	Hosts which don't keep placeholders may make this a no-op.
*/
type PlaceholderWriter interface {
	WritePlaceholder(vpath string, info tagfs.FileBasicInfo) error
}

/*
	Determine whether a path exists, and whether it's a file (and its size)
	or a directory, without building a listing.

	A path naming a tag directory is checked against the tag list by name
	alone, using host name equality (or exactly, if the engine is
	case-sensitive).  Deeper paths are resolved through the
	repository.  The synthetic root is a directory.
*/
func (e *Engine) Stat(vpath string) (_ tagfs.FileBasicInfo, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	p := SplitPath(vpath, e.sep)
	if p.Tag != "" && p.Rest == "" {
		tags, err := e.repo.Tags()
		if err != nil {
			return tagfs.FileBasicInfo{}, upstreamUnlessNotFound(err)
		}
		for _, tag := range tags {
			if e.sameName(tag, p.Tag) {
				return tagfs.FileBasicInfo{IsDirectory: true, Attributes: tagfs.Attr_Directory}, nil
			}
		}
		return tagfs.FileBasicInfo{}, Errorf(tagfs.ErrNotFound, "no tag %q", p.Tag)
	}
	loc, err := resolve(e.repo, p)
	if err != nil {
		return tagfs.FileBasicInfo{}, err
	}
	return loc.basicInfo(), nil
}

/*
	Stat a path, and on success write its placeholder, under the exact path
	requested.  Nothing is written on failure.
*/
func (e *Engine) ResolveMetadata(vpath string, w PlaceholderWriter) (err error) {
	defer e.record(metrics.OpResolveMetadata, time.Now(), &err)
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	info, err := e.Stat(vpath)
	if err != nil {
		e.log.Debug("metadata not resolved", logging.Path(vpath), logging.Err(err))
		return err
	}
	if err := w.WritePlaceholder(vpath, info); err != nil {
		e.log.Warn("placeholder write failed", logging.Path(vpath), logging.Err(err))
		return hostFailure(err, "placeholder write failed")
	}
	return nil
}

/*
	Report only whether a path exists: nil, or `ErrNotFound`.
	Same rules as Stat; nothing is written.
*/
func (e *Engine) QueryFileName(vpath string) (err error) {
	defer e.record(metrics.OpQueryFileName, time.Now(), &err)
	_, err = e.Stat(vpath)
	return err
}
