package projection

import (
	"sort"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/names"
)

/*
	The full, sorted listing of one directory, captured when an enumeration
	begins.  Never mutated afterwards.
*/
type Snapshot []tagfs.Entry

/*
	List the directory at a virtual path.

	At the root, every tag is a directory.  Beneath a tag, the tree's direct
	children are listed: blobs as files with their sizes, trees as
	directories; anything else (e.g. submodules) is skipped.
	Entries are sorted in host filename order, which is the same collation
	`names.Match` and the metadata lookups use.

	Returns `ErrNotFound` if the path doesn't resolve to a directory.
*/
func BuildSnapshot(repo tagfs.Repository, p VirtualPath) (_ Snapshot, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	loc, err := resolve(repo, p)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	switch loc.kind {
	case location_Root:
		tags, err := repo.Tags()
		if err != nil {
			return nil, upstreamUnlessNotFound(err)
		}
		snap = make(Snapshot, 0, len(tags))
		for _, tag := range tags {
			snap = append(snap, tagfs.Entry{Name: tag, IsDirectory: true})
		}
	case location_Dir:
		children, err := repo.Children(loc.obj)
		if err != nil {
			return nil, upstreamUnlessNotFound(err)
		}
		snap = make(Snapshot, 0, len(children))
		for _, child := range children {
			switch child.Kind {
			case tagfs.ObjectKind_Blob:
				snap = append(snap, tagfs.Entry{Name: child.Name, Size: child.Size})
			case tagfs.ObjectKind_Tree:
				snap = append(snap, tagfs.Entry{Name: child.Name, IsDirectory: true})
			}
		}
	default:
		return nil, Errorf(tagfs.ErrNotFound, "%q is not a directory", p.Tag+"/"+p.Rest)
	}
	sort.SliceStable(snap, func(i, j int) bool {
		return names.Compare(snap[i].Name, snap[j].Name) < 0
	})
	return snap, nil
}
