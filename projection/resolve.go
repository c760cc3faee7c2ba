package projection

import (
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/tagfs"
)

type locationKind uint8

const (
	location_Root locationKind = iota
	location_Dir
	location_File
)

/*
	Where a virtual path lands in the repository.

	Computed fresh on every call and never retained; the store may be
	read concurrently by unrelated callbacks.
*/
type location struct {
	kind locationKind
	obj  tagfs.Object // zero for the root.
}

func (l location) basicInfo() tagfs.FileBasicInfo {
	if l.kind == location_File {
		return tagfs.FileBasicInfo{Size: l.obj.Size, Attributes: tagfs.Attr_ReadOnly}
	}
	return tagfs.FileBasicInfo{IsDirectory: true, Attributes: tagfs.Attr_Directory}
}

/*
	Resolve tag, then commit, then tree, then the remaining path.

	Errors are `ErrNotFound` when anything along the way doesn't exist
	(including paths landing on objects which are neither blobs nor
	trees), and `ErrUpstream` for other repository failures.
*/
func resolve(repo tagfs.Repository, p VirtualPath) (location, error) {
	if p.IsRoot() {
		return location{kind: location_Root}, nil
	}
	if p.Tag == "" {
		return location{}, Errorf(tagfs.ErrNotFound, "path %q has no tag component", p.Rest)
	}
	root, err := repo.TagRoot(p.Tag)
	if err != nil {
		return location{}, upstreamUnlessNotFound(err)
	}
	if p.Rest == "" {
		return location{kind: location_Dir, obj: root}, nil
	}
	obj, err := repo.Lookup(root, p.Rest)
	if err != nil {
		return location{}, upstreamUnlessNotFound(err)
	}
	switch obj.Kind {
	case tagfs.ObjectKind_Tree:
		return location{kind: location_Dir, obj: obj}, nil
	case tagfs.ObjectKind_Blob:
		return location{kind: location_File, obj: obj}, nil
	default:
		return location{}, Errorf(tagfs.ErrNotFound, "%q in tag %q is a %s", p.Rest, p.Tag, obj.Kind)
	}
}

// Repository adapters may be anyone's; anything but not-found is upstream failure.
func upstreamUnlessNotFound(err error) error {
	if Category(err) == tagfs.ErrNotFound {
		return err
	}
	return Errorf(tagfs.ErrUpstream, "repository failure: %s", err)
}

// Host callbacks may fail with anything; failures without a tagfs category become upstream failures.
func hostFailure(err error, what string) error {
	if _, ok := Category(err).(tagfs.ErrorCategory); ok {
		return err
	}
	return Errorf(tagfs.ErrUpstream, "%s: %s", what, err)
}
