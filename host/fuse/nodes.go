package fuse

import (
	"context"
	"path"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/logging"
)

/*
	node is one path in the projection.

	Its kind and size are captured from the metadata lookup that created
	it; the projection is immutable so they never go stale.
*/
type node struct {
	gofuse.Inode
	options *Options
	vpath   string // '/'-separated, relative to the mount; empty for the root.
	info    tagfs.FileBasicInfo
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReader = (*node)(nil)
var _ gofuse.NodeAccesser = (*node)(nil)
var _ gofuse.NodeCreater = (*node)(nil)
var _ gofuse.NodeMkdirer = (*node)(nil)
var _ gofuse.NodeMknoder = (*node)(nil)
var _ gofuse.NodeSymlinker = (*node)(nil)
var _ gofuse.NodeLinker = (*node)(nil)
var _ gofuse.NodeUnlinker = (*node)(nil)
var _ gofuse.NodeRmdirer = (*node)(nil)
var _ gofuse.NodeRenamer = (*node)(nil)

func newRoot(opts *Options) *node {
	return &node{
		options: opts,
		info:    tagfs.FileBasicInfo{IsDirectory: true, Attributes: tagfs.Attr_Directory},
	}
}

func (n *node) child(name string) string {
	if n.vpath == "" {
		return name
	}
	return path.Join(n.vpath, name)
}

func (n *node) mode() uint32 {
	if n.info.IsDirectory {
		return syscall.S_IFDIR | 0555
	}
	return syscall.S_IFREG | 0444
}

func (n *node) fillAttr(out *fuse.Attr) {
	out.Mode = n.mode()
	if !n.info.IsDirectory {
		out.Size = uint64(n.info.Size)
		out.Blocks = (out.Size + 511) / 512
	}
}

// Captures the metadata for the single path being looked up.
type lookupResult struct {
	info tagfs.FileBasicInfo
}

func (r *lookupResult) WritePlaceholder(_ string, info tagfs.FileBasicInfo) error {
	r.info = info
	return nil
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	vpath := n.child(name)
	var result lookupResult
	if err := n.options.Engine.ResolveMetadata(vpath, &result); err != nil {
		return nil, Errno(err)
	}
	child := &node{options: n.options, vpath: vpath, info: result.info}
	child.fillAttr(&out.Attr)
	return n.NewInode(ctx, child, gofuse.StableAttr{Mode: child.mode() &^ 07777}), 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	stream, err := openEnumeration(n.options.Engine, n.vpath, n.options.PageSize)
	if err != nil {
		return nil, Errno(err)
	}
	return stream, 0
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.fillAttr(&out.Attr)
	return 0
}

// Truncation is an overwrite; any other attribute change would make the file "full".
func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	notification := tagfs.Notification_FilePreConvertToFull
	if _, ok := in.GetSize(); ok {
		notification = tagfs.Notification_FileOverwritten
	}
	return n.notify(n.vpath, notification)
}

func (n *node) Access(ctx context.Context, mask uint32) syscall.Errno {
	if mask&unix.W_OK != 0 {
		return unix.EROFS
	}
	return Errno(n.options.Engine.QueryFileName(n.vpath))
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	switch {
	case flags&syscall.O_TRUNC != 0:
		return nil, 0, n.notify(n.vpath, tagfs.Notification_FileOverwritten)
	case flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0:
		return nil, 0, n.notify(n.vpath, tagfs.Notification_FilePreConvertToFull)
	}
	if errno := n.notify(n.vpath, tagfs.Notification_FileOpened); errno != 0 {
		return nil, 0, errno
	}
	// Content is immutable, so the page cache is always valid.
	return &readHandle{n}, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	sink := &destSink{dest: dest}
	if err := n.options.Engine.ReadContent(n.vpath, off, len(dest), sink); err != nil {
		n.options.Logger.Debug("read failed", logging.Path(n.vpath), logging.Offset(off), logging.Err(err))
		return nil, Errno(err)
	}
	return fuse.ReadResultData(sink.delivered), 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	return nil, nil, 0, n.notify(n.child(name), tagfs.Notification_NewFileCreated)
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, n.notify(n.child(name), tagfs.Notification_NewFileCreated)
}

func (n *node) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, n.notify(n.child(name), tagfs.Notification_NewFileCreated)
}

func (n *node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, n.notify(n.child(name), tagfs.Notification_NewFileCreated)
}

func (n *node) Link(ctx context.Context, target gofuse.InodeEmbedder, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, n.notify(n.child(name), tagfs.Notification_PreSetHardlink)
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return n.notify(n.child(name), tagfs.Notification_PreDelete)
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return n.notify(n.child(name), tagfs.Notification_PreDelete)
}

func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	return n.notify(n.child(name), tagfs.Notification_PreRename)
}

func (n *node) notify(vpath string, notification tagfs.Notification) syscall.Errno {
	err := n.options.Engine.Notify(vpath, n.info.IsDirectory, notification)
	if err != nil {
		n.options.Logger.Debug("request refused", logging.Path(vpath), zap.Stringer("notification", notification))
	}
	return Errno(err)
}

// Handle for a file opened for reading; exists to report the close.
type readHandle struct {
	n *node
}

var _ gofuse.FileReleaser = (*readHandle)(nil)

func (h *readHandle) Release(ctx context.Context) syscall.Errno {
	return h.n.notify(h.n.vpath, tagfs.Notification_FileHandleClosedNoModification)
}
