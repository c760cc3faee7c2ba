package fuse

import (
	"syscall"

	"github.com/warpfork/go-errcat"
	"golang.org/x/sys/unix"

	"github.com/polydawn/tagfs"
)

// Errno translates an engine error into what the kernel should see.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	switch errcat.Category(err) {
	case tagfs.ErrNotFound:
		return unix.ENOENT
	case tagfs.ErrInvalidSession, tagfs.ErrUsage:
		return unix.EINVAL
	case tagfs.ErrOutOfMemory:
		return unix.ENOMEM
	case tagfs.ErrUnsupported:
		return unix.ENOTSUP
	case tagfs.ErrRejected:
		return unix.EROFS
	default:
		return unix.EIO
	}
}
