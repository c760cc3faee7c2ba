/*
	Serves a projection through the Linux kernel with FUSE.

	Kernel requests are translated into projection engine calls:
	lookups resolve metadata, directory reads run an enumeration session
	page by page, reads stream content, and every request which would
	modify the tree becomes the corresponding notification (and is thus
	refused with EROFS).
*/
package fuse

import (
	"os"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	. "github.com/warpfork/go-errcat"
	"go.uber.org/zap"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/logging"
	"github.com/polydawn/tagfs/projection"
)

// DefaultPageSize is the number of entries fetched per enumeration call.
const DefaultPageSize = 64

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is created if it does not exist.
	Mountpoint string

	// Engine must be configured with '/' as its separator, and with
	// case-sensitive names: the kernel treats `V1` and `v1` as different
	// entries, so only one of them may exist.
	Engine *projection.Engine

	// PageSize bounds each enumeration page.  Zero uses DefaultPageSize.
	PageSize int

	// AllowOther permits other users to access the mount.
	// Requires user_allow_other in /etc/fuse.conf unless root.
	AllowOther bool

	// Logger may be nil.
	Logger *zap.Logger
}

/*
	Mount the projection.  The caller must Unmount the returned server.

	Errors are of category `tagfs.ErrUsage` for bad options, and
	`tagfs.ErrMountFailed` if the kernel mount fails.
*/
func Mount(opts Options) (_ *fuse.Server, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	if opts.Mountpoint == "" {
		return nil, Errorf(tagfs.ErrUsage, "mountpoint is required")
	}
	if opts.Engine == nil {
		return nil, Errorf(tagfs.ErrUsage, "engine is required")
	}
	if opts.Engine.Separator() != '/' {
		return nil, Errorf(tagfs.ErrUsage, "engine must use '/' separators for fuse, not %q", opts.Engine.Separator())
	}
	if !opts.Engine.CaseSensitive() {
		return nil, Errorf(tagfs.ErrUsage, "engine must use case-sensitive names for fuse")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	opts.Logger = logging.OrNop(opts.Logger)

	if err := os.MkdirAll(opts.Mountpoint, 0755); err != nil {
		return nil, Errorf(tagfs.ErrMountFailed, "creating mountpoint %s: %s", opts.Mountpoint, err)
	}

	server, err := gofuse.Mount(opts.Mountpoint, newRoot(&opts), mountOptions(opts))
	if err != nil {
		return nil, Errorf(tagfs.ErrMountFailed, "mounting at %s: %s", opts.Mountpoint, err)
	}
	opts.Logger.Info("projection mounted", zap.String("mountpoint", opts.Mountpoint))
	return server, nil
}

/*
	The go-fuse options for a mount.

	The tree never changes, so the kernel may cache freely.
	DirectMount calls mount(2) ourselves when we have the privilege,
	and only falls back to the `fusermount` helper when we don't.
*/
func mountOptions(opts Options) *gofuse.Options {
	entryTimeout := 1 * time.Hour
	attrTimeout := 1 * time.Hour
	negativeTimeout := 1 * time.Hour
	return &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:      "tagfs",
			Name:        "tagfs",
			AllowOther:  opts.AllowOther,
			DirectMount: true,
		},
	}
}
