/*
	Package tagfs projects the tags of a git repository as a read-only
	virtual filesystem.

	Each tag is a top-level directory; beneath it, the tree committed at that
	tag is exposed lazily, with file content read from the object store only
	when a host asks for it.

	Types in this file are the shared vocabulary between the projection
	engine (package `projection`), the repository adapters
	(`repository/...`), and the host adapters (`host/...`).
*/
package tagfs

// Kinds of objects a Repository can hand back.
// Anything which is neither a blob nor a tree (submodule gitlinks, mostly)
// is reported as ObjectKind_Other and is never projected.
type ObjectKind uint8

const (
	ObjectKind_Invalid ObjectKind = iota
	ObjectKind_Blob
	ObjectKind_Tree
	ObjectKind_Other
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectKind_Blob:
		return "blob"
	case ObjectKind_Tree:
		return "tree"
	case ObjectKind_Other:
		return "other"
	default:
		return "invalid"
	}
}

// A handle to an object in the repository.
// Hash is the store's own identifier (hex, for git); Size is only
// meaningful for blobs.
type Object struct {
	Kind ObjectKind
	Hash string
	Size int64
}

// One direct child of a tree.
type Child struct {
	Name string
	Object
}

/*
	Repository is the object-resolution interface the projection engine
	consumes.  Implementations must be safe for concurrent reads.

	Errors must carry a `tagfs.ErrorCategory`; `ErrNotFound` for anything
	that simply does not resolve, `ErrUpstream` for storage failures.
*/
type Repository interface {
	// Every tag name in the repository, in store order.
	Tags() ([]string, error)

	// Resolve a tag (through an annotated tag object if present) to the
	// root tree of the commit it names.  Tags which don't land on a
	// commit are ErrNotFound.
	TagRoot(tag string) (Object, error)

	// Look up a '/'-separated path beneath a tree.
	Lookup(tree Object, path string) (Object, error)

	// The direct children of a tree, in store order.
	Children(tree Object) ([]Child, error)

	// Copy blob bytes starting at offset into dst.
	// Returns the number of bytes copied; short counts happen only at
	// the end of the blob.
	ReadBlob(blob Object, dst []byte, offset int64) (int, error)
}

// File attribute bits reported to hosts alongside an Entry.
type Attributes uint32

const (
	Attr_ReadOnly  Attributes = 0x1
	Attr_Directory Attributes = 0x10
)

// The metadata a host needs to project one name: what goes in a
// directory listing row, or in a placeholder.
type FileBasicInfo struct {
	IsDirectory bool
	Size        int64
	Attributes  Attributes
}

// One child in a listing.  Immutable once produced.
type Entry struct {
	Name        string
	IsDirectory bool
	Size        int64 // zero for directories
}

func (e Entry) BasicInfo() FileBasicInfo {
	if e.IsDirectory {
		return FileBasicInfo{IsDirectory: true, Attributes: Attr_Directory}
	}
	return FileBasicInfo{Size: e.Size, Attributes: Attr_ReadOnly}
}

/*
	Lifecycle notifications a host may deliver.
	The engine is read-only; see `projection.ClassifyNotification` for
	which of these are tolerated.
*/
type Notification uint32

const (
	Notification_FileOpened                     Notification = 0x2
	Notification_NewFileCreated                 Notification = 0x4
	Notification_FileOverwritten                Notification = 0x8
	Notification_PreDelete                      Notification = 0x10
	Notification_PreRename                      Notification = 0x20
	Notification_PreSetHardlink                 Notification = 0x40
	Notification_FileRenamed                    Notification = 0x80
	Notification_HardlinkCreated                Notification = 0x100
	Notification_FileHandleClosedNoModification Notification = 0x200
	Notification_FileHandleClosedFileModified   Notification = 0x400
	Notification_FileHandleClosedFileDeleted    Notification = 0x800
	Notification_FilePreConvertToFull           Notification = 0x1000
)

func (n Notification) String() string {
	switch n {
	case Notification_FileOpened:
		return "file-opened"
	case Notification_NewFileCreated:
		return "new-file-created"
	case Notification_FileOverwritten:
		return "file-overwritten"
	case Notification_PreDelete:
		return "pre-delete"
	case Notification_PreRename:
		return "pre-rename"
	case Notification_PreSetHardlink:
		return "pre-set-hardlink"
	case Notification_FileRenamed:
		return "file-renamed"
	case Notification_HardlinkCreated:
		return "hardlink-created"
	case Notification_FileHandleClosedNoModification:
		return "closed-no-modification"
	case Notification_FileHandleClosedFileModified:
		return "closed-file-modified"
	case Notification_FileHandleClosedFileDeleted:
		return "closed-file-deleted"
	case Notification_FilePreConvertToFull:
		return "pre-convert-to-full"
	default:
		return "unknown"
	}
}

// Process exit codes for `cmd/tagfs`.
type ExitCode int

const (
	ExitSuccess               ExitCode = 0
	ExitUsage                 ExitCode = 1
	ExitRepositoryUnavailable ExitCode = 2
	ExitMountFailed           ExitCode = 3
)
