package tagfs

/*
	ErrorCategory is the category attached (via go-errcat) to every error
	raised by tagfs packages.

	Functions across package boundaries check
	`defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))`
	so callers can always switch on `errcat.Category(err)`.
*/
type ErrorCategory string

const (
	ErrNotFound       ErrorCategory = "tagfs-notfound"       // path, tag, or object does not resolve.
	ErrInvalidSession ErrorCategory = "tagfs-invalidsession" // unknown or already-ended enumeration token.
	ErrOutOfMemory    ErrorCategory = "tagfs-outofmemory"    // a transfer buffer could not be allocated.
	ErrUnsupported    ErrorCategory = "tagfs-unsupported"    // notification kind with no defined handling.
	ErrRejected       ErrorCategory = "tagfs-rejected"       // mutation attempted on the read-only projection.
	ErrUpstream       ErrorCategory = "tagfs-upstream"       // repository failure not otherwise classified.

	// Raised by a host's directory buffer when an entry will not fit.
	// The enumeration cursor consumes this; it never reaches a host.
	ErrBufferFull ErrorCategory = "tagfs-bufferfull"

	ErrUsage                 ErrorCategory = "tagfs-usage"            // bad arguments or addresses.
	ErrRepositoryUnavailable ErrorCategory = "tagfs-repo-unavailable" // the repository cannot be opened.
	ErrMountFailed           ErrorCategory = "tagfs-mount-failed"     // the host refused to start projecting.
)
