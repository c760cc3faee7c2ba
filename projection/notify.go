package projection

import (
	"time"

	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/logging"
	"github.com/polydawn/tagfs/metrics"
)

const rejectedNotifications = tagfs.Notification_NewFileCreated |
	tagfs.Notification_FileOverwritten |
	tagfs.Notification_PreDelete |
	tagfs.Notification_PreRename |
	tagfs.Notification_PreSetHardlink |
	tagfs.Notification_FileRenamed |
	tagfs.Notification_HardlinkCreated |
	tagfs.Notification_FileHandleClosedFileModified |
	tagfs.Notification_FileHandleClosedFileDeleted |
	tagfs.Notification_FilePreConvertToFull

/*
	Decide what to do about a filesystem event: nil to allow it,
	`ErrRejected` for anything that would modify the projection, and
	`ErrUnsupported` for kinds with no defined handling.
*/
func ClassifyNotification(n tagfs.Notification) error {
	switch {
	case n == tagfs.Notification_FileOpened,
		n == tagfs.Notification_FileHandleClosedNoModification:
		return nil
	case n != 0 && n&(n-1) == 0 && n&rejectedNotifications != 0:
		return Errorf(tagfs.ErrRejected, "%s refused: projection is read-only", n)
	default:
		return Errorf(tagfs.ErrUnsupported, "no handling for notification %s", n)
	}
}

/*
	The notifications a host should subscribe to for the projection root:
	the ones announcing an impending modification, so they can be refused.
*/
func DefaultNotificationMask() tagfs.Notification {
	return tagfs.Notification_NewFileCreated |
		tagfs.Notification_FileOverwritten |
		tagfs.Notification_PreDelete |
		tagfs.Notification_PreRename |
		tagfs.Notification_PreSetHardlink |
		tagfs.Notification_FilePreConvertToFull
}

// Classify a notification about a path, logging refusals.
func (e *Engine) Notify(vpath string, isDirectory bool, n tagfs.Notification) (err error) {
	defer e.record(metrics.OpNotification, time.Now(), &err)

	err = ClassifyNotification(n)
	switch Category(err) {
	case nil:
	case tagfs.ErrRejected:
		e.log.Info("mutation rejected", logging.Path(vpath), logging.Notification(n), logging.IsDirectory(isDirectory))
	default:
		e.log.Warn("unhandled notification", logging.Path(vpath), logging.Notification(n))
	}
	return err
}
