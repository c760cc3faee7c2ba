package tagfs

// Types in this file are serializable; they're what `tagfs --format=json`
// emits on stdout.

import (
	"fmt"

	"github.com/polydawn/refmt/obj/atlas"
	"github.com/warpfork/go-errcat"
)

// Union of the things the CLI may report.  Exactly one field is set.
type Event struct {
	Ready  *Event_Ready
	Result *Event_Result
}

// Emitted once the projection is mounted and serving.
type Event_Ready struct {
	Repository string
	Mountpoint string
	Tags       int
}

// Emitted last, when the process is about to exit.
type Event_Result struct {
	Category string
	Error    string
}

func (r *Event_Result) SetError(err error) {
	if err == nil {
		return
	}
	r.Error = err.Error()
	switch c := errcat.Category(err).(type) {
	case ErrorCategory:
		r.Category = string(c)
	case nil:
	default:
		r.Category = fmt.Sprintf("%v", c)
	}
}

var Event_AtlasEntry = atlas.BuildEntry(Event{}).StructMap().
	AddField("Ready", atlas.StructMapEntry{SerialName: "ready", OmitEmpty: true}).
	AddField("Result", atlas.StructMapEntry{SerialName: "result", OmitEmpty: true}).
	Complete()

var Event_Ready_AtlasEntry = atlas.BuildEntry(Event_Ready{}).StructMap().
	AddField("Repository", atlas.StructMapEntry{SerialName: "repository"}).
	AddField("Mountpoint", atlas.StructMapEntry{SerialName: "mountpoint"}).
	AddField("Tags", atlas.StructMapEntry{SerialName: "tags"}).
	Complete()

var Event_Result_AtlasEntry = atlas.BuildEntry(Event_Result{}).StructMap().
	AddField("Category", atlas.StructMapEntry{SerialName: "category", OmitEmpty: true}).
	AddField("Error", atlas.StructMapEntry{SerialName: "error", OmitEmpty: true}).
	Complete()

var Atlas = atlas.MustBuild(
	Event_AtlasEntry,
	Event_Ready_AtlasEntry,
	Event_Result_AtlasEntry,
)
