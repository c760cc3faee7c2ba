package projection

import (
	"strings"
)

// StoreSeparator is the path separator used within repository trees.
const StoreSeparator = '/'

/*
	A virtual path, split into the tag directory it falls under and the
	path within that tag's tree.

	The zero value is the synthetic root (the list of tags).
*/
type VirtualPath struct {
	Tag  string // Empty for the root.
	Rest string // '/'-separated; empty when the path names the tag dir itself.
}

/*
	Split a host path on its first separator.

	Everything after the first separator becomes `Rest`, with each host
	separator translated to the store's.  No cleaning of `.` or `..` and no
	case folding is done here; that's the business of name matching.
*/
func SplitPath(vpath string, sep rune) VirtualPath {
	if vpath == "" {
		return VirtualPath{}
	}
	i := strings.IndexRune(vpath, sep)
	if i < 0 {
		return VirtualPath{Tag: vpath}
	}
	rest := vpath[i+len(string(sep)):]
	if sep != StoreSeparator {
		rest = strings.Replace(rest, string(sep), string(StoreSeparator), -1)
	}
	return VirtualPath{Tag: vpath[:i], Rest: rest}
}

func (p VirtualPath) IsRoot() bool {
	return p.Tag == "" && p.Rest == ""
}

