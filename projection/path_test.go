package projection

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSplitPath(t *testing.T) {
	Convey("Splitting virtual paths", t, func() {
		for _, tr := range []struct {
			vpath string
			sep   rune
			out   VirtualPath
		}{
			{"", '\\', VirtualPath{}},
			{"v1", '\\', VirtualPath{Tag: "v1"}},
			{`v1\README`, '\\', VirtualPath{Tag: "v1", Rest: "README"}},
			{`v1\src\lib\util.go`, '\\', VirtualPath{Tag: "v1", Rest: "src/lib/util.go"}},
			{`v1\`, '\\', VirtualPath{Tag: "v1"}},
			{"v1/src/lib", '/', VirtualPath{Tag: "v1", Rest: "src/lib"}},
			{"v1/src", '\\', VirtualPath{Tag: "v1/src"}},
			{`\orphan`, '\\', VirtualPath{Rest: "orphan"}},
			{`v1\..\v2`, '\\', VirtualPath{Tag: "v1", Rest: "../v2"}},
		} {
			Convey("path "+tr.vpath+" with separator "+string(tr.sep), func() {
				p := SplitPath(tr.vpath, tr.sep)
				So(p, ShouldResemble, tr.out)
				So(p.IsRoot(), ShouldEqual, tr.vpath == "")
			})
		}
	})
}
