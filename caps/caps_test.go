package caps_test

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/polydawn/tagfs/caps"
	"github.com/polydawn/tagfs/testutil"
)

func TestUserAllowOther(t *testing.T) {
	Convey("Reading user_allow_other from fuse.conf", t, func() {
		testutil.WithTmpdir(func(tmpDir string) {
			conf := filepath.Join(tmpDir, "fuse.conf")
			for _, tr := range []struct {
				label   string
				content string
				allowed bool
			}{
				{"enabled", "user_allow_other\n", true},
				{"enabled among other settings", "mount_max = 1000\n  user_allow_other  \n", true},
				{"commented out", "#user_allow_other\n", false},
				{"trailing comment", "user_allow_other # yes please\n", true},
				{"absent", "mount_max = 1000\n", false},
			} {
				tr := tr
				Convey(tr.label, func() {
					So(ioutil.WriteFile(conf, []byte(tr.content), 0644), ShouldBeNil)
					So(caps.UserAllowOther(conf), ShouldEqual, tr.allowed)
				})
			}
			Convey("missing file", func() {
				So(caps.UserAllowOther(filepath.Join(tmpDir, "nope")), ShouldBeFalse)
			})
		})
	})
}
