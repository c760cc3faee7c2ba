package testutil

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/smartystreets/goconvey/convey"
)

/*
	Run `fn` with a fresh, empty temp dir, which is removed afterwards.

	The dir's name is random, so never put it in a Convey label: goconvey
	replays the enclosing block once per leaf, and the labels must match
	each time.
*/
func WithTmpdir(fn func(tmpDir string)) {
	tmpDir, err := ioutil.TempDir("", "tagfs-test-")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)
	// Resolve symlinks (e.g. macOS's /var) so mountpoints compare cleanly.
	tmpDir, err = filepath.EvalSymlinks(tmpDir)
	if err != nil {
		panic(err)
	}
	fn(tmpDir)
}

// Read a whole file, asserting there's no error.
func ShouldReadFile(pth string) string {
	bs, err := ioutil.ReadFile(pth)
	convey.So(err, convey.ShouldBeNil)
	return string(bs)
}
