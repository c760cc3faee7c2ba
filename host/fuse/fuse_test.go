package fuse

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/warpfork/go-errcat"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/projection"
	"github.com/polydawn/tagfs/repository/git"
	"github.com/polydawn/tagfs/testutil"
)

func exampleEngine() *projection.Engine {
	ctrl, err := git.FromStorer(testutil.MemoryRepo(testutil.ExampleFixture), "example")
	if err != nil {
		panic(err)
	}
	return projection.New(ctrl, projection.WithSeparator('/'), projection.WithCaseSensitiveNames())
}

func TestErrno(t *testing.T) {
	Convey("Engine errors map onto errnos", t, func() {
		So(Errno(nil), ShouldEqual, syscall.Errno(0))
		for cat, errno := range map[tagfs.ErrorCategory]syscall.Errno{
			tagfs.ErrNotFound:       syscall.ENOENT,
			tagfs.ErrInvalidSession: syscall.EINVAL,
			tagfs.ErrOutOfMemory:    syscall.ENOMEM,
			tagfs.ErrUnsupported:    syscall.ENOTSUP,
			tagfs.ErrRejected:       syscall.EROFS,
			tagfs.ErrUpstream:       syscall.EIO,
		} {
			So(Errno(errcat.Errorf(cat, "x")), ShouldEqual, errno)
		}
	})
}

func TestEnumerationStream(t *testing.T) {
	Convey("Directory streams page through an enumeration", t, func() {
		engine := exampleEngine()

		for _, pageSize := range []int{1, 2, 3, 100} {
			Convey(fmt.Sprintf("in pages of %d", pageSize), func() {
				stream, err := openEnumeration(engine, "v1/src", pageSize)
				So(err, ShouldBeNil)
				So(engine.OpenSessions(), ShouldEqual, 1)
				var names []string
				var modes []uint32
				for stream.HasNext() {
					ent, errno := stream.Next()
					So(errno, ShouldEqual, syscall.Errno(0))
					names = append(names, ent.Name)
					modes = append(modes, ent.Mode)
				}
				So(names, ShouldResemble, []string{"alpha.md", "lib", "main.go", "Zeta.txt"})
				So(modes, ShouldResemble, []uint32{syscall.S_IFREG, syscall.S_IFDIR, syscall.S_IFREG, syscall.S_IFREG})
				So(stream.HasNext(), ShouldBeFalse)
				stream.Close()
				So(engine.OpenSessions(), ShouldEqual, 0)
			})
		}
		Convey("missing directories can't be opened", func() {
			_, err := openEnumeration(engine, "v1/nope", 10)
			So(Errno(err), ShouldEqual, syscall.ENOENT)
			So(engine.OpenSessions(), ShouldEqual, 0)
		})
		Convey("a session ended underneath the stream surfaces as an error", func() {
			stream, err := openEnumeration(engine, "v1", 10)
			So(err, ShouldBeNil)
			So(engine.EndEnumeration(stream.token), ShouldBeNil)
			So(stream.HasNext(), ShouldBeTrue)
			_, errno := stream.Next()
			So(errno, ShouldEqual, syscall.EINVAL)
			So(stream.HasNext(), ShouldBeFalse)
		})
	})
}

func TestDestSink(t *testing.T) {
	Convey("Reads land in the kernel's buffer", t, func() {
		engine := exampleEngine()
		dest := make([]byte, 8)
		sink := &destSink{dest: dest}
		So(engine.ReadContent("v1/README", 4, len(dest), sink), ShouldBeNil)
		So(string(sink.delivered), ShouldEqual, "o world\n")
		So(&sink.delivered[0], ShouldPointTo, &dest[0])

		Convey("and can't outgrow it", func() {
			So(sink.Allocate(9), ShouldBeNil)
		})
	})
}

func TestMountOptions(t *testing.T) {
	Convey("Mounting refuses unusable options", t, func() {
		_, err := Mount(Options{Engine: exampleEngine()})
		So(err, errcat.ErrorShouldHaveCategory, tagfs.ErrUsage)
		_, err = Mount(Options{Mountpoint: "/nonexistent"})
		So(err, errcat.ErrorShouldHaveCategory, tagfs.ErrUsage)
		ctrl, _ := git.FromStorer(testutil.MemoryRepo(testutil.ExampleFixture), "example")
		_, err = Mount(Options{Mountpoint: "/nonexistent", Engine: projection.New(ctrl)})
		So(err, errcat.ErrorShouldHaveCategory, tagfs.ErrUsage)
		_, err = Mount(Options{Mountpoint: "/nonexistent", Engine: projection.New(ctrl, projection.WithSeparator('/'))})
		So(err, errcat.ErrorShouldHaveCategory, tagfs.ErrUsage)
		So(err.Error(), ShouldContainSubstring, "case-sensitive")
	})
	Convey("Mounts call mount(2) directly when they can", t, func() {
		opts := mountOptions(Options{AllowOther: true})
		So(opts.MountOptions.DirectMount, ShouldBeTrue)
		So(opts.MountOptions.DirectMountStrict, ShouldBeFalse)
		So(opts.MountOptions.AllowOther, ShouldBeTrue)
		So(*opts.EntryTimeout, ShouldBeGreaterThan, 0)
	})
}

func TestMount(t *testing.T) {
	Convey("Given a mounted projection", t, testutil.Requires(
		testutil.RequiresCanMountFuse,
		testutil.RequiresEnvBlank("TAGFS_TEST_SKIP_MOUNT"),
		func() {
			testutil.WithTmpdir(func(tmpDir string) {
				mnt := filepath.Join(tmpDir, "mnt")
				engine := exampleEngine()
				server, err := Mount(Options{Mountpoint: mnt, Engine: engine, PageSize: 2})
				So(err, ShouldBeNil)
				defer server.Unmount()

				Convey("the root lists the tags", func() {
					names := readDirNames(mnt)
					So(names, ShouldResemble, []string{"v1", "v2"})
				})
				Convey("directories list their children", func() {
					names := readDirNames(filepath.Join(mnt, "v1", "src"))
					So(names, ShouldResemble, []string{"Zeta.txt", "alpha.md", "lib", "main.go"})
				})
				Convey("files have their content and size", func() {
					fi, err := os.Stat(filepath.Join(mnt, "v1", "README"))
					So(err, ShouldBeNil)
					So(fi.Size(), ShouldEqual, 12)
					So(fi.Mode().Perm(), ShouldEqual, os.FileMode(0444))
					So(testutil.ShouldReadFile(filepath.Join(mnt, "v1", "README")), ShouldEqual, "hello world\n")
				})
				Convey("missing paths don't exist", func() {
					_, err := os.Stat(filepath.Join(mnt, "v3"))
					So(os.IsNotExist(err), ShouldBeTrue)
				})
				Convey("tag names are case-sensitive", func() {
					_, err := os.Stat(filepath.Join(mnt, "V1"))
					So(os.IsNotExist(err), ShouldBeTrue)
				})
				Convey("writes are refused as a read-only filesystem", func() {
					err := ioutil.WriteFile(filepath.Join(mnt, "v1", "new"), []byte("x"), 0644)
					So(errors.Is(err, syscall.EROFS), ShouldBeTrue)
					err = ioutil.WriteFile(filepath.Join(mnt, "v1", "README"), []byte("x"), 0644)
					So(errors.Is(err, syscall.EROFS), ShouldBeTrue)
					err = os.Remove(filepath.Join(mnt, "v1", "README"))
					So(errors.Is(err, syscall.EROFS), ShouldBeTrue)
					err = os.Rename(filepath.Join(mnt, "v1", "README"), filepath.Join(mnt, "v1", "README2"))
					So(errors.Is(err, syscall.EROFS), ShouldBeTrue)
					err = os.Mkdir(filepath.Join(mnt, "v1", "dir"), 0755)
					So(errors.Is(err, syscall.EROFS), ShouldBeTrue)
				})
			})
		},
	))
}

func readDirNames(dir string) []string {
	f, err := os.Open(dir)
	So(err, ShouldBeNil)
	defer f.Close()
	names, err := f.Readdirnames(-1)
	So(err, ShouldBeNil)
	sort.Strings(names)
	return names
}
