package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"io/ioutil"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	. "github.com/smartystreets/goconvey/convey"
	. "github.com/warpfork/go-errcat"

	"github.com/polydawn/tagfs"
)

type tarEntry struct {
	name    string
	content string // dirs are names ending in '/'.
}

func makeTar(entries ...tarEntry) []byte {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, ent := range entries {
		hdr := &tar.Header{Name: ent.name, Mode: 0644, Typeflag: tar.TypeReg, Size: int64(len(ent.content))}
		if ent.name[len(ent.name)-1] == '/' {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0755
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			panic(err)
		}
		if _, err := io.WriteString(tw, ent.content); err != nil {
			panic(err)
		}
	}
	if err := tw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func gzipped(bs []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write(bs)
	w.Close()
	return buf.Bytes()
}

func zstded(bs []byte) []byte {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		panic(err)
	}
	w.Write(bs)
	w.Close()
	return buf.Bytes()
}

var bareLayout = []tarEntry{
	{"HEAD", "ref: refs/heads/master\n"},
	{"refs/", ""},
	{"refs/tags/", ""},
	{"objects/", ""},
}

func wrapped(prefix string, entries []tarEntry) []tarEntry {
	result := []tarEntry{{prefix, ""}}
	for _, ent := range entries {
		result = append(result, tarEntry{prefix + ent.name, ent.content})
	}
	return result
}

func TestUnpack(t *testing.T) {
	Convey("Unpacking archives", t, func() {
		Convey("a plain tar of a bare repo is rooted at the repo", func() {
			bfs, err := Unpack(bytes.NewReader(makeTar(bareLayout...)))
			So(err, ShouldBeNil)
			f, err := bfs.Open("HEAD")
			So(err, ShouldBeNil)
			bs, _ := ioutil.ReadAll(f)
			So(string(bs), ShouldEqual, "ref: refs/heads/master\n")
		})
		Convey("a gzipped tar with a wrapper dir is rooted inside the wrapper", func() {
			bfs, err := Unpack(bytes.NewReader(gzipped(makeTar(wrapped("repo.git/", bareLayout)...))))
			So(err, ShouldBeNil)
			fi, err := bfs.Stat("HEAD")
			So(err, ShouldBeNil)
			So(fi.IsDir(), ShouldBeFalse)
		})
		Convey("a zstd tar of a working tree keeps its .git dir", func() {
			bfs, err := Unpack(bytes.NewReader(zstded(makeTar(
				append([]tarEntry{{"./README", "hi"}}, wrapped("./.git/", bareLayout)...)...,
			))))
			So(err, ShouldBeNil)
			fi, err := bfs.Stat(".git/HEAD")
			So(err, ShouldBeNil)
			So(fi.Size(), ShouldEqual, 23)
		})
		Convey("archives without a repository are unavailable", func() {
			_, err := Unpack(bytes.NewReader(makeTar(tarEntry{"README", "hi"})))
			So(Category(err), ShouldEqual, tagfs.ErrRepositoryUnavailable)
		})
		Convey("entries escaping the root are rejected", func() {
			_, err := Unpack(bytes.NewReader(makeTar(tarEntry{"../HEAD", "x"})))
			So(Category(err), ShouldEqual, tagfs.ErrUsage)
			_, err = Unpack(bytes.NewReader(makeTar(tarEntry{"repo/../../HEAD", "x"})))
			So(Category(err), ShouldEqual, tagfs.ErrUsage)
		})
		Convey("garbage is not an archive", func() {
			_, err := Unpack(bytes.NewReader(gzipped([]byte("definitely not a tarball, no sir"))))
			So(Category(err), ShouldEqual, tagfs.ErrRepositoryUnavailable)
		})
	})
}

func TestCleanName(t *testing.T) {
	for _, tr := range []struct {
		in, out string
		ok      bool
	}{
		{"HEAD", "HEAD", true},
		{"./HEAD", "HEAD", true},
		{"a/b/../c", "a/c", true},
		{"/abs/path", "abs/path", true},
		{"./", "", true},
		{"../x", "", false},
		{"a/../../x", "", false},
		{"..", "", false},
		{"a/b/../../..", "", false},
		{"./../x", "", false},
		{"/", "", true},
		{"/../x", "x", true},
	} {
		t.Run(tr.in, func(t *testing.T) {
			out, err := cleanName(tr.in)
			if (err == nil) != tr.ok {
				t.Errorf("cleanName(%q) error = %v, wanted ok=%v", tr.in, err, tr.ok)
			}
			if out != tr.out {
				t.Errorf("cleanName(%q) = %q, want %q", tr.in, out, tr.out)
			}
		})
	}
}
