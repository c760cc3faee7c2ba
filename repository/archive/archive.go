/*
	Unpacks tarballs of git repositories into memory, so a projection can
	be served from a repository that was shipped around as a single file.

	Plain tar, gzip, xz, and zstd compression are recognized by their magic
	bytes.  The archive may hold a bare repository or a working tree, at
	its root or wrapped in a single top-level directory.
*/
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	. "github.com/warpfork/go-errcat"
	"github.com/xi2/xz"
	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/memfs"

	"github.com/polydawn/tagfs"
)

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicXz   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

/*
	Open an archive file and unpack it.

	May return errors of category:

	  - `tagfs.ErrRepositoryUnavailable` -- if the file can't be read or isn't an archive of a repository
	  - `tagfs.ErrUsage` -- if the archive contains paths escaping its root
*/
func Open(pth string) (_ billy.Filesystem, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	f, err := os.Open(pth)
	if err != nil {
		return nil, Errorf(tagfs.ErrRepositoryUnavailable, "cannot open archive: %s", err)
	}
	defer f.Close()
	return Unpack(f)
}

/*
	Unpack an archive stream into a fresh in-memory filesystem, and return
	that filesystem rooted at the repository inside it.
*/
func Unpack(r io.Reader) (_ billy.Filesystem, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	decompressed, err := Decompress(r)
	if err != nil {
		return nil, err
	}
	defer decompressed.Close()

	bfs := memfs.New()
	tr := tar.NewReader(decompressed)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, Errorf(tagfs.ErrRepositoryUnavailable, "corrupt archive: %s", err)
		}
		name, err := cleanName(hdr.Name)
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := bfs.MkdirAll(name, 0755); err != nil {
				return nil, Errorf(tagfs.ErrRepositoryUnavailable, "unpacking %q: %s", name, err)
			}
		case tar.TypeReg:
			if err := writeFile(bfs, name, tr); err != nil {
				return nil, Errorf(tagfs.ErrRepositoryUnavailable, "unpacking %q: %s", name, err)
			}
		default:
			// Links and devices have no place in a git dir.
		}
	}
	return findRepoRoot(bfs)
}

/*
	Wrap a stream in whatever decompressor its first bytes call for.
	Streams with no recognized magic are passed through.
*/
func Decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(len(magicXz))
	switch {
	case bytes.HasPrefix(magic, magicGzip):
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, Errorf(tagfs.ErrRepositoryUnavailable, "corrupt gzip: %s", err)
		}
		return gr, nil
	case bytes.HasPrefix(magic, magicXz):
		xr, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, Errorf(tagfs.ErrRepositoryUnavailable, "corrupt xz: %s", err)
		}
		return ioutil.NopCloser(xr), nil
	case bytes.HasPrefix(magic, magicZstd):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, Errorf(tagfs.ErrRepositoryUnavailable, "corrupt zstd: %s", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return ioutil.NopCloser(br), nil
	}
}

// Entry names relative to the archive root.  Relative names which climb out of it are refused.
func cleanName(name string) (string, error) {
	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", Errorf(tagfs.ErrUsage, "archive entry %q escapes the archive root", name)
	}
	cleaned = strings.TrimLeft(cleaned, "/")
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}

func writeFile(bfs billy.Filesystem, name string, r io.Reader) error {
	if dir := path.Dir(name); dir != "." {
		if err := bfs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := bfs.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// A repository root holds either `HEAD` (bare) or `.git` (working tree).
func isRepoRoot(bfs billy.Filesystem) bool {
	if fi, err := bfs.Stat("HEAD"); err == nil && !fi.IsDir() {
		return true
	}
	if fi, err := bfs.Stat(".git"); err == nil && fi.IsDir() {
		return true
	}
	return false
}

func findRepoRoot(bfs billy.Filesystem) (billy.Filesystem, error) {
	if isRepoRoot(bfs) {
		return bfs, nil
	}
	entries, err := bfs.ReadDir("")
	if err != nil {
		return nil, Errorf(tagfs.ErrRepositoryUnavailable, "archive unreadable: %s", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		sub, err := bfs.Chroot(entries[0].Name())
		if err != nil {
			return nil, Errorf(tagfs.ErrRepositoryUnavailable, "archive unreadable: %s", err)
		}
		if isRepoRoot(sub) {
			return sub, nil
		}
	}
	return nil, Errorf(tagfs.ErrRepositoryUnavailable, "archive does not contain a git repository")
}
