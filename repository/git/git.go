/*
	The git repository adapter exposes a git object store as a
	`tagfs.Repository`: tags, the trees their commits point at, and blob
	bytes.  It is strictly read-only.

	Repositories are opened from the local filesystem; either a working
	tree (its `.git` dir is used), a bare repository directory, or a
	packed archive of either (see package `archive`).
	Nothing is cloned or fetched.
*/
package git

import (
	"encoding/hex"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-billy.v4"
	srcd_osfs "gopkg.in/src-d/go-billy.v4/osfs"
	srcd_git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/cache"
	"gopkg.in/src-d/go-git.v4/plumbing/filemode"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/storage"
	"gopkg.in/src-d/go-git.v4/storage/filesystem"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/names"
	"github.com/polydawn/tagfs/repository/archive"
)

var (
	_ tagfs.Repository = &Controller{}
)

const (
	dotGit     = ".git"
	tagsPrefix = "refs/tags/"
)

/*
	Wraps a go-git repository handle.

	go-git's on-disk storage lazily loads packfile indexes and shares file
	handles between readers, so it is not safe for concurrent use; every
	call which touches the store takes `mu`.  Tags and trees are re-read
	on every call.  Blob contents are inflated once and kept in an LRU,
	so reads at increasing offsets don't re-inflate from the start, and
	copying bytes out doesn't hold `mu`.
*/
type Controller struct {
	// user's address retained for messages (minus leading/trailing whitespace)
	addr     string
	mu       sync.Mutex
	store    storage.Storer
	repo     *srcd_git.Repository
	contents *cache.ObjectLRU
}

/*
	Open a repository on the local filesystem.

	May return errors of category:

	  - `tagfs.ErrUsage` -- for unusable addresses
	  - `tagfs.ErrRepositoryUnavailable` -- if there's no repository there
*/
func Open(addr string) (_ *Controller, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	pth, err := SanitizePath(addr)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(pth)
	if err != nil {
		return nil, ErrorDetailed(tagfs.ErrRepositoryUnavailable, "repository does not exist", map[string]string{
			"cause":      err.Error(),
			"repository": pth,
		})
	}
	var bfs billy.Filesystem
	if fi.IsDir() {
		bfs = srcd_osfs.New(pth)
	} else {
		bfs, err = archive.Open(pth)
		if err != nil {
			return nil, err
		}
	}
	return NewController(bfs, pth)
}

/*
	Open a repository laid out on a billy filesystem.
	If the filesystem holds a working tree, its `.git` dir is used.
*/
func NewController(bfs billy.Filesystem, addr string) (_ *Controller, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	if fi, err := bfs.Stat(dotGit); err == nil && fi.IsDir() {
		bfs, err = bfs.Chroot(dotGit)
		if err != nil {
			return nil, Errorf(tagfs.ErrRepositoryUnavailable, "cannot enter %s: %s", dotGit, err)
		}
	}
	return FromStorer(filesystem.NewStorage(bfs, cache.NewObjectLRUDefault()), addr)
}

/*
	Wrap an existing go-git storer.  The storer must already contain a
	repository (i.e. have a HEAD).
*/
func FromStorer(store storage.Storer, addr string) (_ *Controller, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))

	repo, err := srcd_git.Open(store, nil)
	if err == srcd_git.ErrRepositoryNotExists {
		return nil, Errorf(tagfs.ErrRepositoryUnavailable, "no git repository at %q", addr)
	} else if err != nil {
		return nil, Errorf(tagfs.ErrRepositoryUnavailable, "unable to open repository %q: %s", addr, err)
	}
	return &Controller{
		addr:     strings.TrimSpace(addr),
		store:    store,
		repo:     repo,
		contents: cache.NewObjectLRU(DefaultContentCacheSize),
	}, nil
}

/*
	Bound the memory kept for inflated blob contents.
	Blobs larger than the bound are streamed on every read instead.
*/
func (c *Controller) SetContentCacheSize(size cache.FileSize) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contents.Clear()
	c.contents.MaxSize = size
}

// The address this controller was opened from.
func (c *Controller) Addr() string {
	return c.addr
}

func (c *Controller) Tags() (_ []string, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tags()
}

func (c *Controller) tags() ([]string, error) {
	iter, err := c.repo.Tags()
	if err != nil {
		return nil, Errorf(tagfs.ErrUpstream, "failed to list tags: %s", err)
	}
	defer iter.Close()
	var result []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		result = append(result, strings.TrimPrefix(ref.Name().String(), tagsPrefix))
		return nil
	})
	if err != nil {
		return nil, Errorf(tagfs.ErrUpstream, "failed to list tags: %s", err)
	}
	return result, nil
}

/*
	Resolve a tag to the root tree of its commit.

	Annotated tags must target a commit.  A lightweight tag is accepted
	when the ref itself points at a commit.  Names are matched exactly
	first, then case-insensitively under the host's filename rules, so a
	tag which resolves for metadata also resolves for enumeration.
*/
func (c *Controller) TagRoot(tag string) (_ tagfs.Object, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))
	c.mu.Lock()
	defer c.mu.Unlock()

	ref, err := c.findTag(tag)
	if err != nil {
		return tagfs.Object{}, err
	}
	commitHash := ref.Hash()
	tagObj, err := c.repo.TagObject(ref.Hash())
	switch err {
	case nil:
		if tagObj.TargetType != plumbing.CommitObject {
			return tagfs.Object{}, Errorf(tagfs.ErrNotFound, "tag %q targets a %s, not a commit", tag, tagObj.TargetType)
		}
		commitHash = tagObj.Target
	case plumbing.ErrObjectNotFound:
		// Lightweight tag; the ref should point straight at the commit.
	default:
		return tagfs.Object{}, Errorf(tagfs.ErrUpstream, "failed to read tag %q: %s", tag, err)
	}
	commit, err := c.repo.CommitObject(commitHash)
	if err == plumbing.ErrObjectNotFound {
		return tagfs.Object{}, Errorf(tagfs.ErrNotFound, "tag %q does not name a commit", tag)
	} else if err != nil {
		return tagfs.Object{}, Errorf(tagfs.ErrUpstream, "failed to get commit for tag %q: %s", tag, err)
	}
	return tagfs.Object{Kind: tagfs.ObjectKind_Tree, Hash: commit.TreeHash.String()}, nil
}

func (c *Controller) findTag(tag string) (*plumbing.Reference, error) {
	if tag == "" {
		return nil, Errorf(tagfs.ErrNotFound, "empty tag name")
	}
	ref, err := c.repo.Reference(plumbing.ReferenceName(tagsPrefix+tag), false)
	switch err {
	case nil:
		return ref, nil
	case plumbing.ErrReferenceNotFound:
		// fall through to the folded search.
	default:
		return nil, Errorf(tagfs.ErrUpstream, "failed to read tag %q: %s", tag, err)
	}
	tags, err := c.tags()
	if err != nil {
		return nil, err
	}
	for _, name := range tags {
		if names.Equal(name, tag) {
			return c.repo.Reference(plumbing.ReferenceName(tagsPrefix+name), false)
		}
	}
	return nil, Errorf(tagfs.ErrNotFound, "no tag %q", tag)
}

/*
	Look up a '/'-separated path beneath a tree.
	An empty path yields the tree itself.
*/
func (c *Controller) Lookup(tree tagfs.Object, pth string) (_ tagfs.Object, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.getTree(tree)
	if err != nil {
		return tagfs.Object{}, err
	}
	if pth == "" {
		return tree, nil
	}
	entry, err := t.FindEntry(pth)
	switch err {
	case nil:
	case object.ErrEntryNotFound, object.ErrDirectoryNotFound, plumbing.ErrObjectNotFound:
		return tagfs.Object{}, Errorf(tagfs.ErrNotFound, "no entry %q in tree %s", pth, tree.Hash)
	default:
		return tagfs.Object{}, Errorf(tagfs.ErrUpstream, "failed walking tree %s to %q: %s", tree.Hash, pth, err)
	}
	return c.objectFor(entry)
}

/*
	The direct children of a tree.  Entries whose objects are missing from
	the store are skipped.
*/
func (c *Controller) Children(tree tagfs.Object) (_ []tagfs.Child, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.getTree(tree)
	if err != nil {
		return nil, err
	}
	result := make([]tagfs.Child, 0, len(t.Entries))
	for i := range t.Entries {
		obj, err := c.objectFor(&t.Entries[i])
		switch Category(err) {
		case nil:
			result = append(result, tagfs.Child{Name: t.Entries[i].Name, Object: obj})
		case tagfs.ErrNotFound:
			continue
		default:
			return nil, err
		}
	}
	return result, nil
}

/*
	Copy blob bytes starting at `offset` into `dst`, stopping at the end of
	the blob.  Returns the count copied; an offset at or past the end
	copies nothing.
*/
func (c *Controller) ReadBlob(blob tagfs.Object, dst []byte, offset int64) (_ int, err error) {
	defer RequireErrorHasCategory(&err, tagfs.ErrorCategory(""))
	if offset < 0 {
		return 0, Errorf(tagfs.ErrUsage, "negative offset")
	}
	hash, err := StringToHash(blob.Hash)
	if err != nil {
		return 0, err
	}
	content, ok := c.cachedContent(hash)
	if !ok {
		var n int
		content, n, err = c.fetchContent(hash, dst, offset)
		if content == nil {
			return n, err
		}
	}
	if offset >= content.Size() {
		return 0, nil
	}
	if remaining := content.Size() - offset; int64(len(dst)) > remaining {
		dst = dst[:remaining]
	}
	return content.readAt(dst, offset), nil
}

/*
	Load a blob's content under `mu`.

	Blobs too large for the content cache are never held whole: the range
	is streamed straight into `dst` instead, and the content returned is
	nil alongside the count streamed.
*/
func (c *Controller) fetchContent(hash plumbing.Hash, dst []byte, offset int64) (*blobContent, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := object.GetBlob(c.store, hash)
	if err == plumbing.ErrObjectNotFound {
		return nil, 0, Errorf(tagfs.ErrNotFound, "blob %s not found", hash)
	} else if err != nil {
		return nil, 0, Errorf(tagfs.ErrUpstream, "failed to get blob %s: %s", hash, err)
	}
	if cache.FileSize(b.Size) <= c.contents.MaxSize {
		content, err := c.loadContent(hash, b)
		return content, 0, err
	}
	n, err := streamRange(b, dst, offset)
	return nil, n, err
}

// Blobs are zlib streams (possibly deltified); there's no seeking, only skipping.
func streamRange(b *object.Blob, dst []byte, offset int64) (int, error) {
	if offset >= b.Size || len(dst) == 0 {
		return 0, nil
	}
	if remaining := b.Size - offset; int64(len(dst)) > remaining {
		dst = dst[:remaining]
	}
	reader, err := b.Reader()
	if err != nil {
		return 0, Errorf(tagfs.ErrUpstream, "failed to open blob %s: %s", b.Hash, err)
	}
	defer reader.Close()
	if _, err := io.CopyN(ioutil.Discard, reader, offset); err != nil {
		return 0, Errorf(tagfs.ErrUpstream, "corrupt blob %s: %s", b.Hash, err)
	}
	n, err := io.ReadFull(reader, dst)
	if err != nil {
		return n, Errorf(tagfs.ErrUpstream, "corrupt blob %s: %s", b.Hash, err)
	}
	return n, nil
}

func (c *Controller) getTree(tree tagfs.Object) (*object.Tree, error) {
	if tree.Kind != tagfs.ObjectKind_Tree {
		return nil, Errorf(tagfs.ErrNotFound, "object %s is a %s, not a tree", tree.Hash, tree.Kind)
	}
	hash, err := StringToHash(tree.Hash)
	if err != nil {
		return nil, err
	}
	t, err := object.GetTree(c.store, hash)
	if err == plumbing.ErrObjectNotFound {
		return nil, Errorf(tagfs.ErrNotFound, "tree %s not found", tree.Hash)
	} else if err != nil {
		return nil, Errorf(tagfs.ErrUpstream, "failed to get tree %s: %s", tree.Hash, err)
	}
	return t, nil
}

// Blob sizes require loading the object; gitlinks have no object here at all.
func (c *Controller) objectFor(entry *object.TreeEntry) (tagfs.Object, error) {
	switch entry.Mode {
	case filemode.Dir:
		return tagfs.Object{Kind: tagfs.ObjectKind_Tree, Hash: entry.Hash.String()}, nil
	case filemode.Regular, filemode.Executable, filemode.Symlink, filemode.Deprecated:
		b, err := object.GetBlob(c.store, entry.Hash)
		if err == plumbing.ErrObjectNotFound {
			return tagfs.Object{}, Errorf(tagfs.ErrNotFound, "blob %s for %q not found", entry.Hash, entry.Name)
		} else if err != nil {
			return tagfs.Object{}, Errorf(tagfs.ErrUpstream, "failed to get blob %s for %q: %s", entry.Hash, entry.Name, err)
		}
		return tagfs.Object{Kind: tagfs.ObjectKind_Blob, Hash: entry.Hash.String(), Size: b.Size}, nil
	default:
		return tagfs.Object{Kind: tagfs.ObjectKind_Other, Hash: entry.Hash.String()}, nil
	}
}

/*
	Normalize a user-given repository address to an absolute path.
	A `file://` prefix is accepted and stripped.
*/
func SanitizePath(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if HasFoldedPrefix(addr, "file://") {
		addr = addr[7:]
	}
	if addr == "" {
		return "", Errorf(tagfs.ErrUsage, "empty repository path")
	}
	if strings.Contains(addr, "://") {
		return "", Errorf(tagfs.ErrUsage, "only local repositories are supported (got %q)", addr)
	}
	pth, err := filepath.Abs(addr)
	if err != nil {
		return "", Errorf(tagfs.ErrUsage, "failed handling local path: %s", err)
	}
	return pth, nil
}

/*
	Combination of strings.EqualFold and strings.HasPrefix
*/
func HasFoldedPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

/*
	Transform an object handle's hash to a git hash.
	Performs some basic checks on inputs.
*/
func StringToHash(hash string) (plumbing.Hash, error) {
	if err := mustBeFullHash(hash); err != nil {
		return plumbing.Hash{}, err
	}
	return plumbing.NewHash(hash), nil
}

/*
	A git hash must be exactly 40 hex characters
*/
func mustBeFullHash(hash string) error {
	if len(hash) != 40 {
		return Errorf(tagfs.ErrUsage, "git object hashes are 40 characters")
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return Errorf(tagfs.ErrUsage, "git object hashes are hex strings")
	}
	return nil
}
