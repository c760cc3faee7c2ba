package git

import (
	"bytes"
	"io"
	"io/ioutil"

	. "github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/cache"
	"gopkg.in/src-d/go-git.v4/plumbing/object"

	"github.com/polydawn/tagfs"
)

// Upper bound on decompressed blob bytes a controller keeps in memory.
const DefaultContentCacheSize = cache.DefaultMaxSize

/*
	Decompressed blob bytes, keyed by blob hash.

	Blobs are immutable, so a cached entry is never written after it's
	built; readers copy out of it without holding the controller lock.
	It satisfies `plumbing.EncodedObject` only so go-git's LRU can hold it.
*/
type blobContent struct {
	hash plumbing.Hash
	data []byte
}

func (b *blobContent) Hash() plumbing.Hash             { return b.hash }
func (b *blobContent) Type() plumbing.ObjectType       { return plumbing.BlobObject }
func (b *blobContent) SetType(plumbing.ObjectType)     {}
func (b *blobContent) Size() int64                     { return int64(len(b.data)) }
func (b *blobContent) SetSize(int64)                   {}
func (b *blobContent) Writer() (io.WriteCloser, error) { return nil, plumbing.ErrInvalidType }
func (b *blobContent) Reader() (io.ReadCloser, error) {
	return ioutil.NopCloser(bytes.NewReader(b.data)), nil
}

// Copy the range starting at offset into dst; dst is already clamped.
func (b *blobContent) readAt(dst []byte, offset int64) int {
	return copy(dst, b.data[offset:])
}

func (c *Controller) cachedContent(hash plumbing.Hash) (*blobContent, bool) {
	obj, ok := c.contents.Get(hash)
	if !ok {
		return nil, false
	}
	return obj.(*blobContent), true
}

/*
	Inflate a whole blob and keep it, if it fits in the content cache.
	Must be called with `mu` held.
*/
func (c *Controller) loadContent(hash plumbing.Hash, blob *object.Blob) (*blobContent, error) {
	if cached, ok := c.cachedContent(hash); ok {
		return cached, nil
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, Errorf(tagfs.ErrUpstream, "failed to open blob %s: %s", hash, err)
	}
	defer reader.Close()
	content := &blobContent{hash: hash, data: make([]byte, blob.Size)}
	if _, err := io.ReadFull(reader, content.data); err != nil {
		return nil, Errorf(tagfs.ErrUpstream, "corrupt blob %s: %s", hash, err)
	}
	c.contents.Put(content)
	return content, nil
}
