package testutil

import (
	"fmt"
	"sort"
	"time"

	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/filemode"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/storage"
	"gopkg.in/src-d/go-git.v4/storage/memory"
)

/*
	Describes a directory tree to write into a git store.

	Values may be a `string` (a regular file with that content),
	a nested `Dir`, a `Symlink`, or a `Gitlink`.
*/
type Dir map[string]interface{}

// A symlink entry; the value is the link target.
type Symlink string

// A submodule entry; the value is the (absent) commit hash it points at.
type Gitlink string

/*
	One tag to create in a fixture repo.

	By default tags are annotated and point at a commit of `Files`.
*/
type Tag struct {
	Name        string
	Files       Dir
	Lightweight bool // write only the ref, pointing straight at the commit.
	TargetTree  bool // annotated, but pointing at the tree instead of a commit.
}

type Fixture []Tag

/*
	The repository used across most tests: two tags, a README of 12 bytes,
	and a few levels of directory.
*/
var ExampleFixture = Fixture{
	{Name: "v1", Files: Dir{
		"README": "hello world\n",
		"src": Dir{
			"main.go":  "package main\n\nfunc main() {}\n",
			"Zeta.txt": "zzz",
			"alpha.md": "# alpha\n",
			"lib": Dir{
				"util.go": "package lib\n",
			},
		},
	}},
	{Name: "v2", Lightweight: true, Files: Dir{
		"README": "hello world, again\n",
		"empty":  "",
		"link":   Symlink("README"),
		"vendor": Gitlink("0123456789abcdef0123456789abcdef01234567"),
	}},
}

var fixtureTime = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

var fixtureSignature = object.Signature{
	Name:  "tagfs tests",
	Email: "tests@tagfs.invalid",
	When:  fixtureTime,
}

/*
	Build the fixture into a fresh in-memory store; panics on failure.
*/
func MemoryRepo(f Fixture) *memory.Storage {
	s := memory.NewStorage()
	if err := f.Build(s); err != nil {
		panic(err)
	}
	return s
}

/*
	Write objects and refs for every tag in the fixture into the storer.
	HEAD is left pointing at `master`, which points at the last commit made.
*/
func (f Fixture) Build(s storage.Storer) error {
	master, err := writeCommit(s, Dir{}, "initial")
	if err != nil {
		return err
	}
	for _, tag := range f {
		var target plumbing.Hash
		targetType := plumbing.CommitObject
		if tag.TargetTree {
			target, err = writeTree(s, tag.Files)
			targetType = plumbing.TreeObject
		} else {
			target, err = writeCommit(s, tag.Files, "release "+tag.Name)
			master = target
		}
		if err != nil {
			return err
		}
		if !tag.Lightweight {
			target, err = writeTag(s, tag.Name, target, targetType)
			if err != nil {
				return err
			}
		}
		ref := plumbing.NewHashReference(plumbing.ReferenceName("refs/tags/"+tag.Name), target)
		if err := s.SetReference(ref); err != nil {
			return err
		}
	}
	if err := s.SetReference(plumbing.NewHashReference(plumbing.Master, master)); err != nil {
		return err
	}
	return s.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.Master))
}

func writeBlob(s storage.Storer, content string) (plumbing.Hash, error) {
	obj := s.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write([]byte(content)); err != nil {
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.SetEncodedObject(obj)
}

func writeTree(s storage.Storer, dir Dir) (plumbing.Hash, error) {
	entries := make([]object.TreeEntry, 0, len(dir))
	for name, v := range dir {
		var entry object.TreeEntry
		var err error
		entry.Name = name
		switch v := v.(type) {
		case string:
			entry.Mode = filemode.Regular
			entry.Hash, err = writeBlob(s, v)
		case Symlink:
			entry.Mode = filemode.Symlink
			entry.Hash, err = writeBlob(s, string(v))
		case Gitlink:
			entry.Mode = filemode.Submodule
			entry.Hash = plumbing.NewHash(string(v))
		case Dir:
			entry.Mode = filemode.Dir
			entry.Hash, err = writeTree(s, v)
		default:
			err = fmt.Errorf("fixture entry %q has unusable type %T", name, v)
		}
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, entry)
	}
	// Git orders tree entries bytewise, with dirs compared as if suffixed by '/'.
	sortKey := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(entries, func(i, j int) bool { return sortKey(entries[i]) < sortKey(entries[j]) })
	obj := s.NewEncodedObject()
	if err := (&object.Tree{Entries: entries}).Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.SetEncodedObject(obj)
}

func writeCommit(s storage.Storer, files Dir, msg string) (plumbing.Hash, error) {
	treeHash, err := writeTree(s, files)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	commit := &object.Commit{
		Author:    fixtureSignature,
		Committer: fixtureSignature,
		Message:   msg + "\n",
		TreeHash:  treeHash,
	}
	obj := s.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.SetEncodedObject(obj)
}

func writeTag(s storage.Storer, name string, target plumbing.Hash, targetType plumbing.ObjectType) (plumbing.Hash, error) {
	tag := &object.Tag{
		Name:       name,
		Tagger:     fixtureSignature,
		Message:    "tag " + name + "\n",
		TargetType: targetType,
		Target:     target,
	}
	obj := s.NewEncodedObject()
	if err := tag.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.SetEncodedObject(obj)
}
