package nfsd3

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultAttrCacheSize bounds the attribute cache every Server builds
// around its FileSystem, generalizing the teacher's own AttrCache
// (attr_cache.go) from a bespoke map+mutex into an LRU with real
// eviction.
const defaultAttrCacheSize = 4096

// cachingFS wraps a FileSystem with an LRU cache of GetAttr results.
// GETATTR and the post-op/wcc attribute fetches every mutating
// handler performs (§7) are by far the hottest VFS call; every method
// that can change an object's attributes invalidates its cache entry
// before delegating; GetAttr and a successful SetAttr (which stores
// the attributes it returns) are the only methods that populate one.
type cachingFS struct {
	FileSystem
	attrs *lru.Cache[FileId, Attrs]
}

func newCachingFS(inner FileSystem, size int) FileSystem {
	if size <= 0 {
		size = defaultAttrCacheSize
	}
	c, err := lru.New[FileId, Attrs](size)
	if err != nil {
		// Only returned for a non-positive size, which is excluded
		// above; kept as a panic rather than a second error return
		// threaded through every New() caller.
		panic(err)
	}
	return &cachingFS{FileSystem: inner, attrs: c}
}

func (c *cachingFS) GetAttr(ctx context.Context, id FileId) (Attrs, error) {
	if a, ok := c.attrs.Get(id); ok {
		return a, nil
	}
	a, err := c.FileSystem.GetAttr(ctx, id)
	if err != nil {
		return Attrs{}, err
	}
	c.attrs.Add(id, a)
	return a, nil
}

func (c *cachingFS) SetAttr(ctx context.Context, id FileId, guardCtime *Timespec, attrs SetAttrs) (Attrs, error) {
	c.attrs.Remove(id)
	a, err := c.FileSystem.SetAttr(ctx, id, guardCtime, attrs)
	if err == nil {
		c.attrs.Add(id, a)
	}
	return a, err
}

func (c *cachingFS) Write(ctx context.Context, id FileId, offset uint64, data []byte, stable StableFlag) (uint32, StableFlag, error) {
	c.attrs.Remove(id)
	return c.FileSystem.Write(ctx, id, offset, data, stable)
}

func (c *cachingFS) Create(ctx context.Context, dir FileId, name string, how CreateHow) (FileId, Attrs, error) {
	c.attrs.Remove(dir)
	return c.FileSystem.Create(ctx, dir, name, how)
}

func (c *cachingFS) Mkdir(ctx context.Context, dir FileId, name string, attrs SetAttrs) (FileId, Attrs, error) {
	c.attrs.Remove(dir)
	return c.FileSystem.Mkdir(ctx, dir, name, attrs)
}

func (c *cachingFS) Symlink(ctx context.Context, dir FileId, name, target string, attrs SetAttrs) (FileId, Attrs, error) {
	c.attrs.Remove(dir)
	return c.FileSystem.Symlink(ctx, dir, name, target, attrs)
}

func (c *cachingFS) Mknod(ctx context.Context, dir FileId, name string, ftype FileType, major, minor uint32, attrs SetAttrs) (FileId, Attrs, error) {
	c.attrs.Remove(dir)
	return c.FileSystem.Mknod(ctx, dir, name, ftype, major, minor, attrs)
}

func (c *cachingFS) Remove(ctx context.Context, dir FileId, name string) error {
	c.attrs.Remove(dir)
	return c.FileSystem.Remove(ctx, dir, name)
}

func (c *cachingFS) Rmdir(ctx context.Context, dir FileId, name string) error {
	c.attrs.Remove(dir)
	return c.FileSystem.Rmdir(ctx, dir, name)
}

func (c *cachingFS) Rename(ctx context.Context, fromDir FileId, fromName string, toDir FileId, toName string) error {
	c.attrs.Remove(fromDir)
	c.attrs.Remove(toDir)
	return c.FileSystem.Rename(ctx, fromDir, fromName, toDir, toName)
}

func (c *cachingFS) Link(ctx context.Context, id FileId, dir FileId, name string) error {
	c.attrs.Remove(id)
	c.attrs.Remove(dir)
	return c.FileSystem.Link(ctx, id, dir, name)
}
