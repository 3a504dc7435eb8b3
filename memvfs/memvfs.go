// Package memvfs is a demonstration FileSystem capability
// (github.com/nfsvfs/nfsd3's VFS interface) backed by an in-memory
// absfs tree (github.com/absfs/memfs). It exists to give the server a
// runnable, in-process backend for local testing and the
// cmd/demoserver example; production deployments are expected to
// supply their own FileSystem atop a real store.
package memvfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"

	"github.com/nfsvfs/nfsd3"
)

// rootID is the fixed FileId of the exported tree's root directory.
const rootID nfsd3.FileId = 1

// Options configures a FS. The zero value is a usable, empty
// filesystem.
type Options struct{}

// FS adapts an in-memory absfs.FileSystem to nfsd3.FileSystem, tracking
// a bidirectional FileId<->path table since absfs addresses objects by
// path while NFS addresses them by a stable, opaque id.
type FS struct {
	fs absfs.FileSystem

	mu      sync.RWMutex
	idPath  map[nfsd3.FileId]string
	pathID  map[string]nfsd3.FileId
	alloc   *idAllocator
	dirVerf map[string][8]byte
	verfCtr uint64
}

// New returns an empty in-memory filesystem ready to be exported.
func New(opts Options) (*FS, error) {
	backing, err := memfs.NewFS()
	if err != nil {
		return nil, err
	}
	f := &FS{
		fs:      backing,
		idPath:  map[nfsd3.FileId]string{rootID: "/"},
		pathID:  map[string]nfsd3.FileId{"/": rootID},
		alloc:   newIDAllocator(uint64(rootID) + 1),
		dirVerf: make(map[string][8]byte),
	}
	return f, nil
}

// RootID returns the FileId of "/", for use with Server.AddExport.
func (f *FS) RootID() nfsd3.FileId { return rootID }

// Exports reports the single root export this demo filesystem offers.
func (f *FS) Exports() []nfsd3.Export {
	return []nfsd3.Export{{Path: "/", RootId: rootID}}
}

func (f *FS) pathOf(id nfsd3.FileId) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.idPath[id]
	return p, ok
}

// idFor returns the FileId for p, allocating one if this is the first
// time p has been observed (e.g. freshly listed by ReadDir).
func (f *FS) idFor(p string) nfsd3.FileId {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.pathID[p]; ok {
		return id
	}
	id := nfsd3.FileId(f.alloc.allocate())
	f.pathID[p] = id
	f.idPath[id] = p
	return id
}

func (f *FS) forget(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.pathID[p]; ok {
		delete(f.pathID, p)
		delete(f.idPath, id)
		f.alloc.release(uint64(id))
	}
}

func (f *FS) rename(oldPath, newPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.pathID[oldPath]; ok {
		delete(f.pathID, oldPath)
		f.pathID[newPath] = id
		f.idPath[id] = newPath
	}
}

// bumpVerf invalidates outstanding READDIR cookies for dir by
// advancing its cookieverf (§3 Directory cookie: "any mutation within
// the directory invalidates its cookieverf").
func (f *FS) bumpVerf(dirPath string) [8]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verfCtr++
	var v [8]byte
	for i := 0; i < 8; i++ {
		v[i] = byte(f.verfCtr >> (8 * i))
	}
	f.dirVerf[dirPath] = v
	return v
}

// verfOf returns dirPath's current cookieverf, minting one on first
// observation so every directory's cookieverf is non-zero from its
// very first listing onward (§4.6 READDIR/READDIRPLUS: a zero verf
// would be indistinguishable from "no verifier presented yet" and
// could never be rejected by the BAD_COOKIE check).
func (f *FS) verfOf(dirPath string) [8]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.dirVerf[dirPath]; ok {
		return v
	}
	f.verfCtr++
	var v [8]byte
	for i := 0; i < 8; i++ {
		v[i] = byte(f.verfCtr >> (8 * i))
	}
	f.dirVerf[dirPath] = v
	return v
}

func toFileType(mode os.FileMode) nfsd3.FileType {
	switch {
	case mode&os.ModeSymlink != 0:
		return nfsd3.FileTypeSymlink
	case mode.IsDir():
		return nfsd3.FileTypeDir
	case mode&os.ModeNamedPipe != 0:
		return nfsd3.FileTypeFIFO
	case mode&os.ModeSocket != 0:
		return nfsd3.FileTypeSocket
	case mode&os.ModeDevice != 0:
		if mode&os.ModeCharDevice != 0 {
			return nfsd3.FileTypeChar
		}
		return nfsd3.FileTypeBlock
	default:
		return nfsd3.FileTypeRegular
	}
}

func toTimespec(t time.Time) nfsd3.Timespec {
	return nfsd3.Timespec{Seconds: uint32(t.Unix()), Nseconds: uint32(t.Nanosecond())}
}

func toAttrs(id nfsd3.FileId, info os.FileInfo) nfsd3.Attrs {
	nlink := uint32(1)
	if info.IsDir() {
		nlink = 2
	}
	ts := toTimespec(info.ModTime())
	return nfsd3.Attrs{
		Type:   toFileType(info.Mode()),
		Mode:   uint32(info.Mode().Perm()),
		Nlink:  nlink,
		Uid:    0,
		Gid:    0,
		Size:   uint64(info.Size()),
		Used:   uint64(info.Size()),
		Fsid:   1,
		FileId: id,
		Atime:  ts,
		Mtime:  ts,
		Ctime:  ts,
	}
}

func (f *FS) statByID(id nfsd3.FileId) (string, os.FileInfo, error) {
	p, ok := f.pathOf(id)
	if !ok {
		return "", nil, &nfsd3.InvalidFileHandleError{Reason: "unknown file id"}
	}
	info, err := f.fs.Stat(p)
	if err != nil {
		return "", nil, translateErr(err)
	}
	return p, info, nil
}

func (f *FS) GetAttr(ctx context.Context, id nfsd3.FileId) (nfsd3.Attrs, error) {
	_, info, err := f.statByID(id)
	if err != nil {
		return nfsd3.Attrs{}, err
	}
	return toAttrs(id, info), nil
}

func (f *FS) SetAttr(ctx context.Context, id nfsd3.FileId, guardCtime *nfsd3.Timespec, attrs nfsd3.SetAttrs) (nfsd3.Attrs, error) {
	p, info, err := f.statByID(id)
	if err != nil {
		return nfsd3.Attrs{}, err
	}
	if guardCtime != nil {
		current := toTimespec(info.ModTime())
		if current != *guardCtime {
			return nfsd3.Attrs{}, nfsd3.Err(nfsd3.NFS3ERR_NOT_SYNC, "ctime guard mismatch")
		}
	}

	if attrs.Mode == nfsd3.SetToValue {
		if err := f.fs.Chmod(p, os.FileMode(attrs.ModeValue&0o7777)); err != nil {
			return nfsd3.Attrs{}, translateErr(err)
		}
	}
	if attrs.Uid == nfsd3.SetToValue || attrs.Gid == nfsd3.SetToValue {
		if err := f.fs.Chown(p, int(attrs.UidValue), int(attrs.GidValue)); err != nil {
			return nfsd3.Attrs{}, translateErr(err)
		}
	}
	if attrs.Size == nfsd3.SetToValue {
		if info.IsDir() || info.Mode()&os.ModeSymlink != 0 {
			return nfsd3.Attrs{}, nfsd3.Err(nfsd3.NFS3ERR_INVAL, "cannot set size of a directory or symlink")
		}
		file, err := f.fs.OpenFile(p, os.O_WRONLY, 0)
		if err != nil {
			return nfsd3.Attrs{}, translateErr(err)
		}
		terr := file.Truncate(int64(attrs.SizeValue))
		file.Close()
		if terr != nil {
			return nfsd3.Attrs{}, translateErr(terr)
		}
	}
	if attrs.Mtime == nfsd3.SetToClientTime || attrs.Mtime == nfsd3.SetToServerTime {
		mtime := time.Now()
		if attrs.Mtime == nfsd3.SetToClientTime {
			mtime = time.Unix(int64(attrs.MtimeValue.Seconds), int64(attrs.MtimeValue.Nseconds))
		}
		atime := mtime
		if attrs.Atime == nfsd3.SetToClientTime {
			atime = time.Unix(int64(attrs.AtimeValue.Seconds), int64(attrs.AtimeValue.Nseconds))
		}
		if err := f.fs.Chtimes(p, atime, mtime); err != nil {
			return nfsd3.Attrs{}, translateErr(err)
		}
	}

	newInfo, err := f.fs.Stat(p)
	if err != nil {
		return nfsd3.Attrs{}, translateErr(err)
	}
	return toAttrs(id, newInfo), nil
}

func (f *FS) Lookup(ctx context.Context, dir nfsd3.FileId, name string) (nfsd3.FileId, nfsd3.Attrs, error) {
	dirPath, _, err := f.statByID(dir)
	if err != nil {
		return 0, nfsd3.Attrs{}, err
	}
	childPath := joinPath(dirPath, name)
	info, err := f.fs.Stat(childPath)
	if err != nil {
		return 0, nfsd3.Attrs{}, translateErr(err)
	}
	id := f.idFor(childPath)
	return id, toAttrs(id, info), nil
}

func (f *FS) Read(ctx context.Context, id nfsd3.FileId, offset uint64, count uint32) ([]byte, bool, error) {
	p, info, err := f.statByID(id)
	if err != nil {
		return nil, false, err
	}
	if info.IsDir() {
		return nil, false, nfsd3.Err(nfsd3.NFS3ERR_ISDIR, "cannot read a directory")
	}
	file, err := f.fs.OpenFile(p, os.O_RDONLY, 0)
	if err != nil {
		return nil, false, translateErr(err)
	}
	defer file.Close()

	buf := make([]byte, count)
	n, err := file.ReadAt(buf, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, translateErr(err)
	}
	eof := uint64(n)+offset >= uint64(info.Size())
	return buf[:n], eof, nil
}

func (f *FS) Write(ctx context.Context, id nfsd3.FileId, offset uint64, data []byte, stable nfsd3.StableFlag) (uint32, nfsd3.StableFlag, error) {
	p, info, err := f.statByID(id)
	if err != nil {
		return 0, 0, err
	}
	if info.IsDir() {
		return 0, 0, nfsd3.Err(nfsd3.NFS3ERR_ISDIR, "cannot write a directory")
	}
	file, err := f.fs.OpenFile(p, os.O_WRONLY, 0)
	if err != nil {
		return 0, 0, translateErr(err)
	}
	defer file.Close()

	n, err := file.WriteAt(data, int64(offset))
	if err != nil {
		return 0, 0, translateErr(err)
	}
	// This backend always commits synchronously, so every write is
	// reported as FileSync regardless of what the client requested.
	return uint32(n), nfsd3.FileSync, nil
}

func (f *FS) Create(ctx context.Context, dir nfsd3.FileId, name string, how nfsd3.CreateHow) (nfsd3.FileId, nfsd3.Attrs, error) {
	dirPath, _, err := f.statByID(dir)
	if err != nil {
		return 0, nfsd3.Attrs{}, err
	}
	childPath := joinPath(dirPath, name)

	_, statErr := f.fs.Stat(childPath)
	exists := statErr == nil
	if exists && how.Mode == nfsd3.CreateGuarded {
		return 0, nfsd3.Attrs{}, nfsd3.Err(nfsd3.NFS3ERR_EXIST, "file exists")
	}

	file, err := f.fs.Create(childPath)
	if err != nil {
		return 0, nfsd3.Attrs{}, translateErr(err)
	}
	file.Close()
	f.bumpVerf(dirPath)

	if how.Mode != nfsd3.CreateExclusive && how.Attrs.Mode == nfsd3.SetToValue {
		f.fs.Chmod(childPath, os.FileMode(how.Attrs.ModeValue&0o7777))
	}

	info, err := f.fs.Stat(childPath)
	if err != nil {
		return 0, nfsd3.Attrs{}, translateErr(err)
	}
	id := f.idFor(childPath)
	return id, toAttrs(id, info), nil
}

func (f *FS) Mkdir(ctx context.Context, dir nfsd3.FileId, name string, attrs nfsd3.SetAttrs) (nfsd3.FileId, nfsd3.Attrs, error) {
	dirPath, _, err := f.statByID(dir)
	if err != nil {
		return 0, nfsd3.Attrs{}, err
	}
	childPath := joinPath(dirPath, name)
	mode := os.FileMode(0o755)
	if attrs.Mode == nfsd3.SetToValue {
		mode = os.FileMode(attrs.ModeValue & 0o7777)
	}
	if err := f.fs.Mkdir(childPath, mode); err != nil {
		return 0, nfsd3.Attrs{}, translateErr(err)
	}
	f.bumpVerf(dirPath)

	info, err := f.fs.Stat(childPath)
	if err != nil {
		return 0, nfsd3.Attrs{}, translateErr(err)
	}
	id := f.idFor(childPath)
	return id, toAttrs(id, info), nil
}

func (f *FS) Symlink(ctx context.Context, dir nfsd3.FileId, name, target string, attrs nfsd3.SetAttrs) (nfsd3.FileId, nfsd3.Attrs, error) {
	dirPath, _, err := f.statByID(dir)
	if err != nil {
		return 0, nfsd3.Attrs{}, err
	}
	childPath := joinPath(dirPath, name)
	if err := f.fs.Symlink(target, childPath); err != nil {
		return 0, nfsd3.Attrs{}, translateErr(err)
	}
	f.bumpVerf(dirPath)

	info, err := f.fs.Stat(childPath)
	if err != nil {
		return 0, nfsd3.Attrs{}, translateErr(err)
	}
	id := f.idFor(childPath)
	return id, toAttrs(id, info), nil
}

// Mknod is not supported: an in-memory path tree has no notion of a
// block/char device, FIFO, or socket inode distinct from a regular
// file (§4.8 FileSystem: mutating methods a backend cannot honor
// return NFS3ERR_NOTSUPP).
func (f *FS) Mknod(ctx context.Context, dir nfsd3.FileId, name string, ftype nfsd3.FileType, major, minor uint32, attrs nfsd3.SetAttrs) (nfsd3.FileId, nfsd3.Attrs, error) {
	return 0, nfsd3.Attrs{}, &nfsd3.NotSupportedError{Operation: "MKNOD"}
}

func (f *FS) Remove(ctx context.Context, dir nfsd3.FileId, name string) error {
	dirPath, _, err := f.statByID(dir)
	if err != nil {
		return err
	}
	childPath := joinPath(dirPath, name)
	info, err := f.fs.Stat(childPath)
	if err != nil {
		return translateErr(err)
	}
	if info.IsDir() {
		return nfsd3.Err(nfsd3.NFS3ERR_ISDIR, "use RMDIR for directories")
	}
	if err := f.fs.Remove(childPath); err != nil {
		return translateErr(err)
	}
	f.forget(childPath)
	f.bumpVerf(dirPath)
	return nil
}

func (f *FS) Rmdir(ctx context.Context, dir nfsd3.FileId, name string) error {
	dirPath, _, err := f.statByID(dir)
	if err != nil {
		return err
	}
	childPath := joinPath(dirPath, name)
	info, err := f.fs.Stat(childPath)
	if err != nil {
		return translateErr(err)
	}
	if !info.IsDir() {
		return nfsd3.Err(nfsd3.NFS3ERR_NOTDIR, "not a directory")
	}
	if err := f.fs.Remove(childPath); err != nil {
		return translateErr(err)
	}
	f.forget(childPath)
	f.bumpVerf(dirPath)
	return nil
}

func (f *FS) Rename(ctx context.Context, fromDir nfsd3.FileId, fromName string, toDir nfsd3.FileId, toName string) error {
	fromDirPath, _, err := f.statByID(fromDir)
	if err != nil {
		return err
	}
	toDirPath, _, err := f.statByID(toDir)
	if err != nil {
		return err
	}
	oldPath := joinPath(fromDirPath, fromName)
	newPath := joinPath(toDirPath, toName)
	if err := f.fs.Rename(oldPath, newPath); err != nil {
		return translateErr(err)
	}
	f.rename(oldPath, newPath)
	f.bumpVerf(fromDirPath)
	if toDirPath != fromDirPath {
		f.bumpVerf(toDirPath)
	}
	return nil
}

// Link is not supported: the path table maps one FileId to exactly one
// path, so there is no way to alias a second name onto an existing
// id the way a real hard link would.
func (f *FS) Link(ctx context.Context, id nfsd3.FileId, dir nfsd3.FileId, name string) error {
	return &nfsd3.NotSupportedError{Operation: "LINK"}
}

func (f *FS) Readlink(ctx context.Context, id nfsd3.FileId) (string, error) {
	p, info, err := f.statByID(id)
	if err != nil {
		return "", err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return "", nfsd3.Err(nfsd3.NFS3ERR_INVAL, "not a symlink")
	}
	target, err := f.fs.Readlink(p)
	if err != nil {
		return "", translateErr(err)
	}
	return target, nil
}

func (f *FS) ReadDir(ctx context.Context, dir nfsd3.FileId, startCookie uint64, maxEntries int) ([]nfsd3.DirEntry, bool, [8]byte, error) {
	dirPath, info, err := f.statByID(dir)
	if err != nil {
		return nil, false, [8]byte{}, err
	}
	if !info.IsDir() {
		return nil, false, [8]byte{}, nfsd3.Err(nfsd3.NFS3ERR_NOTDIR, "not a directory")
	}

	file, err := f.fs.OpenFile(dirPath, os.O_RDONLY, 0)
	if err != nil {
		return nil, false, [8]byte{}, translateErr(err)
	}
	defer file.Close()
	infos, err := file.Readdir(-1)
	if err != nil {
		return nil, false, [8]byte{}, translateErr(err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	verf := f.verfOf(dirPath)
	entries := make([]nfsd3.DirEntry, 0, len(infos))
	for i, child := range infos {
		cookie := uint64(i + 1)
		if cookie <= startCookie {
			continue
		}
		childPath := joinPath(dirPath, child.Name())
		id := f.idFor(childPath)
		entries = append(entries, nfsd3.DirEntry{Id: id, Name: child.Name(), Cookie: cookie})
		if len(entries) == maxEntries {
			return entries, cookie == uint64(len(infos)), verf, nil
		}
	}
	return entries, true, verf, nil
}

func (f *FS) FSInfo(ctx context.Context, id nfsd3.FileId) (nfsd3.FSInfo, error) {
	return nfsd3.FSInfo{
		MaxFileSize:   1 << 40,
		MaxRead:       1 << 20,
		MaxWrite:      1 << 20,
		MaxName:       255,
		LinkMax:       1,
		CaseSensitive: true,
		NoTrunc:       true,
	}, nil
}

func (f *FS) FSStat(ctx context.Context, id nfsd3.FileId) (nfsd3.FSStat, error) {
	// An in-memory tree has no fixed capacity; report a large constant
	// budget rather than walking the whole tree to sum sizes.
	const capacity = 1 << 34
	return nfsd3.FSStat{
		TotalBytes: capacity,
		FreeBytes:  capacity,
		AvailBytes: capacity,
		TotalFiles: 1 << 20,
		FreeFiles:  1 << 20,
		AvailFiles: 1 << 20,
	}, nil
}

func (f *FS) Access(ctx context.Context, id nfsd3.FileId, requested uint32) (uint32, error) {
	_, info, err := f.statByID(id)
	if err != nil {
		return 0, err
	}
	perm := info.Mode().Perm()
	var allowed uint32
	if info.IsDir() {
		if perm&0o400 != 0 {
			allowed |= nfsd3.Access3Read
		}
		if perm&0o100 != 0 {
			allowed |= nfsd3.Access3Lookup
		}
		if perm&0o200 != 0 {
			allowed |= nfsd3.Access3Modify | nfsd3.Access3Extend | nfsd3.Access3Delete
		}
	} else {
		if perm&0o400 != 0 {
			allowed |= nfsd3.Access3Read
		}
		if perm&0o200 != 0 {
			allowed |= nfsd3.Access3Modify | nfsd3.Access3Extend
		}
		if perm&0o100 != 0 {
			allowed |= nfsd3.Access3Execute
		}
	}
	return allowed & requested, nil
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return path.Join(dir, name)
}

// translateErr maps a backing absfs error to an NFS3 status, falling
// back to NFS3ERR_IO through mapVFSError when the error carries no
// more specific meaning.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return nfsd3.Err(nfsd3.NFS3ERR_NOENT, "%s", err)
	}
	if os.IsExist(err) {
		return nfsd3.Err(nfsd3.NFS3ERR_EXIST, "%s", err)
	}
	if os.IsPermission(err) {
		return nfsd3.Err(nfsd3.NFS3ERR_ACCES, "%s", err)
	}
	msg := err.Error()
	if strings.Contains(msg, "not empty") {
		return nfsd3.Err(nfsd3.NFS3ERR_NOTEMPTY, "%s", err)
	}
	return err
}
