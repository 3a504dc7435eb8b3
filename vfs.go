package nfsd3

import "context"

// FileType enumerates the NFS3 object types (ftype3, RFC 1813 §2.5).
type FileType uint32

const (
	FileTypeRegular FileType = 1
	FileTypeDir     FileType = 2
	FileTypeBlock   FileType = 3
	FileTypeChar    FileType = 4
	FileTypeSymlink FileType = 5
	FileTypeSocket  FileType = 6
	FileTypeFIFO    FileType = 7
)

// Attrs is fattr3 (§3): the per-object metadata the NFS handler
// round-trips on every call.
type Attrs struct {
	Type      FileType
	Mode      uint32 // low 12 bits meaningful
	Nlink     uint32
	Uid       uint32
	Gid       uint32
	Size      uint64
	Used      uint64
	RdevMajor uint32
	RdevMinor uint32
	Fsid      uint64
	FileId    FileId
	Atime     Timespec
	Mtime     Timespec
	Ctime     Timespec
}

// Timespec is an NFS3 time value: seconds and nanoseconds since the
// Unix epoch, UTC.
type Timespec struct {
	Seconds  uint32
	Nseconds uint32
}

// SetAttrField is the per-field instruction carried by sattr3: either
// leave the field alone, or set it to an explicit/implicit value.
type SetAttrField int

const (
	DontChange SetAttrField = iota
	SetToValue
	SetToServerTime // time fields only
	SetToClientTime // time fields only
)

// SetAttrs is sattr3 (§3): the mutation guard passed to SETATTR and
// CREATE/MKDIR/SYMLINK/MKNOD.
type SetAttrs struct {
	Mode       SetAttrField
	ModeValue  uint32
	Uid        SetAttrField
	UidValue   uint32
	Gid        SetAttrField
	GidValue   uint32
	Size       SetAttrField
	SizeValue  uint64
	Atime      SetAttrField
	AtimeValue Timespec
	Mtime      SetAttrField
	MtimeValue Timespec
}

// CreateMode selects CREATE's overwrite semantics (RFC 1813 §3.3.8).
type CreateMode int

const (
	CreateUnchecked CreateMode = iota
	CreateGuarded
	CreateExclusive
)

// CreateHow bundles a CreateMode with its mode-specific payload:
// Attrs for UNCHECKED/GUARDED, an opaque 8-byte verifier for
// EXCLUSIVE.
type CreateHow struct {
	Mode     CreateMode
	Attrs    SetAttrs
	Verifier [8]byte
}

// StableFlag is WRITE's requested durability (§4.6 WRITE).
type StableFlag uint32

const (
	Unstable StableFlag = 0
	DataSync StableFlag = 1
	FileSync StableFlag = 2
)

// DirEntry is one page element from ReadDir: the child's FileId, its
// name, and the cookie a subsequent ReadDir call can resume from.
type DirEntry struct {
	Id     FileId
	Name   string
	Cookie uint64
}

// FSInfo reports the per-filesystem limits FSINFO/PATHCONF advertise
// (§4.6 FSINFO/PATHCONF).
type FSInfo struct {
	MaxFileSize    uint64
	MaxRead        uint32
	MaxWrite       uint32
	MaxName        uint32
	LinkMax        uint32
	CaseSensitive  bool
	NoTrunc        bool
	ChownRestricted bool
}

// FSStat reports the per-filesystem usage FSSTAT advertises.
type FSStat struct {
	TotalBytes uint64
	FreeBytes  uint64
	AvailBytes uint64
	TotalFiles uint64
	FreeFiles  uint64
	AvailFiles uint64
}

// Export names one mountable root: a path clients pass to MNT, and
// the FileId of the object it resolves to (§3 Export, §4.5).
type Export struct {
	Path   string
	RootId FileId
}

// FileSystem is the VFS capability the NFS handler calls into (§4.8).
// Every method is cancellable via ctx and may suspend; concurrent
// calls from multiple connections must be safe (§5 shared state).
// Implementations return one of the NFS3ERR_* codes via Err (or a
// *StatusError) on failure; mapVFSError maps *InvalidFileHandleError
// to NFS3ERR_STALE, *NotSupportedError to NFS3ERR_NOTSUPP, and falls
// back to NFS3ERR_IO for any other error type. Read-only filesystems
// return NFS3ERR_ROFS
// from every mutating method.
type FileSystem interface {
	// Exports lists the mountable roots in a fixed, startup-defined
	// order.
	Exports() []Export

	GetAttr(ctx context.Context, id FileId) (Attrs, error)
	SetAttr(ctx context.Context, id FileId, guardCtime *Timespec, attrs SetAttrs) (Attrs, error)

	Lookup(ctx context.Context, dir FileId, name string) (FileId, Attrs, error)

	Read(ctx context.Context, id FileId, offset uint64, count uint32) (data []byte, eof bool, err error)
	Write(ctx context.Context, id FileId, offset uint64, data []byte, stable StableFlag) (written uint32, committed StableFlag, err error)

	Create(ctx context.Context, dir FileId, name string, how CreateHow) (FileId, Attrs, error)
	Mkdir(ctx context.Context, dir FileId, name string, attrs SetAttrs) (FileId, Attrs, error)
	Symlink(ctx context.Context, dir FileId, name, target string, attrs SetAttrs) (FileId, Attrs, error)
	Mknod(ctx context.Context, dir FileId, name string, ftype FileType, major, minor uint32, attrs SetAttrs) (FileId, Attrs, error)

	Remove(ctx context.Context, dir FileId, name string) error
	Rmdir(ctx context.Context, dir FileId, name string) error
	Rename(ctx context.Context, fromDir FileId, fromName string, toDir FileId, toName string) error
	Link(ctx context.Context, id FileId, dir FileId, name string) error

	Readlink(ctx context.Context, id FileId) (string, error)

	// ReadDir returns up to maxEntries directory entries starting
	// after startCookie (0 means "start of directory"), the eof flag,
	// and a cookieverf that changes whenever a mutation invalidates
	// outstanding cookies (§3 Directory cookie, §4.6 READDIR[PLUS]).
	ReadDir(ctx context.Context, dir FileId, startCookie uint64, maxEntries int) (entries []DirEntry, eof bool, cookieverf [8]byte, err error)

	FSInfo(ctx context.Context, id FileId) (FSInfo, error)
	FSStat(ctx context.Context, id FileId) (FSStat, error)

	Access(ctx context.Context, id FileId, requested uint32) (allowed uint32, err error)
}
