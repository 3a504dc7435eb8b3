package nfsd3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFS is a minimal, fixed two-object FileSystem (a root directory
// and one file inside it) used to drive the end-to-end scenarios
// directly through the Dispatcher, without a network or a real
// backing store.
type fakeFS struct {
	data []byte
}

const (
	fakeRoot FileId = 1
	fakeFile FileId = 2
)

func (f *fakeFS) Exports() []Export { return []Export{{Path: "/", RootId: fakeRoot}} }

func (f *fakeFS) attrsFor(id FileId) Attrs {
	if id == fakeRoot {
		return Attrs{Type: FileTypeDir, Mode: 0o755, FileId: fakeRoot, Nlink: 2}
	}
	return Attrs{Type: FileTypeRegular, Mode: 0o644, FileId: fakeFile, Size: uint64(len(f.data))}
}

func (f *fakeFS) GetAttr(ctx context.Context, id FileId) (Attrs, error) {
	if id != fakeRoot && id != fakeFile {
		return Attrs{}, Err(NFS3ERR_NOENT, "no such object")
	}
	return f.attrsFor(id), nil
}

func (f *fakeFS) SetAttr(ctx context.Context, id FileId, guard *Timespec, attrs SetAttrs) (Attrs, error) {
	return f.attrsFor(id), nil
}

func (f *fakeFS) Lookup(ctx context.Context, dir FileId, name string) (FileId, Attrs, error) {
	if dir == fakeRoot && name == "foo.txt" {
		return fakeFile, f.attrsFor(fakeFile), nil
	}
	return 0, Attrs{}, Err(NFS3ERR_NOENT, "no such file")
}

func (f *fakeFS) Read(ctx context.Context, id FileId, offset uint64, count uint32) ([]byte, bool, error) {
	if offset >= uint64(len(f.data)) {
		return nil, true, nil
	}
	end := offset + uint64(count)
	if end > uint64(len(f.data)) {
		end = uint64(len(f.data))
	}
	return f.data[offset:end], end == uint64(len(f.data)), nil
}

func (f *fakeFS) Write(ctx context.Context, id FileId, offset uint64, data []byte, stable StableFlag) (uint32, StableFlag, error) {
	end := int(offset) + len(data)
	if end > len(f.data) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[offset:], data)
	return uint32(len(data)), stable, nil
}

func (f *fakeFS) Create(ctx context.Context, dir FileId, name string, how CreateHow) (FileId, Attrs, error) {
	return 0, Attrs{}, &NotSupportedError{Operation: "CREATE"}
}
func (f *fakeFS) Mkdir(ctx context.Context, dir FileId, name string, attrs SetAttrs) (FileId, Attrs, error) {
	return 0, Attrs{}, &NotSupportedError{Operation: "MKDIR"}
}
func (f *fakeFS) Symlink(ctx context.Context, dir FileId, name, target string, attrs SetAttrs) (FileId, Attrs, error) {
	return 0, Attrs{}, &NotSupportedError{Operation: "SYMLINK"}
}
func (f *fakeFS) Mknod(ctx context.Context, dir FileId, name string, ftype FileType, major, minor uint32, attrs SetAttrs) (FileId, Attrs, error) {
	return 0, Attrs{}, &NotSupportedError{Operation: "MKNOD"}
}
func (f *fakeFS) Remove(ctx context.Context, dir FileId, name string) error {
	return &NotSupportedError{Operation: "REMOVE"}
}
func (f *fakeFS) Rmdir(ctx context.Context, dir FileId, name string) error {
	return &NotSupportedError{Operation: "RMDIR"}
}
func (f *fakeFS) Rename(ctx context.Context, fromDir FileId, fromName string, toDir FileId, toName string) error {
	return &NotSupportedError{Operation: "RENAME"}
}
func (f *fakeFS) Link(ctx context.Context, id FileId, dir FileId, name string) error {
	return &NotSupportedError{Operation: "LINK"}
}
func (f *fakeFS) Readlink(ctx context.Context, id FileId) (string, error) {
	return "", &NotSupportedError{Operation: "READLINK"}
}
func (f *fakeFS) ReadDir(ctx context.Context, dir FileId, startCookie uint64, maxEntries int) ([]DirEntry, bool, [8]byte, error) {
	if startCookie > 0 {
		return nil, true, [8]byte{}, nil
	}
	return []DirEntry{{Id: fakeFile, Name: "foo.txt", Cookie: 1}}, true, [8]byte{1}, nil
}
func (f *fakeFS) FSInfo(ctx context.Context, id FileId) (FSInfo, error) {
	return FSInfo{MaxFileSize: 1 << 30, MaxRead: 1 << 16, MaxWrite: 1 << 16, MaxName: 255, LinkMax: 1}, nil
}
func (f *fakeFS) FSStat(ctx context.Context, id FileId) (FSStat, error) {
	return FSStat{TotalBytes: 1 << 30, FreeBytes: 1 << 29}, nil
}
func (f *fakeFS) Access(ctx context.Context, id FileId, requested uint32) (uint32, error) {
	return requested, nil
}

func newScenarioServer(t *testing.T) *Server {
	t.Helper()
	srv := &Server{
		vfs:        &fakeFS{},
		options:    ServerOptions{}.withDefaults(),
		logger:     NewNoopLogger(),
		metrics:    &Metrics{},
		generation: 0xAAAAAAAAAAAAAAAA,
		exports:    []Export{{Path: "/", RootId: fakeRoot}},
	}
	copy(srv.writeVerifier[:], []byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA})
	srv.dispatcher = srv.buildDispatcher()
	return srv
}

func dispatch(t *testing.T, srv *Server, prog, vers, proc uint32, body []byte) *Decoder {
	t.Helper()
	raw := encodeCall(1, prog, vers, proc, AuthNone, body)
	call, err := DecodeCall(raw)
	require.NoError(t, err)
	cc := &ConnContext{Server: srv, ctx: context.Background()}
	reply := srv.dispatcher.Dispatch(cc, call)
	require.Equal(t, uint32(AcceptSuccess), reply.AcceptState, "procedure %d", proc)
	return NewDecoder(reply.Body)
}

// TestMountReturnsRoot exercises scenario 1: MNT("/") returns MNT3_OK
// with handle G || 0x...01.
func TestMountReturnsRoot(t *testing.T) {
	srv := newScenarioServer(t)
	body := NewEncoder()
	body.PutString("/")

	d := dispatch(t, srv, MountProgram, MountV3, MOUNTPROC3_MNT, body.Bytes())
	status, _ := d.GetUint32()
	require.Equal(t, uint32(MNT3_OK), status)

	fhBytes, _ := d.GetOpaque(64)
	fh, err := DecodeFileHandle(fhBytes)
	require.NoError(t, err)
	require.Equal(t, srv.generation, fh.Generation)
	require.Equal(t, fakeRoot, fh.Id)
}

// TestLookupThenGetattr exercises scenario 2: LOOKUP a name, then
// GETATTR the returned handle.
func TestLookupThenGetattr(t *testing.T) {
	srv := newScenarioServer(t)
	rootFH := FileHandle{Generation: srv.generation, Id: fakeRoot}

	lookupBody := NewEncoder()
	putFileHandle(lookupBody, rootFH)
	lookupBody.PutString("foo.txt")
	d := dispatch(t, srv, NFSProgram, NFSV3, NFSPROC3_LOOKUP, lookupBody.Bytes())
	status, _ := d.GetUint32()
	require.Equal(t, uint32(NFS3_OK), status)
	childFHBytes, _ := d.GetOpaque(64)
	childFH, err := DecodeFileHandle(childFHBytes)
	require.NoError(t, err)
	require.Equal(t, fakeFile, childFH.Id)

	getattrBody := NewEncoder()
	putFileHandle(getattrBody, childFH)
	d = dispatch(t, srv, NFSProgram, NFSV3, NFSPROC3_GETATTR, getattrBody.Bytes())
	status, _ = d.GetUint32()
	require.Equal(t, uint32(NFS3_OK), status)
}

// TestStaleHandle exercises scenario 3: a handle with the generation
// flipped returns NFS3ERR_STALE.
func TestStaleHandle(t *testing.T) {
	srv := newScenarioServer(t)
	staleFH := FileHandle{Generation: srv.generation ^ 1, Id: fakeFile}

	body := NewEncoder()
	putFileHandle(body, staleFH)
	d := dispatch(t, srv, NFSProgram, NFSV3, NFSPROC3_GETATTR, body.Bytes())
	status, _ := d.GetUint32()
	require.Equal(t, uint32(NFS3ERR_STALE), status)
}

// TestWriteThenCommit exercises scenario 5: WRITE followed by COMMIT
// returns the server's write verifier, and a restart (new generation)
// changes it.
func TestWriteThenCommit(t *testing.T) {
	srv := newScenarioServer(t)
	fh := FileHandle{Generation: srv.generation, Id: fakeFile}

	writeBody := NewEncoder()
	putFileHandle(writeBody, fh)
	writeBody.PutUint64(0)
	writeBody.PutUint32(6)
	writeBody.PutUint32(uint32(Unstable))
	writeBody.PutOpaque([]byte("abcdef"))
	d := dispatch(t, srv, NFSProgram, NFSV3, NFSPROC3_WRITE, writeBody.Bytes())
	status, _ := d.GetUint32()
	require.Equal(t, uint32(NFS3_OK), status)
	skipWCCData(d)
	written, _ := d.GetUint32()
	require.Equal(t, uint32(6), written)
	d.GetUint32() // committed
	verifier, _ := d.GetFixedOpaque(8)
	require.Equal(t, srv.writeVerifier[:], verifier)

	commitBody := NewEncoder()
	putFileHandle(commitBody, fh)
	commitBody.PutUint64(0)
	commitBody.PutUint32(6)
	d = dispatch(t, srv, NFSProgram, NFSV3, NFSPROC3_COMMIT, commitBody.Bytes())
	status, _ = d.GetUint32()
	require.Equal(t, uint32(NFS3_OK), status)
	skipWCCData(d)
	commitVerifier, _ := d.GetFixedOpaque(8)
	require.Equal(t, srv.writeVerifier[:], commitVerifier)

	// Simulate a restart: new generation, new verifier.
	srv.generation = 0xBBBBBBBBBBBBBBBB
	copy(srv.writeVerifier[:], []byte{0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB})
	d = dispatch(t, srv, NFSProgram, NFSV3, NFSPROC3_COMMIT, commitBody.Bytes())
	status, _ = d.GetUint32()
	require.Equal(t, uint32(NFS3_OK), status)
	skipWCCData(d)
	newVerifier, _ := d.GetFixedOpaque(8)
	require.NotEqual(t, verifier, newVerifier)
}

// skipWCCData advances d past one wcc_data: pre_op_attr (optional
// size+mtime+ctime) followed by post_op_attr (optional full fattr3).
func skipWCCData(d *Decoder) {
	preOK, _ := d.GetBool()
	if preOK {
		d.GetUint64() // size
		d.GetUint32() // mtime sec
		d.GetUint32() // mtime nsec
		d.GetUint32() // ctime sec
		d.GetUint32() // ctime nsec
	}
	postOK, _ := d.GetBool()
	if postOK {
		putAttrsSkip(d)
	}
}

// TestLinkNotSupportedKeepsConnectionUsable exercises scenario 6: LINK
// against a filesystem that declines it yields an accepted reply
// carrying NFS3ERR_NOTSUPP, and the server answers a subsequent call
// normally.
func TestLinkNotSupportedKeepsConnectionUsable(t *testing.T) {
	srv := newScenarioServer(t)
	fh := FileHandle{Generation: srv.generation, Id: fakeFile}

	linkBody := NewEncoder()
	putFileHandle(linkBody, fh)
	putFileHandle(linkBody, FileHandle{Generation: srv.generation, Id: fakeRoot})
	linkBody.PutString("bar.txt")
	d := dispatch(t, srv, NFSProgram, NFSV3, NFSPROC3_LINK, linkBody.Bytes())
	status, _ := d.GetUint32()
	require.Equal(t, uint32(NFS3ERR_NOTSUPP), status)

	// The connection (here: the dispatcher/server pair) still answers.
	nullCall, err := DecodeCall(encodeCall(2, NFSProgram, NFSV3, NFSPROC3_NULL, AuthNone, nil))
	require.NoError(t, err)
	reply := srv.dispatcher.Dispatch(&ConnContext{Server: srv, ctx: context.Background()}, nullCall)
	require.Equal(t, uint32(AcceptSuccess), reply.AcceptState)
}

// putAttrsSkip advances d past one fattr3 (post_op_attr/pre_op_attr
// payload already known present).
func putAttrsSkip(d *Decoder) {
	d.GetUint32() // type
	d.GetUint32() // mode
	d.GetUint32() // nlink
	d.GetUint32() // uid
	d.GetUint32() // gid
	d.GetUint64() // size
	d.GetUint64() // used
	d.GetUint32() // rdev major
	d.GetUint32() // rdev minor
	d.GetUint64() // fsid
	d.GetUint64() // fileid
	d.GetUint32() // atime sec
	d.GetUint32() // atime nsec
	d.GetUint32() // mtime sec
	d.GetUint32() // mtime nsec
	d.GetUint32() // ctime sec
	d.GetUint32() // ctime nsec
}
