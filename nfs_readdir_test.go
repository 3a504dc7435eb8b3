package nfsd3

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// pagingFS is a fakeFS whose root directory holds a configurable,
// possibly large set of entries, used to exercise READDIR/READDIRPLUS
// paging, cookie invalidation, and TOOSMALL without a real backing
// store.
type pagingFS struct {
	fakeFS
	entries []DirEntry
	verf    [8]byte
}

func (f *pagingFS) GetAttr(ctx context.Context, id FileId) (Attrs, error) {
	if id == fakeRoot {
		return Attrs{Type: FileTypeDir, Mode: 0o755, FileId: fakeRoot, Nlink: 2}, nil
	}
	return Attrs{Type: FileTypeRegular, Mode: 0o644, FileId: id, Size: 1}, nil
}

func (f *pagingFS) ReadDir(ctx context.Context, dir FileId, startCookie uint64, maxEntries int) ([]DirEntry, bool, [8]byte, error) {
	if dir != fakeRoot {
		return nil, true, [8]byte{}, Err(NFS3ERR_NOTDIR, "not a directory")
	}
	var out []DirEntry
	for _, ent := range f.entries {
		if ent.Cookie <= startCookie {
			continue
		}
		out = append(out, ent)
		if len(out) == maxEntries {
			return out, ent.Cookie == f.entries[len(f.entries)-1].Cookie, f.verf, nil
		}
	}
	return out, true, f.verf, nil
}

func newPagingServer(t *testing.T, n int) *Server {
	t.Helper()
	entries := make([]DirEntry, n)
	for i := 0; i < n; i++ {
		entries[i] = DirEntry{Id: FileId(100 + i), Name: fmt.Sprintf("file%03d", i), Cookie: uint64(i + 1)}
	}
	srv := &Server{
		vfs:        &pagingFS{entries: entries, verf: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}},
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

func readdirplusBody(fh FileHandle, cookie uint64, verf [8]byte, maxCount uint32) []byte {
	e := NewEncoder()
	putFileHandle(e, fh)
	e.PutUint64(cookie)
	e.PutFixedOpaque(verf[:])
	e.PutUint32(8192) // dircount, advisory
	e.PutUint32(maxCount)
	return e.Bytes()
}

// decodeReaddirplusPage reads one READDIRPLUS reply, returning the
// entries it carries, whether it was the final page, and its
// cookieverf. Callers that only need the status/attrs should decode
// those two leading fields themselves before calling this.
func decodeReaddirplusPage(t *testing.T, d *Decoder) (entries []DirEntry, eof bool, verf [8]byte) {
	t.Helper()
	postOK, err := d.GetBool()
	require.NoError(t, err)
	if postOK {
		putAttrsSkip(d)
	}
	rawVerf, err := d.GetFixedOpaque(8)
	require.NoError(t, err)
	copy(verf[:], rawVerf)

	for {
		present, err := d.GetBool()
		require.NoError(t, err)
		if !present {
			break
		}
		id, _ := d.GetUint64()
		name, _ := d.GetString(MaxXDROpaqueLength)
		cookie, _ := d.GetUint64()
		entries = append(entries, DirEntry{Id: FileId(id), Name: name, Cookie: cookie})

		attrsPresent, _ := d.GetBool()
		if attrsPresent {
			putAttrsSkip(d)
		}
		fhPresent, _ := d.GetBool()
		if fhPresent {
			d.GetOpaque(64)
		}
	}
	eof, err = d.GetBool()
	require.NoError(t, err)
	return entries, eof, verf
}

// TestReaddirplusPagesAllEntries exercises the literal scenario of a
// 300-entry directory listed with maxcount=4096: no single reply fits
// every entry, so the client must page, and the union of pages must
// recover the whole directory with no gaps or duplicates (§4.6
// READDIRPLUS, §8 Readdir completeness).
func TestReaddirplusPagesAllEntries(t *testing.T) {
	const total = 300
	srv := newPagingServer(t, total)
	fh := FileHandle{Generation: srv.generation, Id: fakeRoot}
	verf := srv.vfs.(*pagingFS).verf

	var (
		all     []DirEntry
		cookie  uint64
		pages   int
		lastEOF bool
	)
	for {
		body := readdirplusBody(fh, cookie, verf, 4096)
		d := dispatch(t, srv, NFSProgram, NFSV3, NFSPROC3_READDIRPLUS, body)
		status, _ := d.GetUint32()
		require.Equal(t, uint32(NFS3_OK), status)

		entries, eof, gotVerf := decodeReaddirplusPage(t, d)
		require.Equal(t, verf, gotVerf)
		require.NotEmpty(t, entries, "each page must carry at least one entry")
		all = append(all, entries...)
		pages++
		cookie = entries[len(entries)-1].Cookie
		lastEOF = eof
		if eof {
			break
		}
		require.Less(t, pages, total, "paging did not converge")
	}

	require.True(t, lastEOF)
	require.GreaterOrEqual(t, pages, 2, "a 300-entry directory at maxcount=4096 must take more than one page")
	require.Len(t, all, total)
	seen := make(map[string]bool, total)
	for i, ent := range all {
		require.False(t, seen[ent.Name], "duplicate entry %s", ent.Name)
		seen[ent.Name] = true
		require.Equal(t, fmt.Sprintf("file%03d", i), ent.Name)
	}
}

// TestReaddirplusBadCookie exercises presenting a nonzero cookie
// alongside a cookieverf that does not match the directory's current
// one, which must be rejected outright rather than silently resuming
// (§4.6 READDIRPLUS: "cookies from a previous cookieverf must be
// rejected with NFS3ERR_BAD_COOKIE").
func TestReaddirplusBadCookie(t *testing.T) {
	srv := newPagingServer(t, 5)
	fh := FileHandle{Generation: srv.generation, Id: fakeRoot}

	staleVerf := [8]byte{9, 9, 9, 9, 9, 9, 9, 9}
	body := readdirplusBody(fh, 3, staleVerf, 4096)
	d := dispatch(t, srv, NFSProgram, NFSV3, NFSPROC3_READDIRPLUS, body)
	status, _ := d.GetUint32()
	require.Equal(t, uint32(NFS3ERR_BAD_COOKIE), status)
}

// TestReaddirplusTooSmall exercises a maxcount too small to carry even
// one entry, which must fail outright rather than return a partial or
// empty-but-OK page (§4.6 READDIRPLUS: "if not even one entry fits,
// return NFS3ERR_TOOSMALL").
func TestReaddirplusTooSmall(t *testing.T) {
	srv := newPagingServer(t, 5)
	fh := FileHandle{Generation: srv.generation, Id: fakeRoot}
	verf := srv.vfs.(*pagingFS).verf

	body := readdirplusBody(fh, 0, verf, 32)
	d := dispatch(t, srv, NFSProgram, NFSV3, NFSPROC3_READDIRPLUS, body)
	status, _ := d.GetUint32()
	require.Equal(t, uint32(NFS3ERR_TOOSMALL), status)
}
