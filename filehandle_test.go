package nfsd3

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileHandleRoundTrip(t *testing.T) {
	fh := FileHandle{Generation: 0xdeadbeef, Id: 123}
	raw := EncodeFileHandle(fh)
	require.Len(t, raw, fileHandleSize)

	got, err := DecodeFileHandle(raw)
	require.NoError(t, err)
	require.Equal(t, fh, got)
}

func TestDecodeFileHandleWrongLength(t *testing.T) {
	_, err := DecodeFileHandle([]byte{1, 2, 3})
	require.Error(t, err)
	var ihErr *InvalidFileHandleError
	require.ErrorAs(t, err, &ihErr)
}

func TestGetFileHandleOpaqueRoundTrip(t *testing.T) {
	fh := FileHandle{Generation: 1, Id: 2}
	e := NewEncoder()
	putFileHandle(e, fh)

	d := NewDecoder(e.Bytes())
	got, err := getFileHandle(d)
	require.NoError(t, err)
	require.Equal(t, fh, got)
}

func TestResolveHandleDetectsStaleGeneration(t *testing.T) {
	cc := &ConnContext{Server: &Server{generation: 5}}
	e := NewEncoder()
	putFileHandle(e, FileHandle{Generation: 6, Id: 1})
	d := NewDecoder(e.Bytes())

	id, status, err := resolveHandle(cc, d)
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3ERR_STALE), status)
	require.Zero(t, id)
}

func TestResolveHandleBadHandleOnWrongLength(t *testing.T) {
	cc := &ConnContext{Server: &Server{generation: 5}}
	e := NewEncoder()
	e.PutOpaque([]byte{1, 2, 3})
	d := NewDecoder(e.Bytes())

	_, status, err := resolveHandle(cc, d)
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3ERR_BADHANDLE), status)
}
