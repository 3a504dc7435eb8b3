package nfsd3

import "encoding/binary"

// fileHandleSize is the wire length of this server's nfs_fh3: an 8-byte
// generation token followed by an 8-byte FileId, well under the
// 64-byte ceiling RFC 1813 places on opaque file handles.
const fileHandleSize = 16

// FileId identifies one object within a FileSystem capability. Its
// meaning (inode number, path hash, table index, ...) is entirely up
// to the implementation; the server treats it as an opaque key.
type FileId uint64

// FileHandle is the decoded form of an nfs_fh3: a per-process
// generation token plus the FileId it names. A handle whose
// generation does not match the live server is stale (§3 Lifecycles):
// the server restarted and any FileId it once knew may no longer mean
// the same thing.
type FileHandle struct {
	Generation uint64
	Id         FileId
}

// EncodeFileHandle renders fh as its 16-byte wire form.
func EncodeFileHandle(fh FileHandle) []byte {
	buf := make([]byte, fileHandleSize)
	binary.BigEndian.PutUint64(buf[0:8], fh.Generation)
	binary.BigEndian.PutUint64(buf[8:16], uint64(fh.Id))
	return buf
}

// DecodeFileHandle parses raw as a FileHandle, rejecting anything
// other than exactly 16 bytes as an invalid handle rather than a
// structural XDR failure — a well-formed but wrong-length opaque is a
// BADHANDLE, not GARBAGE_ARGS (§4.6).
func DecodeFileHandle(raw []byte) (FileHandle, error) {
	if len(raw) != fileHandleSize {
		return FileHandle{}, &InvalidFileHandleError{Reason: "wrong length"}
	}
	return FileHandle{
		Generation: binary.BigEndian.Uint64(raw[0:8]),
		Id:         FileId(binary.BigEndian.Uint64(raw[8:16])),
	}, nil
}

// putFileHandle encodes fh as the opaque<64> nfs_fh3 field.
func putFileHandle(e *Encoder, fh FileHandle) {
	e.PutOpaque(EncodeFileHandle(fh))
}

// getFileHandle decodes an opaque<64> nfs_fh3 field. A length-prefix
// overrun is a structural error; a well-formed opaque of the wrong
// length is an *InvalidFileHandleError instead.
func getFileHandle(d *Decoder) (FileHandle, error) {
	raw, err := d.GetOpaque(64)
	if err != nil {
		return FileHandle{}, err
	}
	return DecodeFileHandle(raw)
}
