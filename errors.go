package nfsd3

import "fmt"

// NFS3 status codes (RFC 1813 §2.6). Every NFS/Mount procedure reply
// begins with one of these; they are values returned by handlers, not
// errors that escape to the RPC layer (§7 layer 3).
const (
	NFS3_OK             = 0
	NFS3ERR_PERM        = 1
	NFS3ERR_NOENT       = 2
	NFS3ERR_IO          = 5
	NFS3ERR_NXIO        = 6
	NFS3ERR_ACCES       = 13
	NFS3ERR_EXIST       = 17
	NFS3ERR_NODEV       = 19
	NFS3ERR_NOTDIR      = 20
	NFS3ERR_ISDIR       = 21
	NFS3ERR_INVAL       = 22
	NFS3ERR_FBIG        = 27
	NFS3ERR_NOSPC       = 28
	NFS3ERR_ROFS        = 30
	NFS3ERR_MLINK       = 31
	NFS3ERR_NAMETOOLONG = 63
	NFS3ERR_NOTEMPTY    = 66
	NFS3ERR_DQUOT       = 69
	NFS3ERR_STALE       = 70
	NFS3ERR_REMOTE      = 71
	NFS3ERR_BADHANDLE   = 10001
	NFS3ERR_NOT_SYNC    = 10002
	NFS3ERR_BAD_COOKIE  = 10003
	NFS3ERR_NOTSUPP     = 10004
	NFS3ERR_TOOSMALL    = 10005
	NFS3ERR_SERVERFAULT = 10006
	NFS3ERR_BADTYPE     = 10007
	NFS3ERR_JUKEBOX     = 10008
)

// Mount v3 status codes (RFC 1813 Appendix I).
const (
	MNT3_OK       = 0
	MNT3ERR_PERM  = 1
	MNT3ERR_NOENT = 2
	MNT3ERR_IO    = 5
	MNT3ERR_ACCES = 13
)

// InvalidFileHandleError reports a syntactically valid but
// semantically unusable nfs_fh3 — wrong length, or naming a FileId
// the filesystem does not know. A generation mismatch is reported as
// NFS3ERR_STALE by resolveHandle without this type.
type InvalidFileHandleError struct {
	Reason string
}

func (e *InvalidFileHandleError) Error() string {
	return fmt.Sprintf("invalid file handle: %s", e.Reason)
}

// NotSupportedError marks a VFS capability operation the backing
// filesystem declines to implement (e.g. LINK on a plain path tree).
type NotSupportedError struct {
	Operation string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("operation %q not supported by this filesystem", e.Operation)
}

// nfsStatusError lets a VFS implementation return a precise NFS3
// status (NOENT, EXIST, NOTDIR, ...) instead of the generic IO
// fallback mapVFSError otherwise applies.
type nfsStatusError interface {
	error
	NFSStatus() uint32
}

// StatusError is the concrete nfsStatusError every VFS capability
// implementation in this repository (memvfs included) returns for
// expected, named failures.
type StatusError struct {
	Status uint32
	Msg    string
}

func (e *StatusError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("nfs status %d", e.Status)
}

func (e *StatusError) NFSStatus() uint32 { return e.Status }

// Err constructs a StatusError for the given NFS3 status code.
func Err(status uint32, format string, args ...interface{}) error {
	return &StatusError{Status: status, Msg: fmt.Sprintf(format, args...)}
}

// mapVFSError converts an error returned by a VFS capability method,
// or one of this package's structural error types, into an NFS3
// status code. A nil error maps to NFS3_OK.
func mapVFSError(err error) uint32 {
	if err == nil {
		return NFS3_OK
	}

	if status, ok := err.(nfsStatusError); ok {
		return status.NFSStatus()
	}

	switch err.(type) {
	case *InvalidFileHandleError:
		return NFS3ERR_STALE
	case *NotSupportedError:
		return NFS3ERR_NOTSUPP
	}

	return NFS3ERR_IO
}
