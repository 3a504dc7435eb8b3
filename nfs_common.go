package nfsd3

// resolveHandle decodes an nfs_fh3 from d and validates it against the
// live server generation (§3 invariant, §4.6: "Every procedure starts
// by decoding a nfs_fh3, validating its generation ... on mismatch
// return NFS3ERR_STALE"). A non-nil error is a structural XDR failure
// that must become GARBAGE_ARGS at the RPC layer; a non-zero status
// with a nil error means the caller should reply with that status,
// followed only by the empty attribute fields its procedure's failure
// reply carries, and stop.
func resolveHandle(cc *ConnContext, d *Decoder) (FileId, uint32, error) {
	fh, err := getFileHandle(d)
	if err != nil {
		if _, ok := err.(*InvalidFileHandleError); ok {
			return 0, NFS3ERR_BADHANDLE, nil
		}
		return 0, 0, err
	}
	if fh.Generation != cc.Server.generation {
		return 0, NFS3ERR_STALE, nil
	}
	return fh.Id, NFS3_OK, nil
}

// statusOnlyReply encodes a bare NFS3 status with no further body,
// used whenever a procedure fails before it has anything else to
// report.
func statusOnlyReply(status uint32) []byte {
	e := NewEncoder()
	e.PutUint32(status)
	return e.Bytes()
}

// dirOpArg decodes the common {dir handle, name} pair used by LOOKUP,
// CREATE, MKDIR, SYMLINK, MKNOD, REMOVE, and RMDIR (diropargs3).
func dirOpArg(cc *ConnContext, d *Decoder) (FileId, string, uint32, error) {
	dir, status, err := resolveHandle(cc, d)
	if err != nil || status != NFS3_OK {
		return 0, "", status, err
	}
	name, err := d.GetString(255)
	if err != nil {
		return 0, "", 0, err
	}
	return dir, name, NFS3_OK, nil
}

// safeAttrs fetches attrs for use as post-op/wcc data, treating a
// failure as "attributes unavailable" rather than propagating the
// error — mutating procedures still owe the client whatever status
// their primary operation produced (§7: post-op attrs are supplied
// "cheaply", never at the cost of masking the real error).
func safeAttrs(cc *ConnContext, id FileId) (Attrs, bool) {
	a, err := cc.Server.vfs.GetAttr(cc.Context(), id)
	return a, err == nil
}
