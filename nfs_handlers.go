package nfsd3

// handleGetattr implements GETATTR (§4.6 GETATTR).
func handleGetattr(cc *ConnContext, call *Call) ([]byte, error) {
	id, status, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	if status != NFS3_OK {
		return statusOnlyReply(status), nil
	}

	attrs, verr := cc.Server.vfs.GetAttr(cc.Context(), id)
	e := NewEncoder()
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	putAttrs(e, attrs)
	return e.Bytes(), nil
}

// handleSetattr implements SETATTR (§4.6 SETATTR): apply sattr3
// guarded by an optional ctime precondition. A guard mismatch yields
// NFS3ERR_NOT_SYNC; a size change on a directory or symlink yields
// NFS3ERR_INVAL, both enforced by the VFS (memvfs) and surfaced here
// via mapVFSError.
func handleSetattr(cc *ConnContext, call *Call) ([]byte, error) {
	id, status, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	if status != NFS3_OK {
		return statusOnlyReply(status), nil
	}

	newAttrs, err := getSetAttrs(call.Body)
	if err != nil {
		return nil, err
	}
	guard, err := getSattrGuard(call.Body)
	if err != nil {
		return nil, err
	}

	pre, preOK := safeAttrs(cc, id)

	e := NewEncoder()
	result, verr := cc.Server.vfs.SetAttr(cc.Context(), id, guard, newAttrs)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putWCCData(e, pre, preOK, pre, preOK)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	putWCCData(e, pre, preOK, result, true)
	return e.Bytes(), nil
}

// handleLookup implements LOOKUP (§4.6 LOOKUP): resolve a name inside
// a directory, returning the child handle, its attrs, and the
// directory's post-op attrs.
func handleLookup(cc *ConnContext, call *Call) ([]byte, error) {
	dir, name, status, err := dirOpArg(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putPostOpAttrs(e, Attrs{}, false)
		return e.Bytes(), nil
	}

	childID, childAttrs, verr := cc.Server.vfs.Lookup(cc.Context(), dir, name)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		dirAttrs, ok := safeAttrs(cc, dir)
		putPostOpAttrs(e, dirAttrs, ok)
		return e.Bytes(), nil
	}

	e.PutUint32(NFS3_OK)
	putFileHandle(e, FileHandle{Generation: cc.Server.generation, Id: childID})
	putPostOpAttrs(e, childAttrs, true)
	dirAttrs, ok := safeAttrs(cc, dir)
	putPostOpAttrs(e, dirAttrs, ok)
	return e.Bytes(), nil
}

// handleAccess implements ACCESS (§4.6 ACCESS): return the subset of
// the requested bits the VFS allows.
func handleAccess(cc *ConnContext, call *Call) ([]byte, error) {
	id, status, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	if status != NFS3_OK {
		return statusOnlyReply(status), nil
	}
	requested, err := call.Body.GetUint32()
	if err != nil {
		return nil, err
	}

	e := NewEncoder()
	allowed, verr := cc.Server.vfs.Access(cc.Context(), id, requested)
	attrs, ok := safeAttrs(cc, id)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putPostOpAttrs(e, attrs, ok)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	putPostOpAttrs(e, attrs, ok)
	e.PutUint32(allowed)
	return e.Bytes(), nil
}

// handleReadlink implements READLINK (§4.6 READLINK).
func handleReadlink(cc *ConnContext, call *Call) ([]byte, error) {
	id, status, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putPostOpAttrs(e, Attrs{}, false)
		return e.Bytes(), nil
	}

	target, verr := cc.Server.vfs.Readlink(cc.Context(), id)
	attrs, ok := safeAttrs(cc, id)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putPostOpAttrs(e, attrs, ok)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	putPostOpAttrs(e, attrs, ok)
	e.PutString(target)
	return e.Bytes(), nil
}

// handleRead implements READ (§4.6 READ): return up to count bytes
// from offset, an eof flag, and post-op attrs. Short reads are legal.
func handleRead(cc *ConnContext, call *Call) ([]byte, error) {
	id, status, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putPostOpAttrs(e, Attrs{}, false)
		return e.Bytes(), nil
	}
	offset, err := call.Body.GetUint64()
	if err != nil {
		return nil, err
	}
	count, err := call.Body.GetUint32()
	if err != nil {
		return nil, err
	}
	if count > cc.Server.options.MaxRead {
		count = cc.Server.options.MaxRead
	}

	data, eof, verr := cc.Server.vfs.Read(cc.Context(), id, offset, count)
	attrs, ok := safeAttrs(cc, id)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putPostOpAttrs(e, attrs, ok)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	putPostOpAttrs(e, attrs, ok)
	e.PutUint32(uint32(len(data)))
	e.PutBool(eof)
	e.PutOpaque(data)
	return e.Bytes(), nil
}

// handleWrite implements WRITE (§4.6 WRITE): write count bytes at
// offset with the requested stability, returning bytes committed, the
// (possibly upgraded) stability level actually used, and the write
// verifier so the client can detect a server restart between WRITE
// and COMMIT.
func handleWrite(cc *ConnContext, call *Call) ([]byte, error) {
	id, status, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}
	offset, err := call.Body.GetUint64()
	if err != nil {
		return nil, err
	}
	if _, err := call.Body.GetUint32(); err != nil { // count, redundant with data length
		return nil, err
	}
	stableVal, err := call.Body.GetUint32()
	if err != nil {
		return nil, err
	}
	data, err := call.Body.GetOpaque(int(cc.Server.options.MaxWrite))
	if err != nil {
		return nil, err
	}

	pre, preOK := safeAttrs(cc, id)
	written, committed, verr := cc.Server.vfs.Write(cc.Context(), id, offset, data, StableFlag(stableVal))
	post, postOK := safeAttrs(cc, id)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putWCCData(e, pre, preOK, post, postOK)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	putWCCData(e, pre, preOK, post, postOK)
	e.PutUint32(written)
	e.PutUint32(uint32(committed))
	e.PutFixedOpaque(cc.Server.writeVerifier[:])
	return e.Bytes(), nil
}

// handleCommit implements COMMIT (§4.6 COMMIT, §9 Open Question (b)):
// when the supplied verifier matches the live server generation,
// answer success with that same verifier. A mismatched verifier is
// answered with success too, but carrying the *current* verifier, so
// the client's own comparison against what it remembers triggers a
// resend — this is the resolution spec.md directs for the ambiguity
// it flags.
func handleCommit(cc *ConnContext, call *Call) ([]byte, error) {
	id, status, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}
	if _, err := call.Body.GetUint64(); err != nil { // offset, unused: memvfs commits everything
		return nil, err
	}
	if _, err := call.Body.GetUint32(); err != nil { // count, unused
		return nil, err
	}

	pre, preOK := safeAttrs(cc, id)
	post, postOK := pre, preOK
	e.PutUint32(NFS3_OK)
	putWCCData(e, pre, preOK, post, postOK)
	e.PutFixedOpaque(cc.Server.writeVerifier[:])
	return e.Bytes(), nil
}
