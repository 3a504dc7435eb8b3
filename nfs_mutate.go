package nfsd3

// handleCreate implements CREATE (§4.6 CREATE), supporting all three
// modes: UNCHECKED, GUARDED (fail if the name exists), and EXCLUSIVE
// (the 8-byte verifier makes repeat creates with the same verifier
// idempotent — the VFS is responsible for that comparison).
func handleCreate(cc *ConnContext, call *Call) ([]byte, error) {
	dir, name, status, err := dirOpArg(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putPostOpAttrs(e, Attrs{}, false)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}

	modeVal, err := call.Body.GetUint32()
	if err != nil {
		return nil, err
	}
	var how CreateHow
	switch modeVal {
	case 0: // UNCHECKED
		how.Mode = CreateUnchecked
		if how.Attrs, err = getSetAttrs(call.Body); err != nil {
			return nil, err
		}
	case 1: // GUARDED
		how.Mode = CreateGuarded
		if how.Attrs, err = getSetAttrs(call.Body); err != nil {
			return nil, err
		}
	case 2: // EXCLUSIVE
		how.Mode = CreateExclusive
		verifier, err := call.Body.GetFixedOpaque(8)
		if err != nil {
			return nil, err
		}
		copy(how.Verifier[:], verifier)
	default:
		return nil, newParseError("unknown createmode3 %d", modeVal)
	}

	pre, preOK := safeAttrs(cc, dir)
	newID, newAttrs, verr := cc.Server.vfs.Create(cc.Context(), dir, name, how)
	post, postOK := safeAttrs(cc, dir)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putWCCData(e, pre, preOK, post, postOK)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	e.PutOptionalPresent(true)
	putFileHandle(e, FileHandle{Generation: cc.Server.generation, Id: newID})
	putPostOpAttrs(e, newAttrs, true)
	putWCCData(e, pre, preOK, post, postOK)
	return e.Bytes(), nil
}

// handleMkdir implements MKDIR (§4.6 MKDIR, RFC 1813 §3.3.9).
func handleMkdir(cc *ConnContext, call *Call) ([]byte, error) {
	dir, name, status, err := dirOpArg(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putPostOpAttrs(e, Attrs{}, false)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}
	attrs, err := getSetAttrs(call.Body)
	if err != nil {
		return nil, err
	}

	pre, preOK := safeAttrs(cc, dir)
	newID, newAttrs, verr := cc.Server.vfs.Mkdir(cc.Context(), dir, name, attrs)
	post, postOK := safeAttrs(cc, dir)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putWCCData(e, pre, preOK, post, postOK)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	e.PutOptionalPresent(true)
	putFileHandle(e, FileHandle{Generation: cc.Server.generation, Id: newID})
	putPostOpAttrs(e, newAttrs, true)
	putWCCData(e, pre, preOK, post, postOK)
	return e.Bytes(), nil
}

// handleSymlink implements SYMLINK (§4.6 SYMLINK, RFC 1813 §3.3.10).
func handleSymlink(cc *ConnContext, call *Call) ([]byte, error) {
	dir, name, status, err := dirOpArg(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putPostOpAttrs(e, Attrs{}, false)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}
	attrs, err := getSetAttrs(call.Body)
	if err != nil {
		return nil, err
	}
	target, err := call.Body.GetString(MaxXDROpaqueLength)
	if err != nil {
		return nil, err
	}

	pre, preOK := safeAttrs(cc, dir)
	newID, newAttrs, verr := cc.Server.vfs.Symlink(cc.Context(), dir, name, target, attrs)
	post, postOK := safeAttrs(cc, dir)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putWCCData(e, pre, preOK, post, postOK)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	e.PutOptionalPresent(true)
	putFileHandle(e, FileHandle{Generation: cc.Server.generation, Id: newID})
	putPostOpAttrs(e, newAttrs, true)
	putWCCData(e, pre, preOK, post, postOK)
	return e.Bytes(), nil
}

// handleMknod implements MKNOD (§4.6 MKNOD, RFC 1813 §3.3.11).
func handleMknod(cc *ConnContext, call *Call) ([]byte, error) {
	dir, name, status, err := dirOpArg(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putPostOpAttrs(e, Attrs{}, false)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}

	ftypeVal, err := call.Body.GetUint32()
	if err != nil {
		return nil, err
	}
	ftype := FileType(ftypeVal)

	var attrs SetAttrs
	var major, minor uint32
	switch ftype {
	case FileTypeBlock, FileTypeChar:
		if attrs, err = getSetAttrs(call.Body); err != nil {
			return nil, err
		}
		if major, err = call.Body.GetUint32(); err != nil {
			return nil, err
		}
		if minor, err = call.Body.GetUint32(); err != nil {
			return nil, err
		}
	case FileTypeSocket, FileTypeFIFO:
		if attrs, err = getSetAttrs(call.Body); err != nil {
			return nil, err
		}
	default:
		e.buf = e.buf[:0]
		e.PutUint32(NFS3ERR_BADTYPE)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}

	pre, preOK := safeAttrs(cc, dir)
	newID, newAttrs, verr := cc.Server.vfs.Mknod(cc.Context(), dir, name, ftype, major, minor, attrs)
	post, postOK := safeAttrs(cc, dir)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putWCCData(e, pre, preOK, post, postOK)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	e.PutOptionalPresent(true)
	putFileHandle(e, FileHandle{Generation: cc.Server.generation, Id: newID})
	putPostOpAttrs(e, newAttrs, true)
	putWCCData(e, pre, preOK, post, postOK)
	return e.Bytes(), nil
}

// handleRemove implements REMOVE (§4.6 REMOVE).
func handleRemove(cc *ConnContext, call *Call) ([]byte, error) {
	dir, name, status, err := dirOpArg(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}

	pre, preOK := safeAttrs(cc, dir)
	verr := cc.Server.vfs.Remove(cc.Context(), dir, name)
	post, postOK := safeAttrs(cc, dir)
	e.PutUint32(mapVFSError(verr))
	putWCCData(e, pre, preOK, post, postOK)
	return e.Bytes(), nil
}

// handleRmdir implements RMDIR (§4.6 RMDIR).
func handleRmdir(cc *ConnContext, call *Call) ([]byte, error) {
	dir, name, status, err := dirOpArg(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}

	pre, preOK := safeAttrs(cc, dir)
	verr := cc.Server.vfs.Rmdir(cc.Context(), dir, name)
	post, postOK := safeAttrs(cc, dir)
	e.PutUint32(mapVFSError(verr))
	putWCCData(e, pre, preOK, post, postOK)
	return e.Bytes(), nil
}

// handleRename implements RENAME (§4.6 RENAME): an atomic rename
// between two (possibly identical) directories, reporting wcc_data
// for both sides.
func handleRename(cc *ConnContext, call *Call) ([]byte, error) {
	fromDir, fromStatus, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if fromStatus != NFS3_OK {
		e.PutUint32(fromStatus)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}
	fromName, err := call.Body.GetString(255)
	if err != nil {
		return nil, err
	}
	toDir, toStatus, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	if toStatus != NFS3_OK {
		e.PutUint32(toStatus)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}
	toName, err := call.Body.GetString(255)
	if err != nil {
		return nil, err
	}

	fromPre, fromPreOK := safeAttrs(cc, fromDir)
	var toPre Attrs
	var toPreOK bool
	if toDir == fromDir {
		toPre, toPreOK = fromPre, fromPreOK
	} else {
		toPre, toPreOK = safeAttrs(cc, toDir)
	}

	verr := cc.Server.vfs.Rename(cc.Context(), fromDir, fromName, toDir, toName)

	fromPost, fromPostOK := safeAttrs(cc, fromDir)
	var toPost Attrs
	var toPostOK bool
	if toDir == fromDir {
		toPost, toPostOK = fromPost, fromPostOK
	} else {
		toPost, toPostOK = safeAttrs(cc, toDir)
	}

	e.PutUint32(mapVFSError(verr))
	putWCCData(e, fromPre, fromPreOK, fromPost, fromPostOK)
	putWCCData(e, toPre, toPreOK, toPost, toPostOK)
	return e.Bytes(), nil
}

// handleLink implements LINK (§4.6 LINK). The capability interface
// models a real hard-link verb; filesystems that cannot alias one
// FileId under two names (memvfs included) return NFS3ERR_NOTSUPP,
// which spec.md explicitly permits.
func handleLink(cc *ConnContext, call *Call) ([]byte, error) {
	id, status, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putPostOpAttrs(e, Attrs{}, false)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}
	dir, name, dstatus, err := dirOpArg(cc, call.Body)
	if err != nil {
		return nil, err
	}
	if dstatus != NFS3_OK {
		e.PutUint32(dstatus)
		putPostOpAttrs(e, Attrs{}, false)
		putWCCData(e, Attrs{}, false, Attrs{}, false)
		return e.Bytes(), nil
	}

	pre, preOK := safeAttrs(cc, dir)
	verr := cc.Server.vfs.Link(cc.Context(), id, dir, name)
	post, postOK := safeAttrs(cc, dir)
	attrs, ok := safeAttrs(cc, id)

	e.PutUint32(mapVFSError(verr))
	putPostOpAttrs(e, attrs, ok)
	putWCCData(e, pre, preOK, post, postOK)
	return e.Bytes(), nil
}
