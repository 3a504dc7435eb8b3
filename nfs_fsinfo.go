package nfsd3

// NFS3 FSF_* properties bits (RFC 1813 §3.3.19 FSINFO).
const (
	fsfLink        = 0x0001
	fsfSymlink     = 0x0002
	fsfHomogeneous = 0x0008
	fsfCanSetTime  = 0x0010
)

// handleFsstat implements FSSTAT (§4.6 FSSTAT): space and file-count
// usage for the filesystem containing the given object.
func handleFsstat(cc *ConnContext, call *Call) ([]byte, error) {
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

	stat, verr := cc.Server.vfs.FSStat(cc.Context(), id)
	attrs, ok := safeAttrs(cc, id)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putPostOpAttrs(e, attrs, ok)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	putPostOpAttrs(e, attrs, ok)
	e.PutUint64(stat.TotalBytes)
	e.PutUint64(stat.FreeBytes)
	e.PutUint64(stat.AvailBytes)
	e.PutUint64(stat.TotalFiles)
	e.PutUint64(stat.FreeFiles)
	e.PutUint64(stat.AvailFiles)
	e.PutUint32(0) // invarsec: volatile, no guaranteed stability window
	return e.Bytes(), nil
}

// handleFsinfo implements FSINFO (§4.6 FSINFO): the static capability
// and sizing limits a client uses to pick transfer sizes, advertised
// straight from ServerOptions and the VFS's own FSInfo.
func handleFsinfo(cc *ConnContext, call *Call) ([]byte, error) {
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

	info, verr := cc.Server.vfs.FSInfo(cc.Context(), id)
	attrs, ok := safeAttrs(cc, id)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putPostOpAttrs(e, attrs, ok)
		return e.Bytes(), nil
	}

	maxRead, maxWrite := info.MaxRead, info.MaxWrite
	if maxRead > cc.Server.options.MaxRead {
		maxRead = cc.Server.options.MaxRead
	}
	if maxWrite > cc.Server.options.MaxWrite {
		maxWrite = cc.Server.options.MaxWrite
	}

	e.PutUint32(NFS3_OK)
	putPostOpAttrs(e, attrs, ok)
	e.PutUint32(maxRead)
	e.PutUint32(maxRead) // preferred read size: same as the max
	e.PutUint32(4096)    // suggested multiple
	e.PutUint32(maxWrite)
	e.PutUint32(maxWrite)
	e.PutUint32(4096)
	e.PutUint32(16 * 1024) // preferred READDIR size
	e.PutUint64(info.MaxFileSize)
	putTimespec(e, Timespec{Seconds: 1})
	properties := uint32(fsfHomogeneous | fsfCanSetTime)
	if info.LinkMax > 0 {
		properties |= fsfLink
	}
	properties |= fsfSymlink
	e.PutUint32(properties)
	return e.Bytes(), nil
}

// handlePathconf implements PATHCONF (§4.6 PATHCONF): POSIX pathname
// limits, sourced from the same FSInfo the FSINFO reply uses.
func handlePathconf(cc *ConnContext, call *Call) ([]byte, error) {
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

	info, verr := cc.Server.vfs.FSInfo(cc.Context(), id)
	attrs, ok := safeAttrs(cc, id)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putPostOpAttrs(e, attrs, ok)
		return e.Bytes(), nil
	}
	e.PutUint32(NFS3_OK)
	putPostOpAttrs(e, attrs, ok)
	e.PutUint32(info.LinkMax)
	e.PutUint32(info.MaxName)
	e.PutBool(info.NoTrunc)
	e.PutBool(info.ChownRestricted)
	e.PutBool(!info.CaseSensitive) // case_insensitive
	e.PutBool(true)                // case_preserving
	return e.Bytes(), nil
}
