package nfsd3

// mountProcTable returns the Mount v3 procedure handlers (§4.5). The
// server is stateless: MNT resolves a path against the export set and
// mints a handle, UMNT/UMNTALL are accepted and otherwise ignored
// (there is no server-side mount table to clear, per §1 Non-goals).
func mountProcTable() map[uint32]ProcHandler {
	return map[uint32]ProcHandler{
		MOUNTPROC3_NULL:    handleMountNull,
		MOUNTPROC3_MNT:     handleMnt,
		MOUNTPROC3_DUMP:    handleMountDump,
		MOUNTPROC3_UMNT:    handleUmnt,
		MOUNTPROC3_UMNTALL: handleUmntAll,
		MOUNTPROC3_EXPORT:  handleExport,
	}
}

func handleMountNull(cc *ConnContext, call *Call) ([]byte, error) { return nil, nil }

// handleMnt implements MNT (§4.5): resolve the path against the
// configured exports; on a match, return MNT3_OK with the root's file
// handle and the auth flavors this server accepts.
func handleMnt(cc *ConnContext, call *Call) ([]byte, error) {
	path, err := call.Body.GetString(MaxXDROpaqueLength)
	if err != nil {
		return nil, err
	}

	e := NewEncoder()
	export, ok := cc.Server.findExport(path)
	if !ok {
		e.PutUint32(MNT3ERR_NOENT)
		return e.Bytes(), nil
	}

	e.PutUint32(MNT3_OK)
	fh := FileHandle{Generation: cc.Server.generation, Id: export.RootId}
	putFileHandle(e, fh)
	e.PutUint32(2) // auth_flavors<>
	e.PutUint32(AuthUnix)
	e.PutUint32(AuthNone)
	return e.Bytes(), nil
}

// handleMountDump returns the empty mount list (§4.5 DUMP) — this
// server never tracks who has mounted what.
func handleMountDump(cc *ConnContext, call *Call) ([]byte, error) {
	e := NewEncoder()
	e.PutBool(false) // end of mountlist
	return e.Bytes(), nil
}

func handleUmnt(cc *ConnContext, call *Call) ([]byte, error) {
	if _, err := call.Body.GetString(MaxXDROpaqueLength); err != nil {
		return nil, err
	}
	return nil, nil
}

func handleUmntAll(cc *ConnContext, call *Call) ([]byte, error) { return nil, nil }

// handleExport returns the configured export set, each with group
// "*" (anyone), per §4.5 EXPORT.
func handleExport(cc *ConnContext, call *Call) ([]byte, error) {
	e := NewEncoder()
	exports := cc.Server.exports
	for _, ex := range exports {
		e.PutBool(true) // another exportnode follows
		e.PutString(ex.Path)
		e.PutBool(true) // one group entry
		e.PutString("*")
		e.PutBool(false) // end of this export's group list
	}
	e.PutBool(false) // end of exportlist
	return e.Bytes(), nil
}
