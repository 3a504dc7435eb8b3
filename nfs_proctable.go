package nfsd3

func handleNfsNull(cc *ConnContext, call *Call) ([]byte, error) { return nil, nil }

// nfsProcTable assembles the full NFSv3 procedure registry (§4.4,
// RFC 1813 §3): every procedure NULL through COMMIT.
func nfsProcTable() map[uint32]ProcHandler {
	return map[uint32]ProcHandler{
		NFSPROC3_NULL:        handleNfsNull,
		NFSPROC3_GETATTR:     handleGetattr,
		NFSPROC3_SETATTR:     handleSetattr,
		NFSPROC3_LOOKUP:      handleLookup,
		NFSPROC3_ACCESS:      handleAccess,
		NFSPROC3_READLINK:    handleReadlink,
		NFSPROC3_READ:        handleRead,
		NFSPROC3_WRITE:       handleWrite,
		NFSPROC3_CREATE:      handleCreate,
		NFSPROC3_MKDIR:       handleMkdir,
		NFSPROC3_SYMLINK:     handleSymlink,
		NFSPROC3_MKNOD:       handleMknod,
		NFSPROC3_REMOVE:      handleRemove,
		NFSPROC3_RMDIR:       handleRmdir,
		NFSPROC3_RENAME:      handleRename,
		NFSPROC3_LINK:        handleLink,
		NFSPROC3_READDIR:     handleReaddir,
		NFSPROC3_READDIRPLUS: handleReaddirplus,
		NFSPROC3_FSSTAT:      handleFsstat,
		NFSPROC3_FSINFO:      handleFsinfo,
		NFSPROC3_PATHCONF:    handlePathconf,
		NFSPROC3_COMMIT:      handleCommit,
	}
}
