package nfsd3

// portmapService answers the Portmapper v2 program (§4.7). Only
// GETPORT is authoritative; NULL and DUMP answer trivially, and every
// other procedure falls through to PROC_UNAVAIL via the dispatcher's
// unknown-procedure path (the registry below simply omits them).
type portmapService struct {
	// ports maps (program, version) to the local TCP port serving it,
	// for the three programs this process co-hosts.
	ports map[[2]uint32]uint32
}

func newPortmapService(nfsPort, mountPort, portmapPort uint32) *portmapService {
	return &portmapService{
		ports: map[[2]uint32]uint32{
			{NFSProgram, NFSV3}:       nfsPort,
			{MountProgram, MountV3}:   mountPort,
			{PortmapProgram, PortmapVersion}: portmapPort,
		},
	}
}

func (p *portmapService) procTable() map[uint32]ProcHandler {
	return map[uint32]ProcHandler{
		PMAPPROC_NULL:    handlePortmapNull,
		PMAPPROC_GETPORT: p.handleGetPort,
		PMAPPROC_DUMP:    handlePortmapDump,
	}
}

func handlePortmapNull(cc *ConnContext, call *Call) ([]byte, error) {
	return nil, nil
}

// handleGetPort decodes a mapping request (prog, vers, prot, port) and
// answers with the locally known port, or 0 if this process does not
// serve that program/version (§4.7).
func (p *portmapService) handleGetPort(cc *ConnContext, call *Call) ([]byte, error) {
	prog, err := call.Body.GetUint32()
	if err != nil {
		return nil, err
	}
	vers, err := call.Body.GetUint32()
	if err != nil {
		return nil, err
	}
	if _, err := call.Body.GetUint32(); err != nil { // prot, unused for lookup
		return nil, err
	}
	if _, err := call.Body.GetUint32(); err != nil { // port, unused in the request
		return nil, err
	}

	port := p.ports[[2]uint32{prog, vers}]

	e := NewEncoder()
	e.PutUint32(port)
	return e.Bytes(), nil
}

// handlePortmapDump always answers with an empty mapping list: this
// server does not maintain a broadcastable registry beyond the three
// programs it co-hosts (§4.7).
func handlePortmapDump(cc *ConnContext, call *Call) ([]byte, error) {
	e := NewEncoder()
	e.PutBool(false) // end of pmaplist
	return e.Bytes(), nil
}
