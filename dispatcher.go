package nfsd3

import "fmt"

// ProcHandler handles one decoded RPC call for a single (program,
// version, procedure) triple. It returns the fully XDR-encoded
// procedure reply body (which, for Mount/NFS, begins with the
// procedure's own status field) or a structural error, which the
// dispatcher turns into GARBAGE_ARGS (§4.3, §4.4, §7 layer 2).
type ProcHandler func(cc *ConnContext, call *Call) ([]byte, error)

// program is one entry in the dispatcher's static registry: a
// version range and a table of procedure handlers (§4.4).
type program struct {
	versionLow, versionHigh uint32
	procs                   map[uint32]ProcHandler
}

// Dispatcher routes (program, version, procedure) triples to
// handlers. It is pure transformation over a decoded Call — no I/O of
// its own — so an in-memory harness can drive it directly (§4.4).
type Dispatcher struct {
	programs map[uint32]*program
}

// NewDispatcher returns an empty registry; callers add programs with
// Register.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{programs: make(map[uint32]*program)}
}

// Register adds or replaces the procedure table for one (program,
// version range).
func (d *Dispatcher) Register(prog, versionLow, versionHigh uint32, procs map[uint32]ProcHandler) {
	d.programs[prog] = &program{versionLow: versionLow, versionHigh: versionHigh, procs: procs}
}

// Dispatch decodes call.Program/Version/Procedure against the
// registry and produces a complete Reply, applying the version
// negotiation and auth policy of §4.3: unknown program -> PROG_UNAVAIL,
// version outside range -> PROG_MISMATCH with [low, high], unknown
// procedure -> PROC_UNAVAIL, handler decode failure -> GARBAGE_ARGS.
func (d *Dispatcher) Dispatch(cc *ConnContext, call *Call) *Reply {
	if rej := authenticate(call); rej != nil {
		return rej
	}

	prog, ok := d.programs[call.Program]
	if !ok {
		return acceptedError(call.Xid, AcceptProgUnavail)
	}
	if call.Version < prog.versionLow || call.Version > prog.versionHigh {
		return progMismatch(call.Xid, prog.versionLow, prog.versionHigh)
	}
	handler, ok := prog.procs[call.Procedure]
	if !ok {
		return acceptedError(call.Xid, AcceptProcUnavail)
	}

	body, err := handler(cc, call)
	if err != nil {
		if IsParseError(err) {
			return acceptedError(call.Xid, AcceptGarbageArgs)
		}
		if cc.Server != nil {
			cc.Server.logger.Error("handler failed",
				LogField{Key: "proc", Value: fmt.Sprintf("%d.%d.%d", call.Program, call.Version, call.Procedure)},
				LogField{Key: "error", Value: err})
		}
		return acceptedError(call.Xid, AcceptSystemErr)
	}
	return acceptedReply(call.Xid, body)
}
