package nfsd3

import "fmt"

// ONC-RPC v2 message types (RFC 1831 §9).
const (
	rpcCall  = 0
	rpcReply = 1
)

// Reply states.
const (
	MsgAccepted = 0
	MsgDenied   = 1
)

// Accept states, returned when MsgAccepted.
const (
	AcceptSuccess      = 0
	AcceptProgUnavail  = 1
	AcceptProgMismatch = 2
	AcceptProcUnavail  = 3
	AcceptGarbageArgs  = 4
	AcceptSystemErr    = 5
)

// Reject states, returned when MsgDenied.
const (
	RejectRPCMismatch = 0
	RejectAuthError   = 1
)

// Auth rejection reasons (a subset of RFC 1831's auth_stat).
const (
	AuthBadCred     = 1
	AuthRejectCred  = 2
	AuthTooWeak     = 5
)

// RPC authentication flavors this server recognizes. Any other flavor
// is rejected with AuthRejectCred, per spec.md §4.3.
const (
	AuthNone = 0
	AuthUnix = 1
)

const rpcVersion2 = 2

// Call is a decoded ONC-RPC CALL header plus its credential/verifier,
// with the argument body left undecoded for the procedure handler.
type Call struct {
	Xid        uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Credential Auth
	Verifier   Auth
	Body       *Decoder
}

// Auth carries an RPC authentication flavor and its opaque body.
type Auth struct {
	Flavor uint32
	Body   []byte
}

// DecodeCall decodes one RPC CALL message (already stripped of record
// marking) from raw bytes.
func DecodeCall(raw []byte) (*Call, error) {
	d := NewDecoder(raw)

	xid, err := d.GetUint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode xid: %w", err)
	}
	msgType, err := d.GetUint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode msg type: %w", err)
	}
	if msgType != rpcCall {
		return nil, fmt.Errorf("rpc: expected CALL, got message type %d", msgType)
	}
	rpcvers, err := d.GetUint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode rpcvers: %w", err)
	}
	if rpcvers != rpcVersion2 {
		return nil, fmt.Errorf("rpc: unsupported rpc version %d", rpcvers)
	}
	prog, err := d.GetUint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode program: %w", err)
	}
	vers, err := d.GetUint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode version: %w", err)
	}
	proc, err := d.GetUint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: decode procedure: %w", err)
	}
	cred, err := decodeAuth(d)
	if err != nil {
		return nil, fmt.Errorf("rpc: decode credential: %w", err)
	}
	verf, err := decodeAuth(d)
	if err != nil {
		return nil, fmt.Errorf("rpc: decode verifier: %w", err)
	}

	return &Call{
		Xid:        xid,
		Program:    prog,
		Version:    vers,
		Procedure:  proc,
		Credential: cred,
		Verifier:   verf,
		Body:       d,
	}, nil
}

func decodeAuth(d *Decoder) (Auth, error) {
	flavor, err := d.GetUint32()
	if err != nil {
		return Auth{}, err
	}
	body, err := d.GetOpaque(MaxRPCAuthLength)
	if err != nil {
		return Auth{}, err
	}
	return Auth{Flavor: flavor, Body: body}, nil
}

// Reply is the outcome of dispatching one Call: either an accepted
// reply (possibly with a non-success accept state) or a denial.
// Exactly one of the state-specific fields is meaningful, selected by
// ReplyState/AcceptState as in RFC 1831's discriminated union.
type Reply struct {
	Xid        uint32
	ReplyState uint32 // MsgAccepted or MsgDenied

	// Accepted branch.
	AcceptState uint32 // AcceptSuccess, AcceptProgMismatch, ...
	MismatchLow uint32 // valid only when AcceptState == AcceptProgMismatch
	MismatchHigh uint32
	Body        []byte // pre-encoded procedure-specific reply body

	// Denied branch.
	RejectState uint32 // RejectRPCMismatch or RejectAuthError
	AuthStat    uint32 // valid only when RejectState == RejectAuthError
}

// acceptedReply builds a Reply in the MsgAccepted/AcceptSuccess shape
// carrying body as the already-XDR-encoded procedure result.
func acceptedReply(xid uint32, body []byte) *Reply {
	return &Reply{Xid: xid, ReplyState: MsgAccepted, AcceptState: AcceptSuccess, Body: body}
}

// acceptedError builds a Reply whose accept_state is a non-success
// code (PROG_UNAVAIL, PROC_UNAVAIL, GARBAGE_ARGS, SYSTEM_ERR); these
// carry no body.
func acceptedError(xid uint32, state uint32) *Reply {
	return &Reply{Xid: xid, ReplyState: MsgAccepted, AcceptState: state}
}

func progMismatch(xid uint32, low, high uint32) *Reply {
	return &Reply{Xid: xid, ReplyState: MsgAccepted, AcceptState: AcceptProgMismatch, MismatchLow: low, MismatchHigh: high}
}

func deniedAuth(xid uint32, stat uint32) *Reply {
	return &Reply{Xid: xid, ReplyState: MsgDenied, RejectState: RejectAuthError, AuthStat: stat}
}

// EncodeReply XDR-encodes a Reply, including the verifier (always
// AUTH_NONE, per spec.md §4.3) and the accepted/denied discriminated
// union.
func EncodeReply(r *Reply) []byte {
	e := NewEncoder()
	e.PutUint32(r.Xid)
	e.PutUint32(rpcReply)
	e.PutUint32(r.ReplyState)

	switch r.ReplyState {
	case MsgDenied:
		e.PutUint32(r.RejectState)
		if r.RejectState == RejectAuthError {
			e.PutUint32(r.AuthStat)
		} else {
			// RPC-mismatch body: low/high supported rpcvers.
			e.PutUint32(rpcVersion2)
			e.PutUint32(rpcVersion2)
		}
		return e.Bytes()

	default: // MsgAccepted
		// verifier: always AUTH_NONE with an empty body.
		e.PutUint32(AuthNone)
		e.PutUint32(0)
		e.PutUint32(r.AcceptState)
		switch r.AcceptState {
		case AcceptProgMismatch:
			e.PutUint32(r.MismatchLow)
			e.PutUint32(r.MismatchHigh)
		case AcceptSuccess:
			if len(r.Body) > 0 {
				e.buf = append(e.buf, r.Body...)
			}
		}
		return e.Bytes()
	}
}

// authenticate applies the server's acceptance policy: AUTH_NONE and
// AUTH_UNIX pass through unexamined; every other flavor is denied.
// Returns nil when the call should proceed to dispatch.
func authenticate(call *Call) *Reply {
	switch call.Credential.Flavor {
	case AuthNone, AuthUnix:
		return nil
	default:
		return deniedAuth(call.Xid, AuthRejectCred)
	}
}
