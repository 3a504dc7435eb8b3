package nfsd3

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeCall(xid, prog, vers, proc uint32, authFlavor uint32, body []byte) []byte {
	e := NewEncoder()
	e.PutUint32(xid)
	e.PutUint32(rpcCall)
	e.PutUint32(rpcVersion2)
	e.PutUint32(prog)
	e.PutUint32(vers)
	e.PutUint32(proc)
	e.PutUint32(authFlavor) // credential flavor
	e.PutOpaque(nil)        // credential body
	e.PutUint32(AuthNone)   // verifier flavor
	e.PutOpaque(nil)        // verifier body
	e.buf = append(e.buf, body...)
	return e.Bytes()
}

func TestDecodeCallRoundTrip(t *testing.T) {
	raw := encodeCall(7, NFSProgram, NFSV3, NFSPROC3_GETATTR, AuthNone, []byte{1, 2, 3, 4})
	call, err := DecodeCall(raw)
	require.NoError(t, err)
	require.Equal(t, uint32(7), call.Xid)
	require.Equal(t, uint32(NFSProgram), call.Program)
	require.Equal(t, uint32(NFSV3), call.Version)
	require.Equal(t, uint32(NFSPROC3_GETATTR), call.Procedure)
	require.Equal(t, 4, call.Body.Remaining())
}

func TestAuthenticateRejectsUnknownFlavor(t *testing.T) {
	call := &Call{Xid: 1, Credential: Auth{Flavor: 99}}
	reply := authenticate(call)
	require.NotNil(t, reply)
	require.Equal(t, uint32(MsgDenied), reply.ReplyState)
	require.Equal(t, uint32(RejectAuthError), reply.RejectState)
	require.Equal(t, uint32(AuthRejectCred), reply.AuthStat)
}

func TestAuthenticateAcceptsNoneAndUnix(t *testing.T) {
	for _, flavor := range []uint32{AuthNone, AuthUnix} {
		call := &Call{Credential: Auth{Flavor: flavor}}
		require.Nil(t, authenticate(call))
	}
}

func TestEncodeReplyAcceptedSuccess(t *testing.T) {
	r := acceptedReply(5, []byte{9, 9})
	out := EncodeReply(r)
	d := NewDecoder(out)
	xid, _ := d.GetUint32()
	msgType, _ := d.GetUint32()
	replyState, _ := d.GetUint32()
	require.Equal(t, uint32(5), xid)
	require.Equal(t, uint32(rpcReply), msgType)
	require.Equal(t, uint32(MsgAccepted), replyState)
}

func TestEncodeReplyProgMismatchCarriesRange(t *testing.T) {
	r := progMismatch(1, 2, 4)
	out := EncodeReply(r)
	d := NewDecoder(out)
	d.GetUint32() // xid
	d.GetUint32() // msg type
	d.GetUint32() // reply state
	d.GetUint32() // verifier flavor
	d.GetOpaque(0)
	acceptState, _ := d.GetUint32()
	low, _ := d.GetUint32()
	high, _ := d.GetUint32()
	require.Equal(t, uint32(AcceptProgMismatch), acceptState)
	require.Equal(t, uint32(2), low)
	require.Equal(t, uint32(4), high)
}
