package nfsd3

import (
	"context"
	"net"
)

// ConnContext is the per-connection state the dispatcher and handlers
// see for one call: the peer address plus a reference to the shared,
// immutable server state (export set, generation, VFS). It carries no
// session, lock, or open-file table of its own (§3 Lifecycles, §5
// shared state) — only the TCP peer identity and a context cancelled
// when the connection closes.
type ConnContext struct {
	Server *Server
	Peer   net.Addr
	ctx    context.Context
}

// Context returns the connection-scoped context; it is cancelled at
// the connection's next suspension point after the peer closes the
// socket (§5 Cancellation).
func (c *ConnContext) Context() context.Context { return c.ctx }
