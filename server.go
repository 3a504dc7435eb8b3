package nfsd3

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/alitto/pond"
)

// ServerOptions configures a Server. A zero ServerOptions is valid;
// every field has a usable default applied by New.
type ServerOptions struct {
	// MaxRead and MaxWrite cap the payload size of a single READ reply
	// or WRITE request, advertised back to clients via FSINFO (§4.6
	// FSINFO, READ, WRITE).
	MaxRead  uint32
	MaxWrite uint32

	// MaxConnWorkers bounds how many accepted connections the server
	// services concurrently; additional connections queue for a free
	// worker (§5 concurrency model).
	MaxConnWorkers int

	// NFSPort, MountPort, and PortmapPort are advertised by the
	// Portmapper GETPORT answers this process gives about itself; NFS
	// and Mount both default to the well-known NFS port 2049 and
	// Portmapper to its well-known port 111.
	NFSPort     uint32
	MountPort   uint32
	PortmapPort uint32

	Logger  Logger
	Metrics *Metrics
}

const (
	defaultMaxRead      = 1 << 20 // 1 MiB
	defaultMaxWrite     = 1 << 20
	defaultConnWorkers  = 64
	defaultNFSPort      = 2049
	defaultMountPort    = 2049
	defaultPortmapPort  = 111
)

func (o ServerOptions) withDefaults() ServerOptions {
	if o.MaxRead == 0 {
		o.MaxRead = defaultMaxRead
	}
	if o.MaxWrite == 0 {
		o.MaxWrite = defaultMaxWrite
	}
	if o.MaxConnWorkers == 0 {
		o.MaxConnWorkers = defaultConnWorkers
	}
	if o.NFSPort == 0 {
		o.NFSPort = defaultNFSPort
	}
	if o.MountPort == 0 {
		o.MountPort = defaultMountPort
	}
	if o.PortmapPort == 0 {
		o.PortmapPort = defaultPortmapPort
	}
	if o.Logger == nil {
		o.Logger = NewNoopLogger()
	}
	if o.Metrics == nil {
		o.Metrics = &Metrics{}
	}
	return o
}

// Server holds the process-lifetime state shared by every connection:
// the backing FileSystem, the export table, the generation token that
// stamps every file handle this process issues, and the write
// verifier clients use to detect a restart between WRITE and COMMIT
// (§3 Lifecycles, §5 shared state). It carries no per-client session,
// lock, or open-file table — the VFS owns all of that.
type Server struct {
	vfs     FileSystem
	options ServerOptions
	logger  Logger
	metrics *Metrics

	generation    uint64
	writeVerifier [8]byte

	mu      sync.RWMutex
	exports []Export

	dispatcher *Dispatcher
	pool       *pond.WorkerPool
}

// New builds a Server atop fs. The generation token is drawn fresh
// from crypto/rand: a dependency here would be pure ceremony over
// eight bytes read once at startup, so this is the one ambient
// concern this repository satisfies from the standard library rather
// than the example pack (see DESIGN.md). The write verifier WRITE and
// COMMIT exchange is defined as this same generation value (§4.6
// WRITE, §9 Open Question (b)): a restart mints a new generation, so
// a mismatched verifier and a stale file handle are detected by
// exactly the same mechanism.
func New(fs FileSystem, opts ServerOptions) (*Server, error) {
	opts = opts.withDefaults()

	var genBuf [8]byte
	if _, err := rand.Read(genBuf[:]); err != nil {
		return nil, fmt.Errorf("nfsd3: generating server generation token: %w", err)
	}

	s := &Server{
		vfs:        newCachingFS(fs, 0),
		options:    opts,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		generation: binary.BigEndian.Uint64(genBuf[:]),
		exports:    append([]Export(nil), fs.Exports()...),
	}
	copy(s.writeVerifier[:], genBuf[:])

	s.pool = pond.New(opts.MaxConnWorkers, opts.MaxConnWorkers*4)
	s.dispatcher = s.buildDispatcher()
	return s, nil
}

// AddExport registers an additional mountable root beyond whatever the
// FileSystem advertised at construction time. A path already present
// — including one the FileSystem itself advertised via Exports — is
// left as is rather than duplicated, since handleExport (mount.go)
// reports s.exports verbatim and a repeated path would be offered to
// clients twice.
func (s *Server) AddExport(path string, rootID FileId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.exports {
		if e.Path == path {
			return
		}
	}
	s.exports = append(s.exports, Export{Path: path, RootId: rootID})
}

func (s *Server) findExport(path string) (Export, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.exports {
		if e.Path == path {
			return e, true
		}
	}
	return Export{}, false
}

func (s *Server) buildDispatcher() *Dispatcher {
	d := NewDispatcher()
	pm := newPortmapService(s.options.NFSPort, s.options.MountPort, s.options.PortmapPort)
	d.Register(PortmapProgram, PortmapVersion, PortmapVersion, pm.procTable())
	d.Register(MountProgram, MountV3, MountV3, mountProcTable())
	d.Register(NFSProgram, NFSV3, NFSV3, nfsProcTable())
	return d
}

// ListenAndServe accepts TCP connections on addr and serves Portmapper,
// Mount, and NFSv3 calls until ctx is cancelled or the listener fails.
// Each connection is handed to the worker pool as a single task that
// reads, dispatches, and replies to calls strictly in arrival order
// (§5: "within one connection, replies are sent in the order their
// calls were received"); distinct connections make independent,
// concurrent progress.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("nfsd3: listen on %s: %w", addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("nfsd3: accept: %w", err)
			}
		}
		s.metrics.recordConnection()
		s.pool.Submit(func() { s.serveConn(ctx, conn) })
	}
}

// serveConn runs one connection's serial request/reply loop until the
// peer disconnects, the record framing fails, or ctx is cancelled.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	cc := &ConnContext{Server: s, Peer: conn.RemoteAddr(), ctx: connCtx}
	reader := NewRecordReader(conn)
	writer := NewRecordWriter(conn)

	for {
		record, err := reader.ReadRecord()
		if err != nil {
			return
		}

		call, err := DecodeCall(record)
		if err != nil {
			// Malformed beyond the RPC header itself: no xid to reply
			// to, so the only correct response is to drop the
			// connection (§7 layer 1).
			s.logger.Warn("dropping connection on malformed call", LogField{Key: "error", Value: err})
			return
		}

		reply := s.dispatcher.Dispatch(cc, call)
		if reply.ReplyState != MsgAccepted || reply.AcceptState != AcceptSuccess {
			s.metrics.recordError()
		} else if call.Program == NFSProgram {
			s.metrics.recordCall(call.Procedure)
		}

		if err := writer.WriteRecord(EncodeReply(reply)); err != nil {
			return
		}
	}
}
