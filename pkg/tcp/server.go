package tcp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
)

// ServerConfig configures a TCP server.
type ServerConfig struct {
	// Addr is the listen address. Port 0 picks a free port.
	Addr string

	// Sink receives every message the server produces.
	Sink protocol.Sink

	// QueueSize is the per-peer outbound queue depth.
	QueueSize int

	// DrainTimeout bounds how long Stop lets queued writes flush.
	DrainTimeout time.Duration

	Logger *slog.Logger
}

// Server is a multi-peer TCP server.
type Server struct {
	cfg     ServerConfig
	log     *slog.Logger
	lc      protocol.Lifecycle
	streams *streams

	mu       sync.Mutex
	ln       net.Listener
	addr     string
	stop     chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
}

var (
	_ protocol.Handler     = (*Server)(nil)
	_ protocol.Broadcaster = (*Server)(nil)
	_ protocol.Addressable = (*Server)(nil)
)

// NewServer creates an idle server. No network I/O happens until Start.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	log := cfg.Logger.With("handler", protocol.HandlerID(protocol.ProtocolTCP, protocol.RoleServer, cfg.Addr))
	return &Server{
		cfg:     cfg,
		log:     log,
		streams: newStreams(protocol.ProtocolTCP, cfg.Sink, cfg.QueueSize, cfg.DrainTimeout, log),
	}
}

// Metadata implements protocol.Handler.
func (s *Server) Metadata() protocol.Metadata {
	return protocol.Metadata{
		ID:              protocol.HandlerID(protocol.ProtocolTCP, protocol.RoleServer, s.cfg.Addr),
		Protocol:        protocol.ProtocolTCP,
		Role:            protocol.RoleServer,
		TransportType:   protocol.TransportTCP,
		ConnectionModel: protocol.ConnectionModelStream,
		Address:         s.cfg.Addr,
	}
}

// Name implements protocol.Handler.
func (s *Server) Name() string {
	return protocol.HandlerName(protocol.ProtocolTCP, protocol.RoleServer)
}

// IsRunning implements protocol.Handler.
func (s *Server) IsRunning() bool {
	return s.lc.Running()
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the listener and spawns the accept loop.
func (s *Server) Start(ctx context.Context) error {
	if err := s.lc.BeginStart(); err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		s.lc.FailStart()
		return &protocol.StartError{
			Protocol: protocol.ProtocolTCP,
			Role:     protocol.RoleServer,
			Addr:     s.cfg.Addr,
			Err:      err,
		}
	}

	s.mu.Lock()
	s.ln = ln
	s.addr = ln.Addr().String()
	s.stop = make(chan struct{}, 1)
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	s.streams.gate.Open()
	s.lc.Started()
	s.log.Info("listening", "addr", s.addr)

	go s.acceptLoop(ln, s.stop, s.loopDone)
	return nil
}

// acceptLoop waits on the next connection and the control signal. The signal
// closes the listener, which unblocks Accept.
func (s *Server) acceptLoop(ln net.Listener, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	go func() {
		<-stop
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("accept failed", "error", err)
			// Back off briefly so a persistent error such as EMFILE does not spin.
			time.Sleep(50 * time.Millisecond)
			continue
		}
		s.log.Debug("accepted connection", "peer", conn.RemoteAddr().String())
		s.streams.serve(conn)
	}
}

// Stop fires the control signal, waits for the accept loop, then lets every
// peer flush its queue and close. It is a no-op unless the server is running.
func (s *Server) Stop(ctx context.Context) error {
	if !s.lc.BeginStop() {
		return nil
	}
	defer s.lc.Stopped()

	s.mu.Lock()
	stop, loopDone := s.stop, s.loopDone
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(stop) })
	// The signal closes the listener, so the accept loop exits promptly.
	<-loopDone

	err := s.streams.shutdown(ctx)
	s.log.Info("stopped")
	return err
}

// Send enqueues content for the peer named by target.
func (s *Server) Send(content protocol.Content, target string) error {
	if !s.lc.Running() {
		return protocol.ErrNotRunning
	}
	return s.streams.send(content, target)
}

// Broadcast enqueues content for every live peer.
func (s *Server) Broadcast(content protocol.Content) (int, error) {
	if !s.lc.Running() {
		return 0, protocol.ErrNotRunning
	}
	return s.streams.broadcast(content)
}

// Connections implements protocol.Handler.
func (s *Server) Connections() []protocol.ConnectionInfo {
	return s.streams.peers.Snapshot()
}
