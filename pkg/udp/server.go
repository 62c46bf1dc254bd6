package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
	"github.com/punisher1/nt/pkg/util"
)

// Defaults.
const (
	DefaultIdleTimeout  = 2 * time.Minute
	DefaultPollInterval = 250 * time.Millisecond
	MaxDatagramSize     = 65535
)

// ServerConfig configures a UDP server.
type ServerConfig struct {
	Addr string
	Sink protocol.Sink

	// IdleTimeout expires peers that have been silent this long.
	IdleTimeout time.Duration

	// PollInterval bounds how long the read loop blocks before it checks
	// the control signal and idle peers.
	PollInterval time.Duration

	Logger *slog.Logger
}

type peer struct {
	addr     *net.UDPAddr
	lastSeen atomic.Int64
}

func (p *peer) touch(now time.Time) {
	p.lastSeen.Store(now.UnixNano())
}

func (p *peer) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, p.lastSeen.Load()))
}

// Server is a UDP server. Each distinct source address is one peer.
type Server struct {
	cfg   ServerConfig
	log   *slog.Logger
	lc    protocol.Lifecycle
	gate  *protocol.Gate
	peers *protocol.Peers[*peer]

	mu       sync.Mutex
	conn     *net.UDPConn
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

// NewServer creates an idle server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Server{
		cfg:   cfg,
		log:   cfg.Logger.With("handler", protocol.HandlerID(protocol.ProtocolUDP, protocol.RoleServer, cfg.Addr)),
		gate:  protocol.NewGate(cfg.Sink),
		peers: protocol.NewPeers[*peer](),
	}
}

// Metadata implements protocol.Handler.
func (s *Server) Metadata() protocol.Metadata {
	return protocol.Metadata{
		ID:              protocol.HandlerID(protocol.ProtocolUDP, protocol.RoleServer, s.cfg.Addr),
		Protocol:        protocol.ProtocolUDP,
		Role:            protocol.RoleServer,
		TransportType:   protocol.TransportUDP,
		ConnectionModel: protocol.ConnectionModelDatagram,
		Address:         s.cfg.Addr,
	}
}

// Name implements protocol.Handler.
func (s *Server) Name() string {
	return protocol.HandlerName(protocol.ProtocolUDP, protocol.RoleServer)
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

// Start binds the socket and spawns the read loop.
func (s *Server) Start(ctx context.Context) error {
	if err := s.lc.BeginStart(); err != nil {
		return err
	}

	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", s.cfg.Addr)
	if err != nil {
		s.lc.FailStart()
		return &protocol.StartError{Protocol: protocol.ProtocolUDP, Role: protocol.RoleServer, Addr: s.cfg.Addr, Err: err}
	}
	conn := pc.(*net.UDPConn)

	s.mu.Lock()
	s.conn = conn
	s.addr = conn.LocalAddr().String()
	s.stop = make(chan struct{}, 1)
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	s.gate.Open()
	s.lc.Started()
	s.log.Info("listening", "addr", s.addr)

	go s.readLoop(conn, s.stop, s.loopDone)
	return nil
}

func (s *Server) readLoop(conn *net.UDPConn, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, MaxDatagramSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PollInterval))
		n, src, err := conn.ReadFromUDP(buf)
		now := time.Now()
		if err != nil {
			switch {
			case errors.Is(err, os.ErrDeadlineExceeded):
			case errors.Is(err, net.ErrClosed):
				return
			default:
				s.log.Warn("read failed", "protocol", protocol.ProtocolUDP, "error", err)
			}
			s.expireIdle(now)
			continue
		}

		p := s.observe(src, now)
		if n > 0 {
			s.gate.Emit(protocol.NewReceived(protocol.Text(util.BytesToString(buf[:n])), &p))
		}
		s.expireIdle(now)
	}
}

// observe returns the peer for src, registering it on first sight.
func (s *Server) observe(src *net.UDPAddr, now time.Time) protocol.ConnectionInfo {
	id := src.String()
	if p, ok := s.peers.Lookup(id); ok {
		p.touch(now)
		info, _ := s.peers.Get(id)
		return info
	}

	p := &peer{addr: src}
	p.touch(now)
	info := protocol.ConnectionInfo{ID: id, RemoteAddr: id, ConnectedAt: now}
	// Only the read loop adds peers, so Add cannot collide.
	_ = s.peers.Add(info, p)
	s.log.Debug("new peer", "peer", id)
	s.gate.Emit(protocol.NewReceived(protocol.Connected(), &info))
	return info
}

func (s *Server) expireIdle(now time.Time) {
	s.peers.Range(func(info protocol.ConnectionInfo, p *peer) bool {
		if p.idleSince(now) >= s.cfg.IdleTimeout {
			if _, ok := s.peers.Remove(info.ID); ok {
				s.log.Debug("peer expired", "peer", info.ID)
				s.gate.Emit(protocol.NewReceived(protocol.Disconnected(), &info))
			}
		}
		return true
	})
}

// Stop fires the control signal, waits for the read loop, announces the
// remaining peers as disconnected and closes the socket.
func (s *Server) Stop(ctx context.Context) error {
	if !s.lc.BeginStop() {
		return nil
	}
	defer s.lc.Stopped()

	s.mu.Lock()
	conn, stop, loopDone := s.conn, s.stop, s.loopDone
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(stop) })

	var err error
	select {
	case <-loopDone:
	case <-ctx.Done():
		err = ctx.Err()
	}
	closeErr := conn.Close()

	for _, info := range s.peers.Snapshot() {
		if _, ok := s.peers.Remove(info.ID); ok {
			s.gate.Emit(protocol.NewReceived(protocol.Disconnected(), &info))
		}
	}
	s.gate.Close()
	s.log.Info("stopped")

	if err != nil {
		return err
	}
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return closeErr
	}
	return nil
}

// Send writes content to the peer named by target.
func (s *Server) Send(content protocol.Content, target string) error {
	if !s.lc.Running() {
		return protocol.ErrNotRunning
	}
	p, ok := s.peers.Lookup(target)
	if !ok {
		return protocol.ErrConnectionNotFound
	}
	return s.writeTo(p, target, content)
}

// Broadcast writes content to every live peer.
func (s *Server) Broadcast(content protocol.Content) (int, error) {
	if !s.lc.Running() {
		return 0, protocol.ErrNotRunning
	}
	if _, err := content.Bytes(); err != nil {
		return 0, err
	}
	sent := 0
	s.peers.Range(func(info protocol.ConnectionInfo, p *peer) bool {
		if s.writeTo(p, info.ID, content) == nil {
			sent++
		}
		return true
	})
	return sent, nil
}

func (s *Server) writeTo(p *peer, id string, content protocol.Content) error {
	data, err := content.Bytes()
	if err != nil {
		return err
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if _, err := conn.WriteToUDP(data, p.addr); err != nil {
		s.log.Warn("write failed", "peer", id, "protocol", protocol.ProtocolUDP, "error", err)
		return fmt.Errorf("write to %s: %w", id, err)
	}
	if info, ok := s.peers.Get(id); ok {
		s.gate.Emit(protocol.NewSent(content, &info))
	}
	return nil
}

// Connections implements protocol.Handler.
func (s *Server) Connections() []protocol.ConnectionInfo {
	return s.peers.Snapshot()
}
