package websocket

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	ws "github.com/coder/websocket"

	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
)

// DefaultMaxMessageSize is the read limit per frame.
const DefaultMaxMessageSize = 1 << 20

// ServerConfig configures a WebSocket server.
type ServerConfig struct {
	Addr string
	Sink protocol.Sink

	// TLSConfig, when set, serves wss://.
	TLSConfig *tls.Config

	QueueSize      int
	MaxMessageSize int64
	DrainTimeout   time.Duration
	Logger         *slog.Logger
}

// Server accepts WebSocket upgrades on any path.
type Server struct {
	cfg     ServerConfig
	log     *slog.Logger
	lc      protocol.Lifecycle
	manager *ConnectionManager

	mu       sync.Mutex
	httpSrv  *http.Server
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
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	log := cfg.Logger.With("handler", protocol.HandlerID(protocol.ProtocolWebSocket, protocol.RoleServer, cfg.Addr))
	return &Server{
		cfg:     cfg,
		log:     log,
		manager: newConnectionManager(cfg.Sink, cfg.QueueSize, cfg.DrainTimeout, log),
	}
}

// Metadata implements protocol.Handler.
func (s *Server) Metadata() protocol.Metadata {
	return protocol.Metadata{
		ID:              protocol.HandlerID(protocol.ProtocolWebSocket, protocol.RoleServer, s.cfg.Addr),
		Protocol:        protocol.ProtocolWebSocket,
		Role:            protocol.RoleServer,
		TransportType:   protocol.TransportWebSocket,
		ConnectionModel: protocol.ConnectionModelStream,
		Address:         s.cfg.Addr,
	}
}

// Name implements protocol.Handler.
func (s *Server) Name() string {
	return protocol.HandlerName(protocol.ProtocolWebSocket, protocol.RoleServer)
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

// URL returns the ws:// or wss:// URL clients can dial, or "" before Start.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	if s.cfg.TLSConfig != nil {
		return "wss://" + addr
	}
	return "ws://" + addr
}

// Start binds the listener and serves upgrades in the background.
func (s *Server) Start(ctx context.Context) error {
	if err := s.lc.BeginStart(); err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		s.lc.FailStart()
		return &protocol.StartError{Protocol: protocol.ProtocolWebSocket, Role: protocol.RoleServer, Addr: s.cfg.Addr, Err: err}
	}
	if s.cfg.TLSConfig != nil {
		ln = tls.NewListener(ln, s.cfg.TLSConfig)
	}

	httpSrv := &http.Server{
		Handler:           http.HandlerFunc(s.handleUpgrade),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelDebug),
	}

	s.mu.Lock()
	s.httpSrv = httpSrv
	s.addr = ln.Addr().String()
	s.stop = make(chan struct{}, 1)
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	s.manager.gate.Open()
	s.lc.Started()
	s.log.Info("listening", "url", s.URL())

	go s.serve(httpSrv, ln, s.stop, s.loopDone)
	return nil
}

func (s *Server) serve(httpSrv *http.Server, ln net.Listener, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	go func() {
		<-stop
		_ = httpSrv.Close()
	}()

	if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("serve failed", "error", err)
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    ws.CompressionDisabled,
	})
	if err != nil {
		s.log.Debug("upgrade failed", "peer", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(s.cfg.MaxMessageSize)

	info := protocol.ConnectionInfo{
		ID:          r.RemoteAddr,
		RemoteAddr:  r.RemoteAddr,
		ConnectedAt: time.Now(),
	}
	s.log.Debug("accepted connection", "peer", info.ID, "path", r.URL.Path)
	s.manager.add(info, coderConn{conn: conn}, true)
}

// Stop fires the control signal, waits for the listener to close, then lets
// every peer flush and close.
func (s *Server) Stop(ctx context.Context) error {
	if !s.lc.BeginStop() {
		return nil
	}
	defer s.lc.Stopped()

	s.mu.Lock()
	stop, loopDone := s.stop, s.loopDone
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(stop) })

	select {
	case <-loopDone:
	case <-ctx.Done():
	}

	err := s.manager.shutdown(ctx)
	s.log.Info("stopped")
	return err
}

// Send enqueues content for the peer named by target.
func (s *Server) Send(content protocol.Content, target string) error {
	if !s.lc.Running() {
		return protocol.ErrNotRunning
	}
	return s.manager.send(content, target)
}

// Broadcast enqueues content for every live peer.
func (s *Server) Broadcast(content protocol.Content) (int, error) {
	if !s.lc.Running() {
		return 0, protocol.ErrNotRunning
	}
	return s.manager.broadcast(content)
}

// Connections implements protocol.Handler.
func (s *Server) Connections() []protocol.ConnectionInfo {
	return s.manager.peers.Snapshot()
}
