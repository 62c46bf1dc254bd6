package httpproto

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
	nttls "github.com/punisher1/nt/pkg/tls"
)

// Server defaults.
const (
	DefaultResponseTimeout = 30 * time.Second
	DefaultStatus          = http.StatusOK
	DefaultDrainTimeout    = 2 * time.Second
)

// ServerConfig configures an HTTP server handler.
type ServerConfig struct {
	// Protocol selects the HTTP version: ProtocolHTTP, ProtocolHTTP2 or
	// ProtocolHTTP3.
	Protocol protocol.Protocol
	Addr     string
	Sink     protocol.Sink

	// TLSConfig enables https. HTTP/3 generates a self-signed certificate
	// when it is nil.
	TLSConfig *tls.Config

	// ResponseTimeout is how long a request waits for a user response
	// before DefaultStatus is sent with an empty body.
	ResponseTimeout time.Duration
	DefaultStatus   int
	DrainTimeout    time.Duration
	Logger          *slog.Logger
}

// pendingRequest is one in-flight request waiting for its response.
type pendingRequest struct {
	info  protocol.ConnectionInfo
	reply chan protocol.Content

	mu       sync.Mutex
	answered bool
}

// claim marks the request answered. It returns false if it already was.
func (p *pendingRequest) claim() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.answered {
		return false
	}
	p.answered = true
	return true
}

func (p *pendingRequest) answer(content protocol.Content) error {
	if !p.claim() {
		return protocol.ErrConnectionBusy
	}
	p.reply <- content
	return nil
}

// Server is an HTTP/1.1, HTTP/2 or HTTP/3 server handler. Each request is a
// peer that lives until it has been answered.
type Server struct {
	cfg   ServerConfig
	log   *slog.Logger
	lc    protocol.Lifecycle
	peers *protocol.Peers[*pendingRequest]
	gate  *protocol.Gate
	wg    sync.WaitGroup

	mu       sync.Mutex
	ln       listener
	addr     string
	closing  bool
	stop     chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
}

var (
	_ protocol.Handler     = (*Server)(nil)
	_ protocol.Broadcaster = (*Server)(nil)
	_ protocol.Addressable = (*Server)(nil)
	_ http.Handler         = (*Server)(nil)
)

// NewServer creates an idle server. An empty Protocol means HTTP/1.1.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Protocol == "" {
		cfg.Protocol = protocol.ProtocolHTTP
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = DefaultResponseTimeout
	}
	if cfg.DefaultStatus == 0 {
		cfg.DefaultStatus = DefaultStatus
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	return &Server{
		cfg:   cfg,
		log:   cfg.Logger.With("handler", protocol.HandlerID(cfg.Protocol, protocol.RoleServer, cfg.Addr)),
		peers: protocol.NewPeers[*pendingRequest](),
		gate:  protocol.NewGate(cfg.Sink),
	}
}

// Metadata implements protocol.Handler.
func (s *Server) Metadata() protocol.Metadata {
	return protocol.Metadata{
		ID:              protocol.HandlerID(s.cfg.Protocol, protocol.RoleServer, s.cfg.Addr),
		Protocol:        s.cfg.Protocol,
		Role:            protocol.RoleServer,
		TransportType:   transportOf(s.cfg.Protocol),
		ConnectionModel: protocol.ConnectionModelMultiplexed,
		Address:         s.cfg.Addr,
	}
}

func transportOf(p protocol.Protocol) protocol.TransportType {
	switch p {
	case protocol.ProtocolHTTP2:
		return protocol.TransportHTTP2
	case protocol.ProtocolHTTP3:
		return protocol.TransportQUIC
	default:
		return protocol.TransportHTTP1
	}
}

// Name implements protocol.Handler.
func (s *Server) Name() string {
	return protocol.HandlerName(s.cfg.Protocol, protocol.RoleServer)
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

// URL returns the base URL clients can request, or "" before Start.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.scheme() + "://" + s.addr
}

// Start binds the listener and serves requests in the background.
func (s *Server) Start(ctx context.Context) error {
	if err := s.lc.BeginStart(); err != nil {
		return err
	}
	fail := func(err error) error {
		s.lc.FailStart()
		return &protocol.StartError{Protocol: s.cfg.Protocol, Role: protocol.RoleServer, Addr: s.cfg.Addr, Err: err}
	}

	tlsConf := s.cfg.TLSConfig
	if tlsConf == nil && s.cfg.Protocol == protocol.ProtocolHTTP3 {
		generated, err := nttls.ServerConfig(nttls.ServerOptions{Logger: s.log})
		if err != nil {
			return fail(err)
		}
		tlsConf = generated
	}

	ln, err := newListener(s.cfg.Protocol, tlsConf, s.log)
	if err != nil {
		s.lc.FailStart()
		return err
	}
	bound, err := ln.listen(ctx, s.cfg.Addr, s)
	if err != nil {
		return fail(err)
	}

	s.mu.Lock()
	s.ln = ln
	s.addr = bound
	s.closing = false
	s.stop = make(chan struct{})
	s.loopDone = make(chan struct{})
	loopDone := s.loopDone
	s.mu.Unlock()

	s.gate.Open()
	s.lc.Started()
	s.log.Info("listening", "url", s.URL())

	go func() {
		defer close(loopDone)
		if err := ln.serve(); err != nil {
			s.log.Error("serve failed", "error", err)
		}
	}()
	return nil
}

// ServeHTTP registers the request as a peer and holds it open until it is
// answered, times out, or the server stops.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		http.Error(w, "server stopping", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	stop := s.stop
	s.mu.Unlock()
	defer s.wg.Done()

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize))
	if err != nil {
		s.log.Debug("reading request body failed", "peer", r.RemoteAddr, "error", err)
	}

	req := &pendingRequest{
		info: protocol.ConnectionInfo{
			ID:          uuid.NewString(),
			RemoteAddr:  r.RemoteAddr,
			ConnectedAt: time.Now(),
		},
		reply: make(chan protocol.Content, 1),
	}
	if err := s.peers.Add(req.info, req); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	info := &req.info

	s.log.Debug("request", "peer", info.ID, "method", r.Method, "path", r.URL.Path, "proto", r.Proto)
	s.gate.Emit(protocol.NewReceived(protocol.Connected(), info))
	s.gate.Emit(protocol.NewReceived(protocol.Text(renderRequest(r, body)), info))

	timer := time.NewTimer(s.cfg.ResponseTimeout)
	defer timer.Stop()

	var (
		content protocol.Content
		status  = s.cfg.DefaultStatus
		user    bool
	)
	select {
	case content = <-req.reply:
		user = true
	case <-timer.C:
	case <-stop:
		status = http.StatusServiceUnavailable
	case <-r.Context().Done():
		status = 0
	}
	if !user && !req.claim() {
		// Send won the race against the timer.
		content = <-req.reply
		status = s.cfg.DefaultStatus
		user = true
	}
	s.peers.Remove(info.ID)

	switch {
	case status == 0:
		s.log.Debug("client went away", "peer", info.ID)
	case user:
		s.respond(w, status, content)
		s.gate.Emit(protocol.NewSent(content, info))
	default:
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(status)
		s.gate.Emit(protocol.NewSent(protocol.Text(statusLine(status)), info))
	}
	if f, ok := w.(http.Flusher); ok && status != 0 {
		f.Flush()
	}
	s.gate.Emit(protocol.NewReceived(protocol.Disconnected(), info))
}

func (s *Server) respond(w http.ResponseWriter, status int, content protocol.Content) {
	data, err := content.Bytes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeOf(content))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.log.Debug("writing response failed", "error", err)
	}
}

func statusLine(status int) string {
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}

// Stop answers pending requests with 503, waits for their handlers, then
// closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	if !s.lc.BeginStop() {
		return nil
	}
	defer s.lc.Stopped()

	s.mu.Lock()
	s.closing = true
	ln, stop, loopDone := s.ln, s.stop, s.loopDone
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(stop) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if cerr := ln.close(); cerr != nil {
		s.log.Debug("closing listener", "error", cerr)
	}
	select {
	case <-loopDone:
	case <-ctx.Done():
		err = ctx.Err()
	}

	s.gate.Close()
	s.log.Info("stopped")
	return err
}

// Send answers the pending request named by target. It returns
// ErrConnectionBusy when the request has already been answered.
func (s *Server) Send(content protocol.Content, target string) error {
	if !s.lc.Running() {
		return protocol.ErrNotRunning
	}
	if _, err := content.Bytes(); err != nil {
		return err
	}
	req, ok := s.peers.Lookup(target)
	if !ok {
		return protocol.ErrConnectionNotFound
	}
	return req.answer(content)
}

// Broadcast answers every pending request with the same content.
func (s *Server) Broadcast(content protocol.Content) (int, error) {
	if !s.lc.Running() {
		return 0, protocol.ErrNotRunning
	}
	if _, err := content.Bytes(); err != nil {
		return 0, err
	}
	sent := 0
	s.peers.Range(func(_ protocol.ConnectionInfo, req *pendingRequest) bool {
		if req.answer(content) == nil {
			sent++
		}
		return true
	})
	return sent, nil
}

// Connections returns the requests still waiting for a response.
func (s *Server) Connections() []protocol.ConnectionInfo {
	return s.peers.Snapshot()
}
