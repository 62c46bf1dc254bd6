package websocket

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
)

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	// LocalAddr optionally binds the local side.
	LocalAddr string

	// Remote is a ws:// or wss:// URL, or a bare host:port.
	Remote string

	// Header is sent with the handshake.
	Header http.Header

	// TLSConfig is used for wss:// and makes a bare host:port dial wss.
	TLSConfig *tls.Config

	Sink             protocol.Sink
	QueueSize        int
	HandshakeTimeout time.Duration
	DrainTimeout     time.Duration
	Logger           *slog.Logger
}

// Client is a single-peer WebSocket client.
type Client struct {
	cfg     ClientConfig
	log     *slog.Logger
	lc      protocol.Lifecycle
	manager *ConnectionManager

	mu     sync.Mutex
	local  string
	peerID string
}

var (
	_ protocol.Handler     = (*Client)(nil)
	_ protocol.Addressable = (*Client)(nil)
)

// NewClient creates an idle client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	log := cfg.Logger.With("handler", protocol.HandlerID(protocol.ProtocolWebSocket, protocol.RoleClient, cfg.Remote))
	return &Client{
		cfg:     cfg,
		log:     log,
		manager: newConnectionManager(cfg.Sink, cfg.QueueSize, cfg.DrainTimeout, log),
	}
}

// Metadata implements protocol.Handler.
func (c *Client) Metadata() protocol.Metadata {
	return protocol.Metadata{
		ID:              protocol.HandlerID(protocol.ProtocolWebSocket, protocol.RoleClient, c.cfg.Remote),
		Protocol:        protocol.ProtocolWebSocket,
		Role:            protocol.RoleClient,
		TransportType:   protocol.TransportWebSocket,
		ConnectionModel: protocol.ConnectionModelStream,
		Address:         c.cfg.Remote,
	}
}

// Name implements protocol.Handler.
func (c *Client) Name() string {
	return protocol.HandlerName(protocol.ProtocolWebSocket, protocol.RoleClient)
}

// IsRunning implements protocol.Handler.
func (c *Client) IsRunning() bool {
	return c.lc.Running()
}

// Addr returns the local address of the connection, or "" before Start.
func (c *Client) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// NormalizeURL turns a bare host:port into a ws:// (or wss:// when secure)
// URL and validates explicit ones.
func NormalizeURL(remote string, secure bool) (string, error) {
	if !strings.Contains(remote, "://") {
		scheme := "ws"
		if secure {
			scheme = "wss"
		}
		remote = scheme + "://" + remote
	}
	u, err := url.Parse(remote)
	if err != nil {
		return "", err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", remote)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Start performs the handshake and spawns the peer tasks.
func (c *Client) Start(ctx context.Context) error {
	if err := c.lc.BeginStart(); err != nil {
		return err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		c.lc.FailStart()
		return &protocol.StartError{Protocol: protocol.ProtocolWebSocket, Role: protocol.RoleClient, Addr: c.cfg.Remote, Err: err}
	}

	remote := conn.RemoteAddr().String()
	c.mu.Lock()
	c.local = conn.LocalAddr().String()
	c.peerID = remote
	c.mu.Unlock()

	c.manager.gate.Open()
	c.lc.Started()
	c.log.Info("connected", "local", conn.LocalAddr().String(), "remote", remote)

	info := protocol.ConnectionInfo{ID: remote, RemoteAddr: remote, ConnectedAt: time.Now()}
	c.manager.add(info, gorillaConn{conn: conn}, false)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := NormalizeURL(c.cfg.Remote, c.cfg.TLSConfig != nil)
	if err != nil {
		return nil, err
	}

	netDialer := &net.Dialer{}
	if c.cfg.LocalAddr != "" {
		local, err := net.ResolveTCPAddr("tcp", c.cfg.LocalAddr)
		if err != nil {
			return nil, err
		}
		netDialer.LocalAddr = local
	}

	dialer := websocket.Dialer{
		NetDialContext:   netDialer.DialContext,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		TLSClientConfig:  c.cfg.TLSConfig,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, resp, err := dialer.DialContext(ctx, target, c.cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// Stop sends a normal close after queued frames flush.
func (c *Client) Stop(ctx context.Context) error {
	if !c.lc.BeginStop() {
		return nil
	}
	defer c.lc.Stopped()

	err := c.manager.shutdown(ctx)
	c.log.Info("stopped")
	return err
}

// Send enqueues content for the server. target is ignored.
func (c *Client) Send(content protocol.Content, _ string) error {
	if !c.lc.Running() {
		return protocol.ErrNotRunning
	}
	c.mu.Lock()
	id := c.peerID
	c.mu.Unlock()
	return c.manager.send(content, id)
}

// Connections implements protocol.Handler.
func (c *Client) Connections() []protocol.ConnectionInfo {
	return c.manager.peers.Snapshot()
}
