package tcp

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
)

// ClientConfig configures a TCP client.
type ClientConfig struct {
	// LocalAddr optionally binds the local side. Empty lets the OS choose.
	LocalAddr string

	// RemoteAddr is the server to connect to.
	RemoteAddr string

	Sink         protocol.Sink
	QueueSize    int
	DialTimeout  time.Duration
	DrainTimeout time.Duration
	Logger       *slog.Logger
}

// Client is a single-peer TCP client. The server is its only peer.
type Client struct {
	cfg     ClientConfig
	log     *slog.Logger
	lc      protocol.Lifecycle
	streams *streams

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
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	log := cfg.Logger.With("handler", protocol.HandlerID(protocol.ProtocolTCP, protocol.RoleClient, cfg.RemoteAddr))
	return &Client{
		cfg:     cfg,
		log:     log,
		streams: newStreams(protocol.ProtocolTCP, cfg.Sink, cfg.QueueSize, cfg.DrainTimeout, log),
	}
}

// Metadata implements protocol.Handler.
func (c *Client) Metadata() protocol.Metadata {
	return protocol.Metadata{
		ID:              protocol.HandlerID(protocol.ProtocolTCP, protocol.RoleClient, c.cfg.RemoteAddr),
		Protocol:        protocol.ProtocolTCP,
		Role:            protocol.RoleClient,
		TransportType:   protocol.TransportTCP,
		ConnectionModel: protocol.ConnectionModelStream,
		Address:         c.cfg.RemoteAddr,
	}
}

// Name implements protocol.Handler.
func (c *Client) Name() string {
	return protocol.HandlerName(protocol.ProtocolTCP, protocol.RoleClient)
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

// Start dials the remote address and spawns the peer tasks.
func (c *Client) Start(ctx context.Context) error {
	if err := c.lc.BeginStart(); err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	if c.cfg.LocalAddr != "" {
		local, err := net.ResolveTCPAddr("tcp", c.cfg.LocalAddr)
		if err != nil {
			c.lc.FailStart()
			return c.startError(err)
		}
		dialer.LocalAddr = local
	}

	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.RemoteAddr)
	if err != nil {
		c.lc.FailStart()
		return c.startError(err)
	}

	c.mu.Lock()
	c.local = conn.LocalAddr().String()
	c.peerID = conn.RemoteAddr().String()
	c.mu.Unlock()

	c.streams.gate.Open()
	c.lc.Started()
	c.log.Info("connected", "local", conn.LocalAddr().String(), "remote", conn.RemoteAddr().String())

	c.streams.serve(conn)
	return nil
}

func (c *Client) startError(err error) error {
	return &protocol.StartError{
		Protocol: protocol.ProtocolTCP,
		Role:     protocol.RoleClient,
		Addr:     c.cfg.RemoteAddr,
		Err:      err,
	}
}

// Stop flushes queued writes and closes the connection.
func (c *Client) Stop(ctx context.Context) error {
	if !c.lc.BeginStop() {
		return nil
	}
	defer c.lc.Stopped()

	err := c.streams.shutdown(ctx)
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
	return c.streams.send(content, id)
}

// Connections implements protocol.Handler.
func (c *Client) Connections() []protocol.ConnectionInfo {
	return c.streams.peers.Snapshot()
}
