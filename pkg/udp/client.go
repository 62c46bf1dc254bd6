package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
	"github.com/punisher1/nt/pkg/util"
)

// ClientConfig configures a UDP client.
type ClientConfig struct {
	LocalAddr    string
	RemoteAddr   string
	Sink         protocol.Sink
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Client is a connected UDP socket with the remote address as its only peer.
type Client struct {
	cfg  ClientConfig
	log  *slog.Logger
	lc   protocol.Lifecycle
	gate *protocol.Gate

	mu       sync.Mutex
	conn     *net.UDPConn
	info     protocol.ConnectionInfo
	stop     chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
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
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Client{
		cfg:  cfg,
		log:  cfg.Logger.With("handler", protocol.HandlerID(protocol.ProtocolUDP, protocol.RoleClient, cfg.RemoteAddr)),
		gate: protocol.NewGate(cfg.Sink),
	}
}

// Metadata implements protocol.Handler.
func (c *Client) Metadata() protocol.Metadata {
	return protocol.Metadata{
		ID:              protocol.HandlerID(protocol.ProtocolUDP, protocol.RoleClient, c.cfg.RemoteAddr),
		Protocol:        protocol.ProtocolUDP,
		Role:            protocol.RoleClient,
		TransportType:   protocol.TransportUDP,
		ConnectionModel: protocol.ConnectionModelDatagram,
		Address:         c.cfg.RemoteAddr,
	}
}

// Name implements protocol.Handler.
func (c *Client) Name() string {
	return protocol.HandlerName(protocol.ProtocolUDP, protocol.RoleClient)
}

// IsRunning implements protocol.Handler.
func (c *Client) IsRunning() bool {
	return c.lc.Running()
}

// Addr returns the local socket address, or "" before Start.
func (c *Client) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	return c.conn.LocalAddr().String()
}

// Start resolves the addresses, connects the socket and spawns the read loop.
func (c *Client) Start(ctx context.Context) error {
	if err := c.lc.BeginStart(); err != nil {
		return err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		c.lc.FailStart()
		return &protocol.StartError{Protocol: protocol.ProtocolUDP, Role: protocol.RoleClient, Addr: c.cfg.RemoteAddr, Err: err}
	}

	remote := conn.RemoteAddr().String()
	info := protocol.ConnectionInfo{ID: remote, RemoteAddr: remote, ConnectedAt: time.Now()}

	c.mu.Lock()
	c.conn = conn
	c.info = info
	c.stop = make(chan struct{}, 1)
	c.loopDone = make(chan struct{})
	c.mu.Unlock()

	c.gate.Open()
	c.lc.Started()
	c.log.Info("connected", "local", conn.LocalAddr().String(), "remote", remote)
	c.gate.Emit(protocol.NewReceived(protocol.Connected(), &info))

	go c.readLoop(conn, info, c.stop, c.loopDone)
	return nil
}

func (c *Client) dial(ctx context.Context) (*net.UDPConn, error) {
	d := net.Dialer{}
	if c.cfg.LocalAddr != "" {
		local, err := net.ResolveUDPAddr("udp", c.cfg.LocalAddr)
		if err != nil {
			return nil, err
		}
		d.LocalAddr = local
	}
	conn, err := d.DialContext(ctx, "udp", c.cfg.RemoteAddr)
	if err != nil {
		return nil, err
	}
	return conn.(*net.UDPConn), nil
}

func (c *Client) readLoop(conn *net.UDPConn, info protocol.ConnectionInfo, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, MaxDatagramSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PollInterval))
		n, err := conn.Read(buf)
		if err != nil {
			switch {
			case errors.Is(err, os.ErrDeadlineExceeded):
			case errors.Is(err, net.ErrClosed):
				return
			case errors.Is(err, syscall.ECONNREFUSED):
				c.log.Debug("remote port unreachable", "peer", info.ID)
			default:
				c.log.Warn("read failed", "peer", info.ID, "protocol", protocol.ProtocolUDP, "error", err)
			}
			continue
		}
		if n > 0 {
			c.gate.Emit(protocol.NewReceived(protocol.Text(util.BytesToString(buf[:n])), &info))
		}
	}
}

// Stop fires the control signal, waits for the read loop and closes the
// socket.
func (c *Client) Stop(ctx context.Context) error {
	if !c.lc.BeginStop() {
		return nil
	}
	defer c.lc.Stopped()

	c.mu.Lock()
	conn, info, stop, loopDone := c.conn, c.info, c.stop, c.loopDone
	c.mu.Unlock()

	c.stopOnce.Do(func() { close(stop) })

	var err error
	select {
	case <-loopDone:
	case <-ctx.Done():
		err = ctx.Err()
	}
	_ = conn.Close()

	c.gate.Emit(protocol.NewReceived(protocol.Disconnected(), &info))
	c.gate.Close()
	c.log.Info("stopped")
	return err
}

// Send writes content to the remote address. target is ignored.
func (c *Client) Send(content protocol.Content, _ string) error {
	if !c.lc.Running() {
		return protocol.ErrNotRunning
	}
	data, err := content.Bytes()
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn, info := c.conn, c.info
	c.mu.Unlock()

	if _, err := conn.Write(data); err != nil {
		c.log.Warn("write failed", "peer", info.ID, "protocol", protocol.ProtocolUDP, "error", err)
		return fmt.Errorf("write to %s: %w", info.ID, err)
	}
	c.gate.Emit(protocol.NewSent(content, &info))
	return nil
}

// Connections implements protocol.Handler.
func (c *Client) Connections() []protocol.ConnectionInfo {
	if !c.lc.Running() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return []protocol.ConnectionInfo{c.info}
}
