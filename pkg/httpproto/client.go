package httpproto

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/http2"

	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
)

// Client defaults.
const (
	DefaultQueueSize      = 100
	DefaultRequestTimeout = 30 * time.Second
)

// ClientConfig configures an HTTP client handler.
type ClientConfig struct {
	// Protocol selects the HTTP version. An empty value means HTTP/1.1.
	Protocol protocol.Protocol

	Method string
	URL    string
	// Body is sent with the request issued on Start.
	Body   string
	Header http.Header

	TLSConfig *tls.Config
	Sink      protocol.Sink

	QueueSize    int
	Timeout      time.Duration
	DrainTimeout time.Duration
	Logger       *slog.Logger
}

// Client issues requests to one server. The request configured in
// ClientConfig goes out on Start; every Send issues another one.
type Client struct {
	cfg  ClientConfig
	log  *slog.Logger
	lc   protocol.Lifecycle
	gate *protocol.Gate

	mu      sync.Mutex
	target  *url.URL
	info    protocol.ConnectionInfo
	httpc   *http.Client
	closeRT func()
	queue   chan protocol.Content
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

var (
	_ protocol.Handler     = (*Client)(nil)
	_ protocol.Addressable = (*Client)(nil)
)

// NewClient creates an idle client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Protocol == "" {
		cfg.Protocol = protocol.ProtocolHTTP
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	return &Client{
		cfg:  cfg,
		log:  cfg.Logger.With("handler", protocol.HandlerID(cfg.Protocol, protocol.RoleClient, cfg.URL)),
		gate: protocol.NewGate(cfg.Sink),
	}
}

// Metadata implements protocol.Handler.
func (c *Client) Metadata() protocol.Metadata {
	return protocol.Metadata{
		ID:              protocol.HandlerID(c.cfg.Protocol, protocol.RoleClient, c.cfg.URL),
		Protocol:        c.cfg.Protocol,
		Role:            protocol.RoleClient,
		TransportType:   transportOf(c.cfg.Protocol),
		ConnectionModel: protocol.ConnectionModelMultiplexed,
		Address:         c.cfg.URL,
	}
}

// Name implements protocol.Handler.
func (c *Client) Name() string {
	return protocol.HandlerName(c.cfg.Protocol, protocol.RoleClient)
}

// IsRunning implements protocol.Handler.
func (c *Client) IsRunning() bool {
	return c.lc.Running()
}

// Addr returns the server host the client talks to, or "" before Start.
func (c *Client) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return ""
	}
	return c.target.Host
}

// ParseURL validates a request URL for the given HTTP version. A missing
// scheme defaults to http, or https for HTTP/3.
func ParseURL(raw string, p protocol.Protocol) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty URL")
	}
	if !strings.Contains(raw, "://") {
		if p == protocol.ProtocolHTTP3 {
			raw = "https://" + raw
		} else {
			raw = "http://" + raw
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}
	if p == protocol.ProtocolHTTP3 && u.Scheme != "https" {
		return nil, errors.New("HTTP/3 requires an https URL")
	}
	return u, nil
}

// Start validates the URL, registers the server as the single peer and
// issues the configured request.
func (c *Client) Start(ctx context.Context) error {
	if err := c.lc.BeginStart(); err != nil {
		return err
	}

	u, err := ParseURL(c.cfg.URL, c.cfg.Protocol)
	if err != nil {
		c.lc.FailStart()
		return &protocol.StartError{Protocol: c.cfg.Protocol, Role: protocol.RoleClient, Addr: c.cfg.URL, Err: err}
	}
	rt, closeRT := c.roundTripper(u)

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.target = u
	c.info = protocol.ConnectionInfo{ID: u.Host, RemoteAddr: u.Host, ConnectedAt: time.Now()}
	c.httpc = &http.Client{
		Transport: rt,
		Timeout:   c.cfg.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	c.closeRT = closeRT
	c.queue = make(chan protocol.Content, c.cfg.QueueSize)
	c.closed = false
	c.ctx, c.cancel = runCtx, cancel
	c.done = make(chan struct{})
	info := c.info
	c.mu.Unlock()

	c.gate.Open()
	c.lc.Started()
	c.log.Info("ready", "url", u.String(), "method", c.cfg.Method)
	c.gate.Emit(protocol.NewReceived(protocol.Connected(), &info))

	go c.worker()
	return c.enqueue(protocol.Text(c.cfg.Body))
}

func (c *Client) roundTripper(u *url.URL) (http.RoundTripper, func()) {
	switch c.cfg.Protocol {
	case protocol.ProtocolHTTP2:
		t := &http2.Transport{TLSClientConfig: c.cfg.TLSConfig}
		if u.Scheme == "http" {
			t.AllowHTTP = true
			t.DialTLSContext = func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			}
		}
		return t, t.CloseIdleConnections
	case protocol.ProtocolHTTP3:
		t := &http3.Transport{
			TLSClientConfig: c.cfg.TLSConfig,
			QUICConfig:      &quic.Config{MaxIdleTimeout: 30 * time.Second},
		}
		return t, func() { _ = t.Close() }
	default:
		t := &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: c.cfg.TLSConfig,
			// An empty map keeps TLS connections on HTTP/1.1.
			TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
		}
		return t, t.CloseIdleConnections
	}
}

func (c *Client) enqueue(content protocol.Content) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return protocol.ErrNotRunning
	}
	select {
	case c.queue <- content:
		return nil
	default:
		return protocol.ErrConnectionBusy
	}
}

// worker issues queued requests one at a time so responses arrive in order.
func (c *Client) worker() {
	c.mu.Lock()
	queue, ctx, done, info := c.queue, c.ctx, c.done, c.info
	c.mu.Unlock()
	defer close(done)

	for content := range queue {
		c.do(ctx, content, &info)
	}
}

func (c *Client) do(ctx context.Context, content protocol.Content, info *protocol.ConnectionInfo) {
	body, err := content.Bytes()
	if err != nil {
		c.gate.Emit(protocol.NewReceived(protocol.Notice(err.Error()), info))
		return
	}

	req, err := http.NewRequestWithContext(ctx, c.cfg.Method, c.target.String(), bytes.NewReader(body))
	if err != nil {
		c.gate.Emit(protocol.NewReceived(protocol.Notice(err.Error()), info))
		return
	}
	for k, vs := range c.cfg.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentTypeOf(content))
	}
	if c.cfg.Protocol != protocol.ProtocolHTTP {
		req.Proto, req.ProtoMajor, req.ProtoMinor = protoName(c.cfg.Protocol), protoMajor(c.cfg.Protocol), 0
	}

	c.gate.Emit(protocol.NewSent(protocol.Text(renderRequest(req, body)), info))

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Debug("request failed", "error", err)
		c.gate.Emit(protocol.NewReceived(protocol.Notice("request failed: "+err.Error()), info))
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		c.gate.Emit(protocol.NewReceived(protocol.Notice("reading response failed: "+err.Error()), info))
		return
	}
	c.log.Debug("response", "status", resp.StatusCode, "proto", resp.Proto, "bytes", len(respBody))
	c.gate.Emit(protocol.NewReceived(protocol.Text(renderResponse(resp, respBody)), info))
}

func protoName(p protocol.Protocol) string {
	return fmt.Sprintf("HTTP/%d.0", protoMajor(p))
}

func protoMajor(p protocol.Protocol) int {
	switch p {
	case protocol.ProtocolHTTP2:
		return 2
	case protocol.ProtocolHTTP3:
		return 3
	default:
		return 1
	}
}

// Stop lets queued requests finish within DrainTimeout, then cancels
// whatever is still in flight.
func (c *Client) Stop(ctx context.Context) error {
	if !c.lc.BeginStop() {
		return nil
	}
	defer c.lc.Stopped()

	c.mu.Lock()
	c.closed = true
	close(c.queue)
	done, cancel, closeRT, info := c.done, c.cancel, c.closeRT, c.info
	c.mu.Unlock()

	timer := time.NewTimer(c.cfg.DrainTimeout)
	defer timer.Stop()

	var err error
	select {
	case <-done:
	case <-timer.C:
		cancel()
		<-done
	case <-ctx.Done():
		cancel()
		<-done
		err = ctx.Err()
	}
	cancel()
	closeRT()

	c.gate.Emit(protocol.NewReceived(protocol.Disconnected(), &info))
	c.gate.Close()
	c.log.Info("stopped")
	return err
}

// Send issues another request with content as its body. target is ignored.
func (c *Client) Send(content protocol.Content, _ string) error {
	if !c.lc.Running() {
		return protocol.ErrNotRunning
	}
	if _, err := content.Bytes(); err != nil {
		return err
	}
	return c.enqueue(content)
}

// Connections returns the server peer while the client runs.
func (c *Client) Connections() []protocol.ConnectionInfo {
	if !c.lc.Running() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return []protocol.ConnectionInfo{c.info}
}
