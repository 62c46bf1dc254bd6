package engine

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/punisher1/nt/pkg/httpproto"
	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
	"github.com/punisher1/nt/pkg/tcp"
	"github.com/punisher1/nt/pkg/udp"
	"github.com/punisher1/nt/pkg/websocket"
)

// Spec is a resolved request for one handler.
type Spec struct {
	Protocol protocol.Protocol
	Role     protocol.Role

	// LocalAddr is the listen address for servers and the optional bind
	// address for clients.
	LocalAddr string

	// RemoteAddr is the peer address (TCP, UDP) or URL (WebSocket, HTTP)
	// for clients.
	RemoteAddr string

	// HTTP client request.
	Method string
	Body   string
	Header http.Header

	// ServerTLS enables TLS on WebSocket and HTTP servers. HTTP/3 falls
	// back to a self-signed certificate when it is nil.
	ServerTLS *tls.Config
	// ClientTLS is used by wss:// and https:// clients.
	ClientTLS *tls.Config
}

// Options are the tunables shared by every handler.
type Options struct {
	QueueSize       int
	DrainTimeout    time.Duration
	ResponseTimeout time.Duration
	DefaultStatus   int
	IdleTimeout     time.Duration
	Logger          *slog.Logger
}

// ErrMissingAddress is returned when a spec lacks the address its role needs.
var ErrMissingAddress = errors.New("missing address")

// New builds the handler for spec. It only allocates; no network I/O
// happens until Start, so the only failures are unknown protocols and
// incomplete specs.
func New(spec Spec, sink protocol.Sink, opts Options) (protocol.Handler, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	switch spec.Role {
	case protocol.RoleServer:
		if spec.LocalAddr == "" {
			return nil, ErrMissingAddress
		}
		return newServer(spec, sink, opts)
	case protocol.RoleClient:
		if spec.RemoteAddr == "" {
			return nil, ErrMissingAddress
		}
		return newClient(spec, sink, opts)
	default:
		return nil, &protocol.UnsupportedProtocolError{Name: string(spec.Protocol) + " " + string(spec.Role)}
	}
}

func newServer(spec Spec, sink protocol.Sink, opts Options) (protocol.Handler, error) {
	switch spec.Protocol {
	case protocol.ProtocolTCP:
		return tcp.NewServer(tcp.ServerConfig{
			Addr:         spec.LocalAddr,
			Sink:         sink,
			QueueSize:    opts.QueueSize,
			DrainTimeout: opts.DrainTimeout,
			Logger:       opts.Logger,
		}), nil
	case protocol.ProtocolUDP:
		return udp.NewServer(udp.ServerConfig{
			Addr:        spec.LocalAddr,
			Sink:        sink,
			IdleTimeout: opts.IdleTimeout,
			Logger:      opts.Logger,
		}), nil
	case protocol.ProtocolWebSocket:
		return websocket.NewServer(websocket.ServerConfig{
			Addr:         spec.LocalAddr,
			Sink:         sink,
			TLSConfig:    spec.ServerTLS,
			QueueSize:    opts.QueueSize,
			DrainTimeout: opts.DrainTimeout,
			Logger:       opts.Logger,
		}), nil
	case protocol.ProtocolHTTP, protocol.ProtocolHTTP2, protocol.ProtocolHTTP3:
		return httpproto.NewServer(httpproto.ServerConfig{
			Protocol:        spec.Protocol,
			Addr:            spec.LocalAddr,
			Sink:            sink,
			TLSConfig:       spec.ServerTLS,
			ResponseTimeout: opts.ResponseTimeout,
			DefaultStatus:   opts.DefaultStatus,
			DrainTimeout:    opts.DrainTimeout,
			Logger:          opts.Logger,
		}), nil
	default:
		return nil, &protocol.UnsupportedProtocolError{Name: string(spec.Protocol)}
	}
}

func newClient(spec Spec, sink protocol.Sink, opts Options) (protocol.Handler, error) {
	switch spec.Protocol {
	case protocol.ProtocolTCP:
		return tcp.NewClient(tcp.ClientConfig{
			LocalAddr:    spec.LocalAddr,
			RemoteAddr:   spec.RemoteAddr,
			Sink:         sink,
			QueueSize:    opts.QueueSize,
			DrainTimeout: opts.DrainTimeout,
			Logger:       opts.Logger,
		}), nil
	case protocol.ProtocolUDP:
		return udp.NewClient(udp.ClientConfig{
			LocalAddr:  spec.LocalAddr,
			RemoteAddr: spec.RemoteAddr,
			Sink:       sink,
			Logger:     opts.Logger,
		}), nil
	case protocol.ProtocolWebSocket:
		return websocket.NewClient(websocket.ClientConfig{
			LocalAddr:    spec.LocalAddr,
			Remote:       spec.RemoteAddr,
			Header:       spec.Header,
			TLSConfig:    spec.ClientTLS,
			Sink:         sink,
			QueueSize:    opts.QueueSize,
			DrainTimeout: opts.DrainTimeout,
			Logger:       opts.Logger,
		}), nil
	case protocol.ProtocolHTTP, protocol.ProtocolHTTP2, protocol.ProtocolHTTP3:
		return httpproto.NewClient(httpproto.ClientConfig{
			Protocol:     spec.Protocol,
			Method:       spec.Method,
			URL:          spec.RemoteAddr,
			Body:         spec.Body,
			Header:       spec.Header,
			TLSConfig:    spec.ClientTLS,
			Sink:         sink,
			QueueSize:    opts.QueueSize,
			DrainTimeout: opts.DrainTimeout,
			Logger:       opts.Logger,
		}), nil
	default:
		return nil, &protocol.UnsupportedProtocolError{Name: string(spec.Protocol)}
	}
}
