package httpproto

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/punisher1/nt/pkg/protocol"
)

const shutdownGrace = time.Second

// listener binds one HTTP version's socket and serves a handler on it.
type listener interface {
	// listen binds addr. It must not block.
	listen(ctx context.Context, addr string, h http.Handler) (bound string, err error)
	// serve blocks until close is called.
	serve() error
	close() error
	transportType() protocol.TransportType
	scheme() string
}

func newListener(p protocol.Protocol, tlsConf *tls.Config, log *slog.Logger) (listener, error) {
	switch p {
	case protocol.ProtocolHTTP:
		return &tcpListener{tls: tlsConf, log: log}, nil
	case protocol.ProtocolHTTP2:
		return &tcpListener{tls: tlsConf, h2: true, log: log}, nil
	case protocol.ProtocolHTTP3:
		if tlsConf == nil {
			return nil, errors.New("HTTP/3 requires a TLS configuration")
		}
		return &quicListener{tls: tlsConf}, nil
	default:
		return nil, &protocol.UnsupportedProtocolError{Name: string(p)}
	}
}

// tcpListener serves HTTP/1.1, or HTTP/2 when h2 is set: h2c over plain TCP
// and ALPN "h2" over TLS.
type tcpListener struct {
	tls *tls.Config
	h2  bool
	log *slog.Logger

	ln  net.Listener
	srv *http.Server
}

func (l *tcpListener) listen(ctx context.Context, addr string, h http.Handler) (string, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(l.log.Handler(), slog.LevelDebug),
	}

	switch {
	case l.h2 && l.tls != nil:
		conf := l.tls.Clone()
		conf.NextProtos = []string{http2.NextProtoTLS}
		srv.TLSConfig = conf
		if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
			_ = ln.Close()
			return "", err
		}
		ln = tls.NewListener(ln, srv.TLSConfig)
	case l.h2:
		h2s := &http2.Server{}
		if err := http2.ConfigureServer(srv, h2s); err != nil {
			_ = ln.Close()
			return "", err
		}
		srv.Handler = h2c.NewHandler(h, h2s)
	case l.tls != nil:
		conf := l.tls.Clone()
		conf.NextProtos = []string{"http/1.1"}
		srv.TLSConfig = conf
		ln = tls.NewListener(ln, conf)
	}

	l.ln = ln
	l.srv = srv
	return ln.Addr().String(), nil
}

func (l *tcpListener) serve() error {
	if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// close shuts down gracefully so answered requests flush, then forces
// whatever is left.
func (l *tcpListener) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := l.srv.Shutdown(ctx); err != nil {
		return l.srv.Close()
	}
	return nil
}

func (l *tcpListener) transportType() protocol.TransportType {
	if l.h2 {
		return protocol.TransportHTTP2
	}
	return protocol.TransportHTTP1
}

func (l *tcpListener) scheme() string {
	if l.tls != nil {
		return "https"
	}
	return "http"
}

// quicListener serves HTTP/3 over a UDP socket.
type quicListener struct {
	tls *tls.Config

	pc  net.PacketConn
	srv *http3.Server
}

func (l *quicListener) listen(ctx context.Context, addr string, h http.Handler) (string, error) {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return "", err
	}
	l.pc = pc
	l.srv = &http3.Server{
		Handler:   h,
		TLSConfig: http3.ConfigureTLSConfig(l.tls.Clone()),
		QUICConfig: &quic.Config{
			MaxIdleTimeout:  30 * time.Second,
			KeepAlivePeriod: 10 * time.Second,
		},
	}
	return pc.LocalAddr().String(), nil
}

func (l *quicListener) serve() error {
	if err := l.srv.Serve(l.pc); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, quic.ErrServerClosed) {
		return err
	}
	return nil
}

func (l *quicListener) close() error {
	err := l.srv.Close()
	_ = l.pc.Close()
	return err
}

func (l *quicListener) transportType() protocol.TransportType {
	return protocol.TransportQUIC
}

func (l *quicListener) scheme() string {
	return "https"
}
