package tcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/punisher1/nt/pkg/protocol"
	"github.com/punisher1/nt/pkg/util"
)

// Engine defaults.
const (
	DefaultQueueSize    = 100
	DefaultReadBuffer   = 4096
	DefaultDrainTimeout = 2 * time.Second
)

type frame struct {
	content protocol.Content
	data    []byte
}

// peer is one live connection. Its outbound queue is closed exactly once,
// under mu, so enqueue never races with close.
type peer struct {
	info protocol.ConnectionInfo
	conn net.Conn

	mu     sync.Mutex
	out    chan frame
	closed bool

	// done is closed when the write task has exited.
	done chan struct{}
}

func newPeer(conn net.Conn, queueSize int) *peer {
	remote := conn.RemoteAddr().String()
	return &peer{
		info: protocol.ConnectionInfo{
			ID:          remote,
			RemoteAddr:  remote,
			ConnectedAt: time.Now(),
		},
		conn: conn,
		out:  make(chan frame, queueSize),
		done: make(chan struct{}),
	}
}

func (p *peer) enqueue(f frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return protocol.ErrConnectionNotFound
	}
	select {
	case p.out <- f:
		return nil
	default:
		return protocol.ErrConnectionBusy
	}
}

func (p *peer) closeQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.out)
	}
}

// streams runs the per-peer read and write tasks shared by the server and
// the client.
type streams struct {
	proto     protocol.Protocol
	peers     *protocol.Peers[*peer]
	gate      *protocol.Gate
	log       *slog.Logger
	queueSize int
	drain     time.Duration
	wg        sync.WaitGroup

	mu      sync.Mutex
	closing bool
}

func newStreams(proto protocol.Protocol, sink protocol.Sink, queueSize int, drain time.Duration, log *slog.Logger) *streams {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if drain <= 0 {
		drain = DefaultDrainTimeout
	}
	return &streams{
		proto:     proto,
		peers:     protocol.NewPeers[*peer](),
		gate:      protocol.NewGate(sink),
		log:       log,
		queueSize: queueSize,
		drain:     drain,
	}
}

// serve registers conn, announces it and spawns its read and write tasks.
// Connected is emitted before the read task exists, so it always precedes
// the peer's first Received message. Connections arriving after shutdown
// has begun are closed.
func (s *streams) serve(conn net.Conn) {
	p := newPeer(conn, s.queueSize)

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	if err := s.peers.Add(p.info, p); err != nil {
		s.mu.Unlock()
		s.log.Warn("rejecting connection", "peer", p.info.ID, "protocol", s.proto, "error", err)
		_ = conn.Close()
		return
	}
	s.wg.Add(2)
	s.mu.Unlock()

	s.gate.Emit(protocol.NewReceived(protocol.Connected(), &p.info))
	go s.readLoop(p)
	go s.writeLoop(p)
}

func (s *streams) readLoop(p *peer) {
	defer s.wg.Done()

	buf := make([]byte, DefaultReadBuffer)
	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			s.gate.Emit(protocol.NewReceived(protocol.Text(util.BytesToString(buf[:n])), &p.info))
		}
		if err != nil {
			if !isClosedErr(err) {
				s.log.Warn("read failed", "peer", p.info.ID, "protocol", s.proto, "error", err)
			}
			break
		}
	}

	s.peers.Remove(p.info.ID)
	p.closeQueue()

	// Every Sent for this peer precedes its Disconnected, so wait for the
	// writer to flush what is queued, bounded by the drain timeout.
	_ = p.conn.SetWriteDeadline(time.Now().Add(s.drain))
	<-p.done
	s.gate.Emit(protocol.NewReceived(protocol.Disconnected(), &p.info))
}

// writeLoop drains the peer queue until it is closed, then closes the
// connection.
func (s *streams) writeLoop(p *peer) {
	defer s.wg.Done()
	defer close(p.done)
	defer p.conn.Close()

	for f := range p.out {
		if _, err := p.conn.Write(f.data); err != nil {
			if !isClosedErr(err) {
				s.log.Warn("write failed", "peer", p.info.ID, "protocol", s.proto, "error", err)
			}
			return
		}
		s.gate.Emit(protocol.NewSent(f.content, &p.info))
	}
}

func (s *streams) send(content protocol.Content, target string) error {
	p, ok := s.peers.Lookup(target)
	if !ok {
		return protocol.ErrConnectionNotFound
	}
	data, err := content.Bytes()
	if err != nil {
		return err
	}
	return p.enqueue(frame{content: content, data: data})
}

func (s *streams) broadcast(content protocol.Content) (int, error) {
	data, err := content.Bytes()
	if err != nil {
		return 0, err
	}
	sent := 0
	s.peers.Range(func(_ protocol.ConnectionInfo, p *peer) bool {
		if p.enqueue(frame{content: content, data: data}) == nil {
			sent++
		}
		return true
	})
	return sent, nil
}

// shutdown closes every peer queue so queued writes flush, bounds the flush
// with a deadline, and waits for all peer tasks or ctx.
func (s *streams) shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	deadline := time.Now().Add(s.drain)
	s.peers.Range(func(_ protocol.ConnectionInfo, p *peer) bool {
		_ = p.conn.SetDeadline(deadline)
		p.closeQueue()
		return true
	})

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
		s.peers.Range(func(_ protocol.ConnectionInfo, p *peer) bool {
			_ = p.conn.Close()
			return true
		})
	}
	s.gate.Close()
	return err
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
