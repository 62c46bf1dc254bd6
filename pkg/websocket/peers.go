package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/punisher1/nt/pkg/protocol"
)

// Engine defaults.
const (
	DefaultQueueSize    = 100
	DefaultDrainTimeout = 2 * time.Second
)

// Connection is one live WebSocket peer. Its outbound queue is closed
// exactly once, under mu.
type Connection struct {
	info protocol.ConnectionInfo
	wire wireConn

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	out    chan frame
	closed bool

	// done is closed when the write task has exited.
	done chan struct{}
}

func (c *Connection) enqueue(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return protocol.ErrConnectionNotFound
	}
	select {
	case c.out <- f:
		return nil
	default:
		return protocol.ErrConnectionBusy
	}
}

func (c *Connection) closeQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.out)
	}
}

// ConnectionManager owns the live connections of one handler and runs their
// read and write tasks.
type ConnectionManager struct {
	peers     *protocol.Peers[*Connection]
	gate      *protocol.Gate
	log       *slog.Logger
	queueSize int
	drain     time.Duration
	wg        sync.WaitGroup

	mu      sync.Mutex
	closing bool
}

func newConnectionManager(sink protocol.Sink, queueSize int, drain time.Duration, log *slog.Logger) *ConnectionManager {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if drain <= 0 {
		drain = DefaultDrainTimeout
	}
	return &ConnectionManager{
		peers:     protocol.NewPeers[*Connection](),
		gate:      protocol.NewGate(sink),
		log:       log,
		queueSize: queueSize,
		drain:     drain,
	}
}

// add registers a connection and starts its tasks. When wait is true the
// calling goroutine becomes the read task, which net/http upgrade handlers
// need because the connection must not outlive the handler call.
func (m *ConnectionManager) add(info protocol.ConnectionInfo, wire wireConn, wait bool) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		info:   info,
		wire:   wire,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan frame, m.queueSize),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		cancel()
		_ = wire.forceClose()
		return
	}
	if err := m.peers.Add(info, c); err != nil {
		m.mu.Unlock()
		m.log.Warn("rejecting connection", "peer", info.ID, "protocol", protocol.ProtocolWebSocket, "error", err)
		cancel()
		_ = wire.forceClose()
		return
	}
	m.wg.Add(2)
	m.mu.Unlock()

	m.gate.Emit(protocol.NewReceived(protocol.Connected(), &c.info))
	go m.writeLoop(c)
	if wait {
		m.readLoop(c)
		return
	}
	go m.readLoop(c)
}

func (m *ConnectionManager) readLoop(c *Connection) {
	defer m.wg.Done()

	for {
		content, err := c.wire.readFrame(c.ctx)
		if err != nil {
			if !isClosedErr(err) {
				m.log.Warn("read failed", "peer", c.info.ID, "protocol", protocol.ProtocolWebSocket, "error", err)
			}
			break
		}
		m.gate.Emit(protocol.NewReceived(content, &c.info))
	}

	m.peers.Remove(c.info.ID)
	c.closeQueue()
	m.awaitWriter(c)
	m.gate.Emit(protocol.NewReceived(protocol.Disconnected(), &c.info))
}

// awaitWriter waits for the write task to flush the queue so that every
// Sent for c precedes its Disconnected. A writer still busy after the drain
// timeout is cut off.
func (m *ConnectionManager) awaitWriter(c *Connection) {
	timer := time.NewTimer(m.drain)
	defer timer.Stop()

	select {
	case <-c.done:
	case <-timer.C:
		c.cancel()
		_ = c.wire.forceClose()
		<-c.done
	}
}

// writeLoop drains the queue, then performs the close handshake.
func (m *ConnectionManager) writeLoop(c *Connection) {
	defer m.wg.Done()
	defer close(c.done)
	defer c.cancel()

	for f := range c.out {
		if err := c.wire.writeFrame(c.ctx, f); err != nil {
			if !isClosedErr(err) {
				m.log.Warn("write failed", "peer", c.info.ID, "protocol", protocol.ProtocolWebSocket, "error", err)
			}
			_ = c.wire.forceClose()
			return
		}
		m.gate.Emit(protocol.NewSent(f.content, &c.info))
	}
	_ = c.wire.close(1000, "")
}

func (m *ConnectionManager) send(content protocol.Content, target string) error {
	c, ok := m.peers.Lookup(target)
	if !ok {
		return protocol.ErrConnectionNotFound
	}
	f, err := newFrame(content)
	if err != nil {
		return err
	}
	return c.enqueue(f)
}

func (m *ConnectionManager) broadcast(content protocol.Content) (int, error) {
	f, err := newFrame(content)
	if err != nil {
		return 0, err
	}
	sent := 0
	m.peers.Range(func(_ protocol.ConnectionInfo, c *Connection) bool {
		if c.enqueue(f) == nil {
			sent++
		}
		return true
	})
	return sent, nil
}

// shutdown closes every queue so writers flush and close, and waits for all
// peer tasks. Connections still open after drain are dropped.
func (m *ConnectionManager) shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	m.mu.Unlock()

	m.peers.Range(func(_ protocol.ConnectionInfo, c *Connection) bool {
		c.closeQueue()
		return true
	})

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(m.drain)
	defer timer.Stop()

	var err error
	select {
	case <-done:
	case <-timer.C:
		m.forceCloseAll()
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	case <-ctx.Done():
		err = ctx.Err()
		m.forceCloseAll()
	}
	m.gate.Close()
	return err
}

func (m *ConnectionManager) forceCloseAll() {
	m.peers.Range(func(_ protocol.ConnectionInfo, c *Connection) bool {
		c.cancel()
		_ = c.wire.forceClose()
		return true
	})
}
