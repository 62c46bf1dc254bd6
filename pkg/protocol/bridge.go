package protocol

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/punisher1/nt/pkg/logging"
)

// Bridge defaults.
const (
	DefaultBridgeCapacity = 100
	DefaultSendTimeout    = 200 * time.Millisecond
)

// Sink receives messages produced by a handler.
type Sink interface {
	// Emit hands a message to the consumer. It returns false when the
	// message was dropped.
	Emit(msg Message) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message) bool

// Emit calls f(msg).
func (f SinkFunc) Emit(msg Message) bool { return f(msg) }

// Outgoing is one consumer-composed send request.
type Outgoing struct {
	Content Content
	// Target is a peer ID, TargetAll, or "" for single-peer handlers.
	Target string
}

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	// Capacity bounds both channels. Defaults to DefaultBridgeCapacity.
	Capacity int

	// SendTimeout is how long Emit waits on a full inbound channel before
	// dropping the message. Defaults to DefaultSendTimeout.
	SendTimeout time.Duration

	Logger *slog.Logger
}

// Bridge is the channel pair between a handler and its consumer.
//
// Inbound (handler -> consumer) applies a bounded-wait-then-drop policy: a
// full channel is waited on for SendTimeout, after which the message is
// dropped, counted and logged. Emit never blocks longer than that.
//
// Outbound (consumer -> handler) is a non-blocking enqueue; a full channel is
// reported to the caller as ErrBridgeFull.
type Bridge struct {
	inbound     chan Message
	outbound    chan Outgoing
	sendTimeout time.Duration
	dropped     atomic.Int64
	log         *slog.Logger
}

// NewBridge creates a Bridge.
func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultBridgeCapacity
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &Bridge{
		inbound:     make(chan Message, cfg.Capacity),
		outbound:    make(chan Outgoing, cfg.Capacity),
		sendTimeout: cfg.SendTimeout,
		log:         cfg.Logger,
	}
}

// Emit implements Sink.
func (b *Bridge) Emit(msg Message) bool {
	select {
	case b.inbound <- msg:
		return true
	default:
	}

	timer := time.NewTimer(b.sendTimeout)
	defer timer.Stop()

	select {
	case b.inbound <- msg:
		return true
	case <-timer.C:
	}

	n := b.dropped.Add(1)
	b.log.Warn("inbound queue full, message dropped",
		"peer", msg.ConnectionID(),
		"kind", msg.Content().Kind().String(),
		"dropped", n)
	return false
}

// Inbound returns the consumer end of the inbound channel.
func (b *Bridge) Inbound() <-chan Message {
	return b.inbound
}

// Dropped returns how many inbound messages were dropped.
func (b *Bridge) Dropped() int64 {
	return b.dropped.Load()
}

// Submit enqueues a send request without blocking.
func (b *Bridge) Submit(out Outgoing) error {
	select {
	case b.outbound <- out:
		return nil
	default:
		return ErrBridgeFull
	}
}

// Pending returns the number of queued send requests.
func (b *Bridge) Pending() int {
	return len(b.outbound)
}

// Pump forwards queued send requests to h until ctx is done. A failed send
// is reported to the consumer as a notice on the inbound channel.
func (b *Bridge) Pump(ctx context.Context, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-b.outbound:
			if err := deliver(h, out); err != nil {
				b.log.Debug("send failed", "target", out.Target, "error", err)
				b.Emit(NewSent(Notice("send failed: "+err.Error()), targetInfo(out.Target)))
			}
		}
	}
}

func deliver(h Handler, out Outgoing) error {
	if out.Target != TargetAll {
		return h.Send(out.Content, out.Target)
	}
	bc, ok := h.(Broadcaster)
	if !ok {
		return ErrBroadcastUnsupported
	}
	n, err := bc.Broadcast(out.Content)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("broadcast reached no peers")
	}
	return nil
}

func targetInfo(target string) *ConnectionInfo {
	if target == "" || target == TargetAll {
		return nil
	}
	return &ConnectionInfo{ID: target}
}

// Gate guards a handler's emissions so that none escape after Stop. Emit
// holds a read lock for the duration of the hand-off; Close takes the write
// lock, so it returns only after in-flight emissions finish.
type Gate struct {
	mu   sync.RWMutex
	sink Sink
	open bool
}

// NewGate wraps sink. The gate starts closed.
func NewGate(sink Sink) *Gate {
	return &Gate{sink: sink}
}

// Open lets emissions through.
func (g *Gate) Open() {
	g.mu.Lock()
	g.open = true
	g.mu.Unlock()
}

// Close blocks further emissions and waits for in-flight ones.
func (g *Gate) Close() {
	g.mu.Lock()
	g.open = false
	g.mu.Unlock()
}

// Emit implements Sink.
func (g *Gate) Emit(msg Message) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.open || g.sink == nil {
		return false
	}
	return g.sink.Emit(msg)
}
