package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
	"github.com/punisher1/nt/pkg/util"
)

// InputFormat is how composed input is turned into content.
type InputFormat int

// InputFormat constants.
const (
	FormatText InputFormat = iota
	FormatHex
)

// String returns "text" or "hex".
func (f InputFormat) String() string {
	if f == FormatHex {
		return "hex"
	}
	return "text"
}

// Toggle switches between text and hex.
func (f InputFormat) Toggle() InputFormat {
	if f == FormatHex {
		return FormatText
	}
	return FormatHex
}

// Stats is a snapshot of a session's traffic counters.
type Stats struct {
	BytesSent        int64
	BytesReceived    int64
	MessagesSent     int64
	MessagesReceived int64
	Dropped          int64
}

// statsSink counts payload traffic on its way into the bridge.
type statsSink struct {
	next protocol.Sink

	bytesSent atomic.Int64
	bytesRecv atomic.Int64
	msgsSent  atomic.Int64
	msgsRecv  atomic.Int64
}

func (s *statsSink) Emit(msg protocol.Message) bool {
	c := msg.Content()
	if !c.Kind().IsEvent() {
		n := int64(c.Len())
		if msg.Direction() == protocol.Sent {
			s.bytesSent.Add(n)
			s.msgsSent.Add(1)
		} else {
			s.bytesRecv.Add(n)
			s.msgsRecv.Add(1)
		}
	}
	return s.next.Emit(msg)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Spec    Spec
	Options Options
	Bridge  protocol.BridgeConfig

	// Registry, if set, tracks the session's handler while it runs.
	Registry *protocol.Registry
}

// Session ties one handler to its bridge. Inbound traffic flows through
// traffic counters into the bridge; an outbound pump feeds composed input
// back to the handler.
type Session struct {
	handler  protocol.Handler
	bridge   *protocol.Bridge
	stats    *statsSink
	registry *protocol.Registry
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	pumped chan struct{}
}

// NewSession builds the handler described by cfg.Spec. Nothing is bound
// until Start.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Options.Logger == nil {
		cfg.Options.Logger = logging.Nop()
	}
	if cfg.Bridge.Logger == nil {
		cfg.Bridge.Logger = cfg.Options.Logger
	}

	bridge := protocol.NewBridge(cfg.Bridge)
	stats := &statsSink{next: bridge}
	h, err := New(cfg.Spec, stats, cfg.Options)
	if err != nil {
		return nil, err
	}
	return &Session{
		handler:  h,
		bridge:   bridge,
		stats:    stats,
		registry: cfg.Registry,
		log:      cfg.Options.Logger,
	}, nil
}

// Handler returns the session's handler.
func (s *Session) Handler() protocol.Handler { return s.handler }

// Inbound returns the channel of messages for the presentation layer.
func (s *Session) Inbound() <-chan protocol.Message { return s.bridge.Inbound() }

// Start starts the handler and the outbound pump.
func (s *Session) Start(ctx context.Context) error {
	if err := s.handler.Start(ctx); err != nil {
		return err
	}
	if s.registry != nil {
		if err := s.registry.Register(s.handler); err != nil {
			s.log.Warn("handler not registered", "error", err)
		}
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	pumped := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.pumped = cancel, pumped
	s.mu.Unlock()

	go func() {
		defer close(pumped)
		s.bridge.Pump(pumpCtx, s.handler)
	}()
	return nil
}

// Stop stops the handler, then the pump. It is safe to call more than once.
func (s *Session) Stop(ctx context.Context) error {
	err := s.handler.Stop(ctx)

	s.mu.Lock()
	cancel, pumped := s.cancel, s.pumped
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-pumped
	}
	if s.registry != nil {
		_ = s.registry.Unregister(s.handler.Metadata().ID)
	}
	return err
}

// Submit parses input in format and queues it for target. Hex input is
// validated here so bad digits are reported before anything is queued.
func (s *Session) Submit(input string, format InputFormat, target string) error {
	content, err := ParseInput(input, format)
	if err != nil {
		return err
	}
	return s.bridge.Submit(protocol.Outgoing{Content: content, Target: target})
}

// ParseInput converts composed input into content.
func ParseInput(input string, format InputFormat) (protocol.Content, error) {
	if format == FormatHex {
		if _, err := util.HexToBytes(input); err != nil {
			return protocol.Content{}, fmt.Errorf("invalid hex input: %w", err)
		}
		return protocol.Hex(strings.TrimSpace(input)), nil
	}
	return protocol.Text(input), nil
}

// Stats returns the current traffic counters.
func (s *Session) Stats() Stats {
	return Stats{
		BytesSent:        s.stats.bytesSent.Load(),
		BytesReceived:    s.stats.bytesRecv.Load(),
		MessagesSent:     s.stats.msgsSent.Load(),
		MessagesReceived: s.stats.msgsRecv.Load(),
		Dropped:          s.bridge.Dropped(),
	}
}

// SupportsBroadcast reports whether TargetAll can be used.
func (s *Session) SupportsBroadcast() bool {
	_, ok := s.handler.(protocol.Broadcaster)
	return ok
}
