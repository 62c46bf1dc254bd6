package protocol

import (
	"time"

	"github.com/punisher1/nt/pkg/util"
)

// Kind identifies what a Content value carries.
type Kind int

// Kind constants. Text, Binary and Hex carry payload; the rest are events.
const (
	KindText Kind = iota
	KindBinary
	KindHex
	KindConnected
	KindDisconnected
	KindNotice
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	case KindHex:
		return "hex"
	case KindConnected:
		return "connected"
	case KindDisconnected:
		return "disconnected"
	case KindNotice:
		return "notice"
	default:
		return "unknown"
	}
}

// IsEvent reports whether the kind is a lifecycle event rather than payload.
func (k Kind) IsEvent() bool {
	return k == KindConnected || k == KindDisconnected || k == KindNotice
}

// Content is one payload or event. The zero value is empty text.
type Content struct {
	kind Kind
	text string
	data []byte
}

// Text returns text content.
func Text(s string) Content {
	return Content{kind: KindText, text: s}
}

// Binary returns binary content. The slice is copied.
func Binary(b []byte) Content {
	return Content{kind: KindBinary, data: append([]byte(nil), b...)}
}

// Hex returns hex-rendered text content such as "01 02 AB". It is validated
// lazily by Bytes.
func Hex(s string) Content {
	return Content{kind: KindHex, text: s}
}

// Connected returns the "peer connected" event content.
func Connected() Content {
	return Content{kind: KindConnected, text: "client connected"}
}

// Disconnected returns the "peer disconnected" event content.
func Disconnected() Content {
	return Content{kind: KindDisconnected, text: "client disconnected"}
}

// Notice returns a status or error notice.
func Notice(s string) Content {
	return Content{kind: KindNotice, text: s}
}

// Kind returns the content kind.
func (c Content) Kind() Kind { return c.kind }

// Bytes returns the wire bytes for payload kinds. Hex content fails on
// malformed input; event kinds return ErrNotSendable.
func (c Content) Bytes() ([]byte, error) {
	switch c.kind {
	case KindText:
		return []byte(c.text), nil
	case KindBinary:
		return append([]byte(nil), c.data...), nil
	case KindHex:
		return util.HexToBytes(c.text)
	default:
		return nil, ErrNotSendable
	}
}

// Len returns the payload size in bytes, or 0 for events and invalid hex.
func (c Content) Len() int {
	switch c.kind {
	case KindText:
		return len(c.text)
	case KindBinary:
		return len(c.data)
	case KindHex:
		b, err := util.HexToBytes(c.text)
		if err != nil {
			return 0
		}
		return len(b)
	default:
		return 0
	}
}

// String renders the content for display. Binary payloads are rendered as
// spaced hex.
func (c Content) String() string {
	if c.kind == KindBinary {
		return util.BytesToHex(c.data)
	}
	return c.text
}

// Direction tells whether a message was received from or sent to a peer.
type Direction int

// Direction constants.
const (
	Received Direction = iota
	Sent
)

// String returns "received" or "sent".
func (d Direction) String() string {
	if d == Sent {
		return "sent"
	}
	return "received"
}

// ConnectionInfo identifies a peer for its lifetime.
type ConnectionInfo struct {
	// ID is the stable registry key, usually the remote address rendering.
	ID string `json:"id"`

	// RemoteAddr is the peer's network address.
	RemoteAddr string `json:"remoteAddr"`

	// ConnectedAt is when the peer was registered.
	ConnectedAt time.Time `json:"connectedAt"`
}

// Message is one unit of traffic or one lifecycle event. Messages are
// immutable; accessors return copies where aliasing is possible.
type Message struct {
	content   Content
	direction Direction
	timestamp time.Time
	conn      *ConnectionInfo
}

// NewReceived builds an inbound message stamped with the current time.
func NewReceived(content Content, conn *ConnectionInfo) Message {
	return newMessage(content, Received, conn)
}

// NewSent builds an outbound message stamped with the current time.
func NewSent(content Content, conn *ConnectionInfo) Message {
	return newMessage(content, Sent, conn)
}

func newMessage(content Content, dir Direction, conn *ConnectionInfo) Message {
	m := Message{content: content, direction: dir, timestamp: time.Now()}
	if conn != nil {
		info := *conn
		m.conn = &info
	}
	return m
}

// Content returns the message content.
func (m Message) Content() Content { return m.content }

// Direction returns the message direction.
func (m Message) Direction() Direction { return m.direction }

// Timestamp returns when the message was created.
func (m Message) Timestamp() time.Time { return m.timestamp }

// Connection returns the peer the message belongs to, if any.
func (m Message) Connection() (ConnectionInfo, bool) {
	if m.conn == nil {
		return ConnectionInfo{}, false
	}
	return *m.conn, true
}

// ConnectionID returns the peer ID or "" when the message has no peer.
func (m Message) ConnectionID() string {
	if m.conn == nil {
		return ""
	}
	return m.conn.ID
}
