package protocol

import "strings"

// Protocol identifies the protocol type.
type Protocol string

// Protocol constants for all supported protocols.
const (
	ProtocolTCP       Protocol = "tcp"
	ProtocolUDP       Protocol = "udp"
	ProtocolWebSocket Protocol = "websocket"
	ProtocolHTTP      Protocol = "http"
	ProtocolHTTP2     Protocol = "http2"
	ProtocolHTTP3     Protocol = "http3"
)

// String returns the string representation of the protocol.
func (p Protocol) String() string {
	return string(p)
}

// DisplayName returns the human-readable protocol name used in titles.
func (p Protocol) DisplayName() string {
	switch p {
	case ProtocolTCP:
		return "TCP"
	case ProtocolUDP:
		return "UDP"
	case ProtocolWebSocket:
		return "WebSocket"
	case ProtocolHTTP:
		return "HTTP"
	case ProtocolHTTP2:
		return "HTTP/2"
	case ProtocolHTTP3:
		return "HTTP/3"
	default:
		return string(p)
	}
}

// ParseProtocol resolves a protocol name or alias. Matching is case-insensitive.
// Returns ErrUnsupportedProtocol for unrecognized names.
func ParseProtocol(name string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tcp":
		return ProtocolTCP, nil
	case "udp":
		return ProtocolUDP, nil
	case "websocket", "ws":
		return ProtocolWebSocket, nil
	case "http", "http1", "http/1.1":
		return ProtocolHTTP, nil
	case "http2", "h2", "http/2":
		return ProtocolHTTP2, nil
	case "http3", "h3", "http/3":
		return ProtocolHTTP3, nil
	default:
		return "", &UnsupportedProtocolError{Name: name}
	}
}

// Protocols returns every supported protocol in display order.
func Protocols() []Protocol {
	return []Protocol{
		ProtocolTCP, ProtocolUDP, ProtocolWebSocket,
		ProtocolHTTP, ProtocolHTTP2, ProtocolHTTP3,
	}
}

// Role is the side of the conversation a handler plays.
type Role string

// Role constants.
const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns "Server" or "Client".
func (r Role) DisplayName() string {
	if r == RoleServer {
		return "Server"
	}
	return "Client"
}

// TransportType indicates the underlying transport mechanism.
type TransportType string

// TransportType constants for all supported transports.
const (
	TransportTCP       TransportType = "tcp"
	TransportUDP       TransportType = "udp"
	TransportWebSocket TransportType = "websocket"
	TransportHTTP1     TransportType = "http1"
	TransportHTTP2     TransportType = "http2"
	TransportQUIC      TransportType = "quic"
)

// String returns the string representation of the transport type.
func (t TransportType) String() string {
	return string(t)
}

// ConnectionModel describes how peers come and go.
type ConnectionModel string

// ConnectionModel constants for all supported models.
const (
	ConnectionModelStream      ConnectionModel = "stream"      // one peer per accepted connection
	ConnectionModelDatagram    ConnectionModel = "datagram"    // peer created on first packet from a source
	ConnectionModelMultiplexed ConnectionModel = "multiplexed" // peer per request or stream
)

// String returns the string representation of the connection model.
func (c ConnectionModel) String() string {
	return string(c)
}
