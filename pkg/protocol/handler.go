package protocol

import "context"

// TargetAll is the explicit broadcast selector. Handlers that implement
// Broadcaster fan a send out to every live peer when it is used.
const TargetAll = "*"

// Handler is the contract every protocol variant implements, for each of
// {TCP, UDP, WebSocket, HTTP, HTTP/2, HTTP/3} x {server, client}.
//
// A handler is constructed idle. Start performs the bind or connect and
// returns once the handler is listening or connected; background work runs in
// goroutines owned by the handler. Inbound traffic is pushed to the Sink the
// handler was built with, never returned from a method.
type Handler interface {
	// Metadata returns descriptive information about the handler.
	Metadata() Metadata

	// Start binds or connects, spawns background work and returns.
	// Bind/connect failures are returned as *StartError and leave the handler
	// in its created state. Calling Start on a running handler returns
	// ErrAlreadyRunning.
	Start(ctx context.Context) error

	// Stop requests shutdown of background work and releases bound resources.
	// It is a no-op when the handler is not running. After Stop returns no
	// further messages are emitted; queued writes are flushed best-effort.
	Stop(ctx context.Context) error

	// Send enqueues content for a peer. Servers require target to name a
	// live peer; clients ignore target. Returns ErrNotRunning,
	// ErrConnectionNotFound or ErrConnectionBusy.
	Send(content Content, target string) error

	// Connections returns a point-in-time snapshot of live peers.
	// It never blocks on network I/O.
	Connections() []ConnectionInfo

	// IsRunning reports whether the handler is in its running state.
	IsRunning() bool

	// Name returns the display name, e.g. "TCP Server".
	Name() string
}

// Broadcaster handlers can send one payload to every live peer.
type Broadcaster interface {
	// Broadcast enqueues content for every live peer and returns how many
	// peers accepted it. Peers with a full queue are skipped.
	Broadcast(content Content) (sent int, err error)
}

// Addressable handlers expose the address they bound or connected from.
// Useful when starting on port 0.
type Addressable interface {
	// Addr returns the local address, or "" before Start.
	Addr() string
}

// Metadata provides descriptive information about a handler.
type Metadata struct {
	// ID is unique per (protocol, role, address) and keys the handler Registry.
	ID string `json:"id"`

	// Protocol identifies the protocol type.
	Protocol Protocol `json:"protocol"`

	// Role is server or client.
	Role Role `json:"role"`

	// TransportType indicates the underlying transport mechanism.
	TransportType TransportType `json:"transportType"`

	// ConnectionModel describes how peers are created.
	ConnectionModel ConnectionModel `json:"connectionModel"`

	// Address is the configured local (server) or remote (client) address.
	Address string `json:"address"`
}

// HandlerName renders the display name shared by every handler.
func HandlerName(p Protocol, r Role) string {
	return p.DisplayName() + " " + r.DisplayName()
}

// HandlerID renders the registry ID shared by every handler.
func HandlerID(p Protocol, r Role, addr string) string {
	return string(p) + "-" + string(r) + "@" + addr
}
