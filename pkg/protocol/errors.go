package protocol

import "fmt"

// Error is a simple error type for protocol errors.
// It allows defining sentinel errors as constants.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Sentinel errors shared by every handler.
const (
	// ErrNotRunning is returned by Send when the handler has not been started
	// or has already been stopped.
	ErrNotRunning = Error("handler is not running")

	// ErrAlreadyRunning is returned when Start is called on a handler that is
	// starting or running.
	ErrAlreadyRunning = Error("handler is already running")

	// ErrStopped is returned when Start is called on a handler that has been
	// stopped. Stopped is terminal; build a new handler instead.
	ErrStopped = Error("handler has been stopped")

	// ErrConnectionNotFound is returned when a send target does not name a
	// live peer.
	ErrConnectionNotFound = Error("no such connection")

	// ErrConnectionExists is returned when a peer ID is already registered.
	ErrConnectionExists = Error("connection already registered")

	// ErrConnectionBusy is returned when a peer's outbound queue is full.
	ErrConnectionBusy = Error("connection send queue is full")

	// ErrUnsupportedProtocol is returned by the dispatcher for unknown
	// protocol names or role combinations.
	ErrUnsupportedProtocol = Error("unsupported protocol")

	// ErrNotSendable is returned when an event-only content kind is sent.
	ErrNotSendable = Error("content is not sendable")

	// ErrBridgeFull is returned when the outbound bridge channel is saturated.
	ErrBridgeFull = Error("outbound queue is full")

	// ErrBroadcastUnsupported is returned when the broadcast target is used
	// with a handler that cannot fan out.
	ErrBroadcastUnsupported = Error("handler does not support broadcast")

	// ErrInvalidAddress is returned for a listen or peer address that is
	// neither a port nor a host:port pair.
	ErrInvalidAddress = Error("invalid address")
)

// StartError reports a bind or connect failure from Start.
// The handler stays in its created state after a StartError.
type StartError struct {
	Protocol Protocol
	Role     Role
	Addr     string
	Err      error
}

// Error implements the error interface.
func (e *StartError) Error() string {
	op := "bind"
	if e.Role == RoleClient {
		op = "connect"
	}
	return fmt.Sprintf("%s %s: %s %s: %v", e.Protocol.DisplayName(), e.Role, op, e.Addr, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *StartError) Unwrap() error { return e.Err }

// UnsupportedProtocolError names the protocol the dispatcher could not resolve.
type UnsupportedProtocolError struct {
	Name string
}

// Error implements the error interface.
func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedProtocol, e.Name)
}

// Is makes errors.Is(err, ErrUnsupportedProtocol) hold.
func (e *UnsupportedProtocolError) Is(target error) bool {
	return target == ErrUnsupportedProtocol
}
