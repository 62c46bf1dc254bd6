// Package protocol defines the contract shared by every nt protocol handler
// and the pieces every handler is built from.
//
// # Handler Contract
//
// Handler is implemented once per (protocol, role): TCP, UDP, WebSocket,
// HTTP, HTTP/2 and HTTP/3, each as server and client. A handler is built
// idle, started explicitly, and stopped explicitly:
//
//	h := tcp.NewServer(tcp.ServerConfig{Addr: "127.0.0.1:0", Sink: bridge})
//	if err := h.Start(ctx); err != nil {
//	    var se *protocol.StartError
//	    if errors.As(err, &se) { ... } // bind failed, handler still idle
//	}
//	defer h.Stop(ctx)
//
// # Message Model
//
// Message values are immutable. Handlers create them on receipt, on send and
// on peer connect/disconnect, and push them into a Sink. For every peer a
// Connected message precedes its payload messages, which precede its
// Disconnected message.
//
// # Building Blocks
//
//   - Lifecycle: the Created -> Starting -> Running -> Stopping -> Stopped
//     state machine.
//   - Peers: the per-handler live-peer registry behind a single RWMutex.
//   - Gate: stops emissions once Stop has returned.
//   - Bridge: bounded inbound/outbound channels between a handler and the
//     presentation layer, with a bounded-wait-then-drop inbound policy.
//   - Registry: the set of active handler instances.
package protocol
