// Package engine turns a resolved request into a running handler.
//
// New is the factory: it maps (protocol, role) to the matching handler
// constructor. Session wraps that handler with a protocol.Bridge, an
// outbound pump and traffic counters, which is everything a presentation
// layer needs to drive it.
package engine
