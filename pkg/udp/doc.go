// Package udp implements the UDP server and client handlers.
//
// UDP has no accept step. The server registers a peer the first time a
// datagram arrives from a new source address and forgets it after
// IdleTimeout of silence. All sends go out on the one shared socket.
package udp
