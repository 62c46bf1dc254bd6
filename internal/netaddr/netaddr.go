// Package netaddr resolves the address arguments accepted on the command line.
package netaddr

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/punisher1/nt/pkg/protocol"
)

// ErrInvalidAddress is returned for anything that is neither a port nor a
// host:port pair.
const ErrInvalidAddress = protocol.ErrInvalidAddress

// DefaultHost is used when only a port is given.
const DefaultHost = "127.0.0.1"

// Parse resolves s to host:port form. A bare port becomes 127.0.0.1:<port>.
// Port 0 is accepted so callers can ask the OS for a free port.
func Parse(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	if port, err := strconv.Atoi(s); err == nil {
		if port < 0 || port > 65535 {
			return "", fmt.Errorf("%w: port %d out of range", ErrInvalidAddress, port)
		}
		return net.JoinHostPort(DefaultHost, strconv.Itoa(port)), nil
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", fmt.Errorf("%w: %q: bad port", ErrInvalidAddress, s)
	}
	if host == "" {
		host = DefaultHost
	}
	return net.JoinHostPort(host, portStr), nil
}

// IsHostPort reports whether s already looks like host:port.
func IsHostPort(s string) bool {
	_, _, err := net.SplitHostPort(s)
	return err == nil
}
