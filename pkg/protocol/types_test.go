package protocol

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProtocol(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Protocol
	}{
		{"tcp", ProtocolTCP},
		{"UDP", ProtocolUDP},
		{"ws", ProtocolWebSocket},
		{"websocket", ProtocolWebSocket},
		{"http", ProtocolHTTP},
		{"h2", ProtocolHTTP2},
		{" http3 ", ProtocolHTTP3},
	}
	for _, tt := range tests {
		got, err := ParseProtocol(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseProtocol("gopher")
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)
	assert.Contains(t, err.Error(), `"gopher"`)
}

func TestHandlerNaming(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "HTTP/2 Client", HandlerName(ProtocolHTTP2, RoleClient))
	assert.Equal(t, "udp-server@:9000", HandlerID(ProtocolUDP, RoleServer, ":9000"))
	assert.Len(t, Protocols(), 6)
}

func TestStartError(t *testing.T) {
	t.Parallel()

	err := error(&StartError{Protocol: ProtocolTCP, Role: RoleServer, Addr: "127.0.0.1:80", Err: syscall.EADDRINUSE})
	assert.Equal(t, "TCP server: bind 127.0.0.1:80: "+syscall.EADDRINUSE.Error(), err.Error())
	assert.True(t, errors.Is(err, syscall.EADDRINUSE))

	err = &StartError{Protocol: ProtocolUDP, Role: RoleClient, Addr: "x:1", Err: errors.New("refused")}
	assert.Equal(t, "UDP client: connect x:1: refused", err.Error())
}
