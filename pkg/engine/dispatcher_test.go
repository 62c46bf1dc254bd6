package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punisher1/nt/pkg/protocol"
	nttest "github.com/punisher1/nt/pkg/testing"
)

func TestNew_AllVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		proto     protocol.Protocol
		role      protocol.Role
		name      string
		transport protocol.TransportType
	}{
		{protocol.ProtocolTCP, protocol.RoleServer, "TCP Server", protocol.TransportTCP},
		{protocol.ProtocolTCP, protocol.RoleClient, "TCP Client", protocol.TransportTCP},
		{protocol.ProtocolUDP, protocol.RoleServer, "UDP Server", protocol.TransportUDP},
		{protocol.ProtocolUDP, protocol.RoleClient, "UDP Client", protocol.TransportUDP},
		{protocol.ProtocolWebSocket, protocol.RoleServer, "WebSocket Server", protocol.TransportWebSocket},
		{protocol.ProtocolWebSocket, protocol.RoleClient, "WebSocket Client", protocol.TransportWebSocket},
		{protocol.ProtocolHTTP, protocol.RoleServer, "HTTP Server", protocol.TransportHTTP1},
		{protocol.ProtocolHTTP, protocol.RoleClient, "HTTP Client", protocol.TransportHTTP1},
		{protocol.ProtocolHTTP2, protocol.RoleServer, "HTTP/2 Server", protocol.TransportHTTP2},
		{protocol.ProtocolHTTP2, protocol.RoleClient, "HTTP/2 Client", protocol.TransportHTTP2},
		{protocol.ProtocolHTTP3, protocol.RoleServer, "HTTP/3 Server", protocol.TransportQUIC},
		{protocol.ProtocolHTTP3, protocol.RoleClient, "HTTP/3 Client", protocol.TransportQUIC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spec := Spec{Protocol: tt.proto, Role: tt.role, LocalAddr: "127.0.0.1:0"}
			if tt.role == protocol.RoleClient {
				spec.LocalAddr = ""
				spec.RemoteAddr = "127.0.0.1:9"
			}
			h, err := New(spec, nttest.NewRecorder(), Options{})
			require.NoError(t, err)

			assert.Equal(t, tt.name, h.Name())
			meta := h.Metadata()
			assert.Equal(t, tt.proto, meta.Protocol)
			assert.Equal(t, tt.role, meta.Role)
			assert.Equal(t, tt.transport, meta.TransportType)
			assert.False(t, h.IsRunning())
			assert.Empty(t, h.Connections())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(Spec{Protocol: "gopher", Role: protocol.RoleServer, LocalAddr: ":70"}, nil, Options{})
	assert.ErrorIs(t, err, protocol.ErrUnsupportedProtocol)

	_, err = New(Spec{Protocol: "gopher", Role: protocol.RoleClient, RemoteAddr: "x:70"}, nil, Options{})
	assert.ErrorIs(t, err, protocol.ErrUnsupportedProtocol)

	_, err = New(Spec{Protocol: protocol.ProtocolTCP, Role: "peer", LocalAddr: ":1"}, nil, Options{})
	assert.ErrorIs(t, err, protocol.ErrUnsupportedProtocol)

	_, err = New(Spec{Protocol: protocol.ProtocolTCP, Role: protocol.RoleServer}, nil, Options{})
	assert.ErrorIs(t, err, ErrMissingAddress)

	_, err = New(Spec{Protocol: protocol.ProtocolUDP, Role: protocol.RoleClient, LocalAddr: ":1"}, nil, Options{})
	assert.ErrorIs(t, err, ErrMissingAddress)
}
