package netaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punisher1/nt/pkg/protocol"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare port", "8080", "127.0.0.1:8080", false},
		{"port zero", "0", "127.0.0.1:0", false},
		{"host and port", "0.0.0.0:9000", "0.0.0.0:9000", false},
		{"hostname", "localhost:80", "localhost:80", false},
		{"empty host", ":7000", "127.0.0.1:7000", false},
		{"ipv6", "[::1]:443", "[::1]:443", false},
		{"whitespace", " 8080 ", "127.0.0.1:8080", false},
		{"empty", "", "", true},
		{"garbage", "not an address", "", true},
		{"port out of range", "70000", "", true},
		{"bad port", "localhost:http", "", true},
		{"missing port", "localhost", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsHostPort(t *testing.T) {
	t.Parallel()

	assert.True(t, IsHostPort("127.0.0.1:80"))
	assert.False(t, IsHostPort("ws://127.0.0.1:80"))
	assert.False(t, IsHostPort("8080"))
}

func TestParse_ErrorIsProtocolSentinel(t *testing.T) {
	t.Parallel()

	_, err := Parse("localhost")
	require.ErrorIs(t, err, protocol.ErrInvalidAddress)

	var perr protocol.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protocol.ErrInvalidAddress, perr)
	assert.Contains(t, err.Error(), `"localhost"`)
}
