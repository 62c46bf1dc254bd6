package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent_Bytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content Content
		want    []byte
		wantErr error
	}{
		{name: "text", content: Text("hi"), want: []byte("hi")},
		{name: "binary", content: Binary([]byte{0, 1}), want: []byte{0, 1}},
		{name: "hex", content: Hex("0a 0B"), want: []byte{0x0a, 0x0b}},
		{name: "connected", content: Connected(), wantErr: ErrNotSendable},
		{name: "notice", content: Notice("x"), wantErr: ErrNotSendable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.content.Bytes()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), tt.content.Len())
		})
	}

	_, err := Hex("abc").Bytes()
	assert.Error(t, err, "odd-length hex must fail")
	assert.Equal(t, 0, Hex("zz").Len())
}

func TestContent_Immutable(t *testing.T) {
	t.Parallel()

	src := []byte{1, 2, 3}
	c := Binary(src)
	src[0] = 9

	b, err := c.Bytes()
	require.NoError(t, err)
	assert.Equal(t, byte(1), b[0])

	b[1] = 9
	again, _ := c.Bytes()
	assert.Equal(t, byte(2), again[1])
	assert.Equal(t, "01 02 03", c.String())
}

func TestMessage(t *testing.T) {
	t.Parallel()

	info := &ConnectionInfo{ID: "peer"}
	m := NewReceived(Text("x"), info)
	info.ID = "changed"

	assert.Equal(t, Received, m.Direction())
	assert.Equal(t, "peer", m.ConnectionID())
	assert.False(t, m.Timestamp().IsZero())

	s := NewSent(Text("y"), nil)
	assert.Equal(t, Sent, s.Direction())
	assert.Equal(t, "", s.ConnectionID())
	_, ok := s.Connection()
	assert.False(t, ok)

	assert.True(t, KindConnected.IsEvent())
	assert.False(t, KindHex.IsEvent())
}
