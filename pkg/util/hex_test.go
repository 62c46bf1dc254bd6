package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToHex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, ""},
		{"single byte", []byte{0x0a}, "0A"},
		{"spaced upper case", []byte{0x01, 0x02, 0xab, 0xff}, "01 02 AB FF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BytesToHex(tt.in))
		})
	}
}

func TestHexToBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"spaced", "01 02 AB FF", []byte{0x01, 0x02, 0xab, 0xff}, false},
		{"compact lower case", "0102abff", []byte{0x01, 0x02, 0xab, 0xff}, false},
		{"tabs and newlines", "01\t02\n03", []byte{0x01, 0x02, 0x03}, false},
		{"empty", "", []byte{}, false},
		{"odd length", "ABC", nil, true},
		{"invalid characters", "ZZ", nil, true},
		{"invalid second pair", "01 G2", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := HexToBytes(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHexToBytes_OddLengthSentinel(t *testing.T) {
	t.Parallel()

	_, err := HexToBytes("1 23")
	assert.ErrorIs(t, err, ErrOddHexLength)
}

func TestHexRoundTrip(t *testing.T) {
	t.Parallel()

	in := []byte{0x00, 0x7f, 0x80, 0xfe}
	out, err := HexToBytes(BytesToHex(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
