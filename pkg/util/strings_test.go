package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		maxSize int
		want    string
	}{
		{"short body unchanged", "hello", 10, "hello"},
		{"exact size unchanged", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello...(truncated)"},
		{"empty body", "", 10, ""},
		{"default max size", strings.Repeat("a", MaxLogBodySize+1), 0, strings.Repeat("a", MaxLogBodySize) + "...(truncated)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TruncateBody(tt.data, tt.maxSize))
		})
	}
}

func TestBytesToString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hi", BytesToString([]byte("hi")))
	assert.Equal(t, "a�b", BytesToString([]byte{'a', 0xff, 'b'}))
	assert.Equal(t, "", BytesToString(nil))
	assert.Equal(t, []byte("héllo"), StringToBytes("héllo"))
}
