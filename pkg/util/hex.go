package util

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrOddHexLength is returned by HexToBytes for an odd number of digits.
var ErrOddHexLength = errors.New("invalid hex string length")

// BytesToHex renders b as upper-case byte pairs separated by spaces,
// e.g. "01 02 AB FF". An empty slice renders as "".
func BytesToHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	const digits = "0123456789ABCDEF"
	out := make([]byte, 0, len(b)*3-1)
	for i, c := range b {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, digits[c>>4], digits[c&0x0f])
	}
	return string(out)
}

// HexToBytes parses hex digits, ignoring whitespace between them. It fails
// on an odd digit count or any non-hex character rather than truncating.
func HexToBytes(s string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if len(compact)%2 != 0 {
		return nil, ErrOddHexLength
	}

	out := make([]byte, len(compact)/2)
	for i := 0; i < len(compact); i += 2 {
		if _, err := hex.Decode(out[i/2:i/2+1], []byte(compact[i:i+2])); err != nil {
			return nil, fmt.Errorf("invalid hex characters: %q", compact[i:i+2])
		}
	}
	return out, nil
}
