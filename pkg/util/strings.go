package util

import "strings"

// MaxLogBodySize is the default maximum body size for logging (10KB).
const MaxLogBodySize = 10 * 1024

// TruncateBody truncates a string to maxSize bytes, appending "...(truncated)" if truncated.
// If maxSize <= 0, uses MaxLogBodySize.
func TruncateBody(data string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxLogBodySize
	}
	if len(data) > maxSize {
		return data[:maxSize] + "...(truncated)"
	}
	return data
}

// BytesToString decodes b as UTF-8, replacing each invalid sequence with
// U+FFFD.
func BytesToString(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// StringToBytes returns the UTF-8 bytes of s.
func StringToBytes(s string) []byte {
	return []byte(s)
}
