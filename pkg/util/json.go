package util

import (
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

// FormatJSON pretty-prints s with two-space indentation. Input that is not
// valid JSON is returned unchanged.
func FormatJSON(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	v, err := oj.ParseString(trimmed)
	if err != nil {
		return s
	}
	return oj.JSON(v, &ojg.Options{Indent: 2})
}

// LooksLikeJSON reports whether s starts like a JSON object or array.
func LooksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
