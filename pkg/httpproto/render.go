package httpproto

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/punisher1/nt/pkg/protocol"
	"github.com/punisher1/nt/pkg/util"
)

// MaxBodySize caps request and response bodies read into messages.
const MaxBodySize = 1 << 20

// renderRequest renders a request the way it would look on an HTTP/1.1 wire.
func renderRequest(r *http.Request, body []byte) string {
	var b strings.Builder
	uri := r.URL.RequestURI()
	if r.URL.IsAbs() || uri == "" {
		uri = r.URL.String()
	}
	fmt.Fprintf(&b, "%s %s %s\n", r.Method, uri, protoOf(r.Proto, r.ProtoMajor))
	if r.Host != "" {
		fmt.Fprintf(&b, "Host: %s\n", r.Host)
	} else if r.URL.Host != "" {
		fmt.Fprintf(&b, "Host: %s\n", r.URL.Host)
	}
	writeHeaders(&b, r.Header)
	writeBody(&b, body)
	return b.String()
}

// renderResponse renders a response status line, headers and body.
func renderResponse(resp *http.Response, body []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", protoOf(resp.Proto, resp.ProtoMajor), resp.Status)
	writeHeaders(&b, resp.Header)
	writeBody(&b, body)
	return b.String()
}

func protoOf(proto string, major int) string {
	if proto != "" {
		return proto
	}
	return fmt.Sprintf("HTTP/%d", major)
}

func writeHeaders(b *strings.Builder, h http.Header) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range h[k] {
			fmt.Fprintf(b, "%s: %s\n", k, v)
		}
	}
}

func writeBody(b *strings.Builder, body []byte) {
	if len(body) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(util.BytesToString(body))
}

// contentTypeOf picks a Content-Type for a response body.
func contentTypeOf(content protocol.Content) string {
	switch content.Kind() {
	case protocol.KindBinary, protocol.KindHex:
		return "application/octet-stream"
	}
	if util.LooksLikeJSON(content.String()) {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// ParseHeaders parses "Key: Value" lines. Blank lines are skipped; a line
// without a colon is an error.
func ParseHeaders(lines []string) (http.Header, error) {
	h := http.Header{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Key: Value'", line)
		}
		h.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return h, nil
}
