package tui

import (
	"fmt"
	"strings"

	"github.com/punisher1/nt/pkg/protocol"
	"github.com/punisher1/nt/pkg/util"
)

// MaxLines is how many messages a pane keeps.
const MaxLines = 500

// ViewMode controls how payloads are rendered.
type ViewMode struct {
	Hex  bool
	JSON bool
}

const timeFormat = "15:04:05.000"

// FormatMessage renders one message as a pane entry.
func FormatMessage(msg protocol.Message, mode ViewMode) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(msg.Timestamp().Format(timeFormat))
	b.WriteString("]")
	if id := msg.ConnectionID(); id != "" {
		b.WriteString(" ")
		b.WriteString(id)
	}

	c := msg.Content()
	switch c.Kind() {
	case protocol.KindConnected, protocol.KindDisconnected:
		fmt.Fprintf(&b, " -- %s", c.String())
		return b.String()
	case protocol.KindNotice:
		fmt.Fprintf(&b, " !! %s", c.String())
		return b.String()
	}

	arrow := "<-"
	if msg.Direction() == protocol.Sent {
		arrow = "->"
	}
	fmt.Fprintf(&b, " %s (%d B)\n", arrow, c.Len())
	b.WriteString(RenderPayload(c, mode))
	return b.String()
}

// RenderPayload renders payload content in the requested view.
func RenderPayload(c protocol.Content, mode ViewMode) string {
	if mode.Hex {
		if data, err := c.Bytes(); err == nil {
			return util.BytesToHex(data)
		}
	}
	s := c.String()
	if mode.JSON && c.Kind() == protocol.KindText {
		return formatJSONBody(s)
	}
	return s
}

// formatJSONBody pretty-prints s, or the body part of an HTTP rendering.
func formatJSONBody(s string) string {
	if util.LooksLikeJSON(s) {
		return util.FormatJSON(s)
	}
	if head, body, ok := strings.Cut(s, "\n\n"); ok && util.LooksLikeJSON(body) {
		return head + "\n\n" + util.FormatJSON(body)
	}
	return s
}
