package websocket

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	ws "github.com/coder/websocket"
	"github.com/gorilla/websocket"

	"github.com/punisher1/nt/pkg/protocol"
	"github.com/punisher1/nt/pkg/util"
)

// CloseTimeout bounds the close handshake.
const CloseTimeout = time.Second

type frame struct {
	content protocol.Content
	data    []byte
	binary  bool
}

func newFrame(content protocol.Content) (frame, error) {
	data, err := content.Bytes()
	if err != nil {
		return frame{}, err
	}
	return frame{
		content: content,
		data:    data,
		binary:  content.Kind() != protocol.KindText,
	}, nil
}

// wireConn hides the two WebSocket libraries behind the operations the peer
// tasks need. One goroutine reads and one writes; close may be called from
// anywhere.
type wireConn interface {
	readFrame(ctx context.Context) (protocol.Content, error)
	writeFrame(ctx context.Context, f frame) error
	close(code int, reason string) error
	forceClose() error
}

// coderConn adapts a server-side github.com/coder/websocket connection.
type coderConn struct {
	conn *ws.Conn
}

func (c coderConn) readFrame(ctx context.Context) (protocol.Content, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return protocol.Content{}, err
	}
	if typ == ws.MessageBinary {
		return protocol.Binary(data), nil
	}
	return protocol.Text(util.BytesToString(data)), nil
}

func (c coderConn) writeFrame(ctx context.Context, f frame) error {
	typ := ws.MessageText
	if f.binary {
		typ = ws.MessageBinary
	}
	return c.conn.Write(ctx, typ, f.data)
}

func (c coderConn) close(code int, reason string) error {
	return c.conn.Close(ws.StatusCode(code), reason)
}

func (c coderConn) forceClose() error {
	return c.conn.CloseNow()
}

// gorillaConn adapts a client-side github.com/gorilla/websocket connection.
type gorillaConn struct {
	conn *websocket.Conn
}

func (g gorillaConn) readFrame(_ context.Context) (protocol.Content, error) {
	typ, data, err := g.conn.ReadMessage()
	if err != nil {
		return protocol.Content{}, err
	}
	if typ == websocket.BinaryMessage {
		return protocol.Binary(data), nil
	}
	return protocol.Text(util.BytesToString(data)), nil
}

func (g gorillaConn) writeFrame(ctx context.Context, f frame) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = g.conn.SetWriteDeadline(deadline)
	}
	typ := websocket.TextMessage
	if f.binary {
		typ = websocket.BinaryMessage
	}
	return g.conn.WriteMessage(typ, f.data)
}

func (g gorillaConn) close(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = g.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(CloseTimeout))
	return g.conn.Close()
}

func (g gorillaConn) forceClose() error {
	return g.conn.Close()
}

// isClosedErr reports errors that mean the peer went away normally.
func isClosedErr(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return true
	}
	switch ws.CloseStatus(err) {
	case ws.StatusNormalClosure, ws.StatusGoingAway, ws.StatusNoStatusRcvd:
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
