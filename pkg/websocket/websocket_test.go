package websocket

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punisher1/nt/pkg/protocol"
	nttest "github.com/punisher1/nt/pkg/testing"
)

func startServer(t *testing.T) (*Server, *nttest.Recorder) {
	t.Helper()

	rec := nttest.NewRecorder()
	srv := NewServer(ServerConfig{Addr: "127.0.0.1:0", Sink: rec})
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv, rec
}

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(srv.URL()+"/any/path", nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitPeers(t *testing.T, h protocol.Handler, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.Connections()) == n
	}, nttest.DefaultWait, 10*time.Millisecond)
}

func TestServer_SendToOnePeer(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t)
	a := dial(t, srv)
	b := dial(t, srv)
	waitPeers(t, srv, 2)

	require.NoError(t, srv.Send(protocol.Text("hello"), a.LocalAddr().String()))

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, data, err := a.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, b.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = b.ReadMessage()
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestServer_FrameKinds(t *testing.T) {
	t.Parallel()

	srv, rec := startServer(t)
	a := dial(t, srv)
	id := a.LocalAddr().String()
	rec.WaitCount(t, protocol.KindConnected, id, 1)

	require.NoError(t, a.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0xff}))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("text")))
	rec.WaitCount(t, protocol.KindBinary, id, 1)
	rec.WaitCount(t, protocol.KindText, id, 1)
	rec.WaitPayload(t, protocol.Received, id, "01 FF")

	require.NoError(t, srv.Send(protocol.Hex("CA FE"), id))
	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, data, err := a.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	assert.Equal(t, []byte{0xca, 0xfe}, data)
	rec.WaitPayload(t, protocol.Sent, id, "CA FE")
}

func TestServer_Disconnect(t *testing.T) {
	t.Parallel()

	srv, rec := startServer(t)
	a := dial(t, srv)
	b := dial(t, srv)
	waitPeers(t, srv, 2)

	idA := a.LocalAddr().String()
	require.NoError(t, a.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	rec.WaitCount(t, protocol.KindDisconnected, idA, 1)
	waitPeers(t, srv, 1)
	assert.Equal(t, b.LocalAddr().String(), srv.Connections()[0].ID)
	assert.Equal(t, 1, rec.Count(protocol.KindDisconnected, ""))
	nttest.AssertBracketed(t, rec.ForPeer(idA))
}

func TestServer_StopClosesPeers(t *testing.T) {
	t.Parallel()

	srv, rec := startServer(t)
	a := dial(t, srv)
	waitPeers(t, srv, 1)

	type result struct {
		data []byte
		err  error
	}
	results := make(chan result, 2)
	go func() {
		_ = a.SetReadDeadline(time.Now().Add(nttest.DefaultWait))
		for i := 0; i < 2; i++ {
			_, data, err := a.ReadMessage()
			results <- result{data, err}
			if err != nil {
				return
			}
		}
	}()

	require.NoError(t, srv.Send(protocol.Text("last"), a.LocalAddr().String()))
	require.NoError(t, srv.Stop(context.Background()))
	require.NoError(t, srv.Stop(context.Background()))
	assert.False(t, srv.IsRunning())

	first := <-results
	require.NoError(t, first.err)
	assert.Equal(t, "last", string(first.data))

	second := <-results
	assert.True(t, websocket.IsCloseError(second.err, websocket.CloseNormalClosure), "got %v", second.err)

	before := rec.Len()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, rec.Len())
}

func TestServer_SendErrors(t *testing.T) {
	t.Parallel()

	idle := NewServer(ServerConfig{Addr: "127.0.0.1:0"})
	assert.ErrorIs(t, idle.Send(protocol.Text("x"), "a"), protocol.ErrNotRunning)

	srv, _ := startServer(t)
	assert.ErrorIs(t, srv.Send(protocol.Text("x"), "127.0.0.1:1"), protocol.ErrConnectionNotFound)

	n, err := srv.Broadcast(protocol.Text("x"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClient_RoundTrip(t *testing.T) {
	t.Parallel()

	srv, srvRec := startServer(t)

	rec := nttest.NewRecorder()
	c := NewClient(ClientConfig{Remote: srv.Addr(), Sink: rec})
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	waitPeers(t, srv, 1)
	require.Len(t, c.Connections(), 1)
	serverSideID := c.Addr()

	require.NoError(t, c.Send(protocol.Text("from client"), ""))
	srvRec.WaitPayload(t, protocol.Received, serverSideID, "from client")

	require.NoError(t, srv.Send(protocol.Text("from server"), serverSideID))
	rec.WaitPayload(t, protocol.Received, srv.Addr(), "from server")

	require.NoError(t, c.Stop(context.Background()))
	srvRec.WaitCount(t, protocol.KindDisconnected, serverSideID, 1)
	assert.False(t, c.IsRunning())
}

func TestClient_HandshakeFailure(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := NewClient(ClientConfig{Remote: addr})
	var se *protocol.StartError
	require.ErrorAs(t, c.Start(context.Background()), &se)
	assert.False(t, c.IsRunning())
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		secure  bool
		want    string
		wantErr bool
	}{
		{"127.0.0.1:8080", false, "ws://127.0.0.1:8080/", false},
		{"127.0.0.1:8080", true, "wss://127.0.0.1:8080/", false},
		{"ws://example.test/chat", false, "ws://example.test/chat", false},
		{"wss://example.test:9443", false, "wss://example.test:9443/", false},
		{"http://example.test", false, "", true},
		{"ws://", false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tt.in, tt.secure)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
