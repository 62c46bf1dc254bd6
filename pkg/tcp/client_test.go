package tcp

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punisher1/nt/pkg/protocol"
	nttest "github.com/punisher1/nt/pkg/testing"
)

func listen(t *testing.T) (net.Listener, <-chan net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()
	return ln, accepted
}

func accept(t *testing.T, accepted <-chan net.Conn) net.Conn {
	t.Helper()

	select {
	case conn := <-accepted:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(nttest.DefaultWait):
		t.Fatal("no connection accepted")
		return nil
	}
}

func TestClient_Exchange(t *testing.T) {
	t.Parallel()

	ln, accepted := listen(t)
	rec := nttest.NewRecorder()
	c := NewClient(ClientConfig{RemoteAddr: ln.Addr().String(), Sink: rec})
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	server := accept(t, accepted)
	id := ln.Addr().String()

	rec.WaitCount(t, protocol.KindConnected, id, 1)
	require.Len(t, c.Connections(), 1)
	assert.Equal(t, server.RemoteAddr().String(), c.Addr())

	_, err := server.Write([]byte("hi"))
	require.NoError(t, err)
	rec.WaitPayload(t, protocol.Received, id, "hi")

	require.NoError(t, c.Send(protocol.Text("yo"), "ignored"))
	buf := make([]byte, 2)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, "yo", string(buf))
	rec.WaitPayload(t, protocol.Sent, id, "yo")
}

func TestClient_ServerCloses(t *testing.T) {
	t.Parallel()

	ln, accepted := listen(t)
	rec := nttest.NewRecorder()
	c := NewClient(ClientConfig{RemoteAddr: ln.Addr().String(), Sink: rec})
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	server := accept(t, accepted)
	require.NoError(t, server.Close())

	rec.WaitCount(t, protocol.KindDisconnected, ln.Addr().String(), 1)
	assert.Empty(t, c.Connections())
	assert.True(t, c.IsRunning())
	assert.ErrorIs(t, c.Send(protocol.Text("x"), ""), protocol.ErrConnectionNotFound)
}

func TestClient_ConnectFailure(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := NewClient(ClientConfig{RemoteAddr: addr, DialTimeout: time.Second})
	err = c.Start(context.Background())

	var se *protocol.StartError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, protocol.RoleClient, se.Role)
	assert.Contains(t, err.Error(), "connect")
	assert.False(t, c.IsRunning())
	assert.ErrorIs(t, c.Send(protocol.Text("x"), ""), protocol.ErrNotRunning)
}

func TestClient_LocalBind(t *testing.T) {
	t.Parallel()

	ln, accepted := listen(t)
	c := NewClient(ClientConfig{LocalAddr: "127.0.0.1:0", RemoteAddr: ln.Addr().String()})
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	server := accept(t, accepted)
	assert.Equal(t, server.RemoteAddr().String(), c.Addr())
}

func TestClient_BadLocalAddr(t *testing.T) {
	t.Parallel()

	c := NewClient(ClientConfig{LocalAddr: "not-an-addr", RemoteAddr: "127.0.0.1:1"})
	var se *protocol.StartError
	require.ErrorAs(t, c.Start(context.Background()), &se)
}
