package httpproto

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punisher1/nt/pkg/protocol"
	nttest "github.com/punisher1/nt/pkg/testing"
)

func startServer(t *testing.T, cfg ServerConfig) (*Server, *nttest.Recorder) {
	t.Helper()

	rec := nttest.NewRecorder()
	cfg.Addr = "127.0.0.1:0"
	cfg.Sink = rec
	srv := NewServer(cfg)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv, rec
}

type result struct {
	status int
	body   string
	err    error
}

func post(client *http.Client, url, body string) <-chan result {
	ch := make(chan result, 1)
	go func() {
		resp, err := client.Post(url, "text/plain", strings.NewReader(body))
		if err != nil {
			ch <- result{err: err}
			return
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		ch <- result{status: resp.StatusCode, body: string(data), err: err}
	}()
	return ch
}

func awaitResult(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for response")
		return result{}
	}
}

func firstPeer(t *testing.T, rec *nttest.Recorder) string {
	t.Helper()
	rec.WaitCount(t, protocol.KindConnected, "", 1)
	return rec.PeerIDs()[0]
}

func TestServer_RequestResponse(t *testing.T) {
	t.Parallel()

	srv, rec := startServer(t, ServerConfig{})
	ch := post(http.DefaultClient, srv.URL()+"/echo?x=1", "ping")

	id := firstPeer(t, rec)
	rec.WaitPayload(t, protocol.Received, id, "POST /echo?x=1 HTTP/1.1")
	assert.Contains(t, rec.Payload(protocol.Received, id), "ping")
	require.Len(t, srv.Connections(), 1)
	assert.Equal(t, id, srv.Connections()[0].ID)

	require.NoError(t, srv.Send(protocol.Text(`{"ok":true}`), id))

	res := awaitResult(t, ch)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, `{"ok":true}`, res.body)

	rec.WaitCount(t, protocol.KindDisconnected, id, 1)
	nttest.AssertBracketed(t, rec.ForPeer(id))
	assert.Equal(t, `{"ok":true}`, rec.Payload(protocol.Sent, id))
	assert.Empty(t, srv.Connections())
}

func TestServer_DefaultResponse(t *testing.T) {
	t.Parallel()

	srv, rec := startServer(t, ServerConfig{
		ResponseTimeout: 50 * time.Millisecond,
		DefaultStatus:   http.StatusNoContent,
	})

	res := awaitResult(t, post(http.DefaultClient, srv.URL(), ""))
	assert.Equal(t, http.StatusNoContent, res.status)

	id := rec.PeerIDs()[0]
	rec.WaitCount(t, protocol.KindDisconnected, id, 1)
	assert.Equal(t, "204 No Content", rec.Payload(protocol.Sent, id))
}

func TestServer_SendErrors(t *testing.T) {
	t.Parallel()

	idle := NewServer(ServerConfig{Addr: "127.0.0.1:0"})
	assert.ErrorIs(t, idle.Send(protocol.Text("x"), "id"), protocol.ErrNotRunning)

	srv, rec := startServer(t, ServerConfig{})
	assert.ErrorIs(t, srv.Send(protocol.Text("x"), "missing"), protocol.ErrConnectionNotFound)
	assert.ErrorIs(t, srv.Send(protocol.Connected(), "missing"), protocol.ErrNotSendable)

	ch := post(http.DefaultClient, srv.URL(), "")
	id := firstPeer(t, rec)
	require.NoError(t, srv.Send(protocol.Hex("6f 6b"), id))

	err := srv.Send(protocol.Text("again"), id)
	require.Error(t, err)
	assert.True(t,
		errors.Is(err, protocol.ErrConnectionBusy) || errors.Is(err, protocol.ErrConnectionNotFound),
		"unexpected error %v", err)

	res := awaitResult(t, ch)
	assert.Equal(t, "ok", res.body)
}

func TestServer_Broadcast(t *testing.T) {
	t.Parallel()

	srv, rec := startServer(t, ServerConfig{})
	a := post(http.DefaultClient, srv.URL()+"/a", "")
	b := post(http.DefaultClient, srv.URL()+"/b", "")
	rec.WaitCount(t, protocol.KindConnected, "", 2)

	n, err := srv.Broadcast(protocol.Text("all"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "all", awaitResult(t, a).body)
	assert.Equal(t, "all", awaitResult(t, b).body)
}

func TestServer_StopAnswersPending(t *testing.T) {
	t.Parallel()

	rec := nttest.NewRecorder()
	srv := NewServer(ServerConfig{Addr: "127.0.0.1:0", Sink: rec})
	require.NoError(t, srv.Start(context.Background()))

	ch := post(http.DefaultClient, srv.URL(), "")
	id := firstPeer(t, rec)

	require.NoError(t, srv.Stop(context.Background()))
	assert.False(t, srv.IsRunning())

	res := awaitResult(t, ch)
	assert.Equal(t, http.StatusServiceUnavailable, res.status)

	nttest.AssertBracketed(t, rec.ForPeer(id))
	before := rec.Len()
	require.NoError(t, srv.Stop(context.Background()))
	assert.Equal(t, before, rec.Len())
}

func TestServer_StartErrors(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t, ServerConfig{})
	assert.ErrorIs(t, srv.Start(context.Background()), protocol.ErrAlreadyRunning)

	taken := NewServer(ServerConfig{Addr: srv.Addr()})
	err := taken.Start(context.Background())
	var se *protocol.StartError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, protocol.RoleServer, se.Role)
	assert.False(t, taken.IsRunning())

	bad := NewServer(ServerConfig{Protocol: protocol.ProtocolTCP, Addr: "127.0.0.1:0"})
	assert.ErrorIs(t, bad.Start(context.Background()), protocol.ErrUnsupportedProtocol)
}

func TestServer_H2C(t *testing.T) {
	t.Parallel()

	srv, rec := startServer(t, ServerConfig{Protocol: protocol.ProtocolHTTP2})
	assert.Equal(t, "HTTP/2 Server", srv.Name())
	assert.Equal(t, protocol.TransportHTTP2, srv.Metadata().TransportType)

	crec := nttest.NewRecorder()
	client := NewClient(ClientConfig{
		Protocol: protocol.ProtocolHTTP2,
		Method:   http.MethodPost,
		URL:      srv.URL() + "/h2",
		Body:     "over h2c",
		Sink:     crec,
	})
	require.NoError(t, client.Start(context.Background()))
	t.Cleanup(func() { _ = client.Stop(context.Background()) })

	id := firstPeer(t, rec)
	rec.WaitPayload(t, protocol.Received, id, "HTTP/2.0")
	assert.Contains(t, rec.Payload(protocol.Received, id), "over h2c")
	require.NoError(t, srv.Send(protocol.Text("h2 reply"), id))

	crec.WaitPayload(t, protocol.Received, client.Addr(), "h2 reply")
	assert.Contains(t, crec.Payload(protocol.Received, client.Addr()), "HTTP/2.0 200 OK")
}

func TestServer_HTTP3(t *testing.T) {
	t.Parallel()

	srv, rec := startServer(t, ServerConfig{Protocol: protocol.ProtocolHTTP3})
	require.True(t, strings.HasPrefix(srv.URL(), "https://"))
	assert.Equal(t, protocol.TransportQUIC, srv.Metadata().TransportType)

	crec := nttest.NewRecorder()
	client := NewClient(ClientConfig{
		Protocol:  protocol.ProtocolHTTP3,
		URL:       srv.URL() + "/h3",
		TLSConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		Sink:      crec,
	})
	require.NoError(t, client.Start(context.Background()))
	t.Cleanup(func() { _ = client.Stop(context.Background()) })

	id := firstPeer(t, rec)
	rec.WaitPayload(t, protocol.Received, id, "GET /h3")
	require.NoError(t, srv.Send(protocol.Text("quic reply"), id))

	crec.WaitPayload(t, protocol.Received, client.Addr(), "quic reply")
	assert.Contains(t, crec.Payload(protocol.Received, client.Addr()), "200 OK")
}
