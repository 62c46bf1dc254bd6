package tui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punisher1/nt/pkg/engine"
	"github.com/punisher1/nt/pkg/protocol"
)

type fakeHandler struct {
	role  protocol.Role
	peers []protocol.ConnectionInfo
}

func (h *fakeHandler) Metadata() protocol.Metadata {
	return protocol.Metadata{ID: "fake", Protocol: protocol.ProtocolTCP, Role: h.role}
}
func (h *fakeHandler) Start(context.Context) error { return nil }
func (h *fakeHandler) Stop(context.Context) error { return nil }
func (h *fakeHandler) Send(protocol.Content, string) error { return nil }
func (h *fakeHandler) Connections() []protocol.ConnectionInfo { return h.peers }
func (h *fakeHandler) IsRunning() bool { return true }
func (h *fakeHandler) Name() string { return protocol.HandlerName(protocol.ProtocolTCP, h.role) }

type submission struct {
	input  string
	format engine.InputFormat
	target string
}

type fakeSession struct {
	h  *fakeHandler
	in chan protocol.Message

	mu      sync.Mutex
	submits []submission
}

func newFakeSession(role protocol.Role, peers ...string) *fakeSession {
	h := &fakeHandler{role: role}
	for _, p := range peers {
		h.peers = append(h.peers, protocol.ConnectionInfo{ID: p})
	}
	return &fakeSession{h: h, in: make(chan protocol.Message, 10)}
}

func (s *fakeSession) Handler() protocol.Handler { return s.h }
func (s *fakeSession) Inbound() <-chan protocol.Message { return s.in }
func (s *fakeSession) Stats() engine.Stats { return engine.Stats{BytesSent: 2048} }
func (s *fakeSession) SupportsBroadcast() bool { return s.h.role == protocol.RoleServer }
func (s *fakeSession) Submit(input string, f engine.InputFormat, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits = append(s.submits, submission{input, f, target})
	return nil
}

func (s *fakeSession) submitted() []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]submission(nil), s.submits...)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func newModel(t *testing.T, s *fakeSession) Model {
	t.Helper()
	return press(t, New(s, Options{}), tea.WindowSizeMsg{Width: 120, Height: 40})
}

func TestModel_ComposeAndSend(t *testing.T) {
	t.Parallel()

	s := newFakeSession(protocol.RoleServer, "a", "b")
	m := newModel(t, s)
	assert.Equal(t, "a", m.target)

	m = press(t, m, runes("i"))
	require.True(t, m.composing)
	m = press(t, m, runes("hi"), tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, []submission{{"hi", engine.FormatText, "a"}}, s.submitted())
	assert.Empty(t, m.input.Value())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.composing)
}

func TestModel_InvalidHex(t *testing.T) {
	t.Parallel()

	s := newFakeSession(protocol.RoleClient)
	m := newModel(t, s)
	m = press(t, m, runes("i"), tea.KeyMsg{Type: tea.KeyCtrlT}, runes("abc"), tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, engine.FormatHex, m.format)
	assert.Empty(t, s.submitted())
	assert.Contains(t, m.notice, "Invalid hex input")
	assert.Equal(t, "abc", m.input.Value())
}

func TestModel_CycleTargets(t *testing.T) {
	t.Parallel()

	m := newModel(t, newFakeSession(protocol.RoleServer, "a", "b"))
	tab := tea.KeyMsg{Type: tea.KeyTab}

	m = press(t, m, tab)
	assert.Equal(t, "b", m.target)
	m = press(t, m, tab)
	assert.Equal(t, protocol.TargetAll, m.target)
	m = press(t, m, tab)
	assert.Equal(t, "a", m.target)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, protocol.TargetAll, m.target)

	client := newModel(t, newFakeSession(protocol.RoleClient, "server"))
	client = press(t, client, tab)
	assert.Empty(t, client.target)
}

func TestModel_RoutesInbound(t *testing.T) {
	t.Parallel()

	s := newFakeSession(protocol.RoleServer, "a")
	m := newModel(t, s)
	info := &protocol.ConnectionInfo{ID: "a"}

	m = press(t, m,
		inboundMsg{protocol.NewReceived(protocol.Text("in"), info)},
		inboundMsg{protocol.NewSent(protocol.Text("out"), info)},
	)
	assert.Len(t, m.recv.msgs, 1)
	assert.Len(t, m.send.msgs, 1)

	for i := 0; i < MaxLines+10; i++ {
		m.recv.push(protocol.NewReceived(protocol.Text("x"), info))
	}
	assert.Len(t, m.recv.msgs, MaxLines)

	m = press(t, m, runes("c"))
	assert.Empty(t, m.recv.msgs)
	assert.Empty(t, m.send.msgs)
}

func TestModel_ViewAndQuit(t *testing.T) {
	t.Parallel()

	m := newModel(t, newFakeSession(protocol.RoleServer, "a", "b"))
	m = press(t, m, tickMsg(time.Now()))

	view := m.View()
	assert.Contains(t, view, "TCP Server")
	assert.Contains(t, view, "Peers: 2")
	assert.Contains(t, view, "2.0 kB")

	m = press(t, m, runes("x"))
	assert.True(t, m.mode.Hex)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestFormatMessage(t *testing.T) {
	t.Parallel()

	info := &protocol.ConnectionInfo{ID: "peer"}

	line := FormatMessage(protocol.NewReceived(protocol.Text("hi"), info), ViewMode{})
	assert.Contains(t, line, "peer <- (2 B)\nhi")

	line = FormatMessage(protocol.NewSent(protocol.Text("hi"), info), ViewMode{Hex: true})
	assert.Contains(t, line, "-> (2 B)\n68 69")

	line = FormatMessage(protocol.NewReceived(protocol.Connected(), info), ViewMode{})
	assert.Contains(t, line, "-- client connected")

	line = FormatMessage(protocol.NewSent(protocol.Notice("boom"), nil), ViewMode{})
	assert.Contains(t, line, "!! boom")

	body := RenderPayload(protocol.Text("HTTP/1.1 200 OK\n\n{\"a\":1}"), ViewMode{JSON: true})
	assert.Contains(t, body, "HTTP/1.1 200 OK\n\n{\n")
}

func TestParseLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want plainCommand
		ok   bool
	}{
		{line: "hello world", want: plainCommand{input: "hello world"}, ok: true},
		{line: "/hex 01 02", want: plainCommand{input: "01 02", format: engine.FormatHex}, ok: true},
		{line: "@1.2.3.4:5 hi", want: plainCommand{target: "1.2.3.4:5", input: "hi"}, ok: true},
		{line: "@* /hex ff", want: plainCommand{target: "*", input: "ff", format: engine.FormatHex}, ok: true},
		{line: "/peers", want: plainCommand{peers: true}, ok: true},
		{line: "   ", ok: false},
		{line: "@peer", ok: false},
	}

	for _, tt := range tests {
		got, ok := parseLine(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.line)
		}
	}
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

func TestRunPlain(t *testing.T) {
	t.Parallel()

	s := newFakeSession(protocol.RoleServer, "only")
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- RunPlain(ctx, s, strings.NewReader("hello\n@x /hex 41\n/peers\n"), out, PlainOptions{})
	}()

	require.Eventually(t, func() bool { return len(s.submitted()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, submission{"hello", engine.FormatText, "only"}, s.submitted()[0])
	assert.Equal(t, submission{"41", engine.FormatHex, "x"}, s.submitted()[1])

	s.in <- protocol.NewReceived(protocol.Text("pong"), &protocol.ConnectionInfo{ID: "only"})
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "pong") }, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "Connected peers:")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunPlain did not return")
	}
}
