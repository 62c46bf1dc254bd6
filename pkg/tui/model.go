package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"

	"github.com/punisher1/nt/pkg/engine"
	"github.com/punisher1/nt/pkg/i18n"
	"github.com/punisher1/nt/pkg/protocol"
)

const refreshInterval = 500 * time.Millisecond

// Session is the part of engine.Session the UI drives.
type Session interface {
	Handler() protocol.Handler
	Inbound() <-chan protocol.Message
	Submit(input string, format engine.InputFormat, target string) error
	Stats() engine.Stats
	SupportsBroadcast() bool
}

// Options configures the UI.
type Options struct {
	Localizer *i18n.Localizer
	// Vertical stacks the panes instead of placing them side by side.
	Vertical bool
}

type (
	inboundMsg       struct{ msg protocol.Message }
	inboundClosedMsg struct{}
	tickMsg          time.Time
)

// Model is the bubbletea model for one session.
type Model struct {
	session  Session
	loc      *i18n.Localizer
	keys     keyMap
	vertical bool

	send, recv pane
	input      textinput.Model
	composing  bool
	format     engine.InputFormat
	target     string
	mode       ViewMode

	stats  engine.Stats
	peers  []protocol.ConnectionInfo
	notice string

	width, height int
}

// New creates the model.
func New(s Session, opts Options) Model {
	if opts.Localizer == nil {
		opts.Localizer = i18n.New(language.English)
	}
	in := textinput.New()
	in.Prompt = "> "

	m := Model{
		session:  s,
		loc:      opts.Localizer,
		keys:     defaultKeyMap(),
		vertical: opts.Vertical,
		send:     newPane(),
		recv:     newPane(),
		input:    in,
	}
	m.refreshPeers()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitInbound(m.session.Inbound()), tick())
}

func waitInbound(ch <-chan protocol.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return inboundClosedMsg{}
		}
		return inboundMsg{msg: msg}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case inboundMsg:
		m.route(msg.msg)
		return m, waitInbound(m.session.Inbound())

	case inboundClosedMsg:
		return m, nil

	case tickMsg:
		m.stats = m.session.Stats()
		m.refreshPeers()
		return m, tick()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		if m.composing {
			return m.updateCompose(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m *Model) route(msg protocol.Message) {
	c := msg.Content()
	switch {
	case msg.Direction() == protocol.Sent:
		m.send.push(msg)
		m.send.refresh(m.mode)
	default:
		m.recv.push(msg)
		m.recv.refresh(m.mode)
	}
	if k := c.Kind(); k == protocol.KindConnected || k == protocol.KindDisconnected {
		m.refreshPeers()
	}
	m.stats = m.session.Stats()
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Compose):
		m.composing = true
		m.notice = ""
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.NextTarget):
		m.cycleTarget(1)
	case key.Matches(msg, m.keys.PrevTarget):
		m.cycleTarget(-1)
	case key.Matches(msg, m.keys.HexView):
		m.mode.Hex = !m.mode.Hex
		m.rerender()
	case key.Matches(msg, m.keys.JSONView):
		m.mode.JSON = !m.mode.JSON
		m.rerender()
	case key.Matches(msg, m.keys.Clear):
		m.send.clear()
		m.recv.clear()
	case key.Matches(msg, m.keys.Up):
		m.recv.vp.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.recv.vp.ScrollDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.recv.vp.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.recv.vp.PageDown()
	}
	return m, nil
}

func (m Model) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.composing = false
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.ToggleFmt):
		m.format = m.format.Toggle()
		return m, nil
	case key.Matches(msg, m.keys.Send):
		m.submit()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() {
	text := m.input.Value()
	if text == "" {
		return
	}
	if _, err := engine.ParseInput(text, m.format); err != nil {
		m.notice = m.loc.T(i18n.KeyInvalidHex, errors.Unwrap(err))
		return
	}
	if err := m.session.Submit(text, m.format, m.target); err != nil {
		m.notice = m.loc.T(i18n.KeySendFailed, err)
		return
	}
	m.input.SetValue("")
	m.notice = ""
}

func (m *Model) rerender() {
	m.send.refresh(m.mode)
	m.recv.refresh(m.mode)
}

// targets lists the selectable send targets. Clients have none.
func (m *Model) targets() []string {
	if m.session.Handler().Metadata().Role != protocol.RoleServer {
		return nil
	}
	ids := make([]string, 0, len(m.peers)+1)
	for _, p := range m.peers {
		ids = append(ids, p.ID)
	}
	if len(ids) > 0 && m.session.SupportsBroadcast() {
		ids = append(ids, protocol.TargetAll)
	}
	return ids
}

func (m *Model) cycleTarget(delta int) {
	ids := m.targets()
	if len(ids) == 0 {
		m.target = ""
		return
	}
	idx := -1
	for i, id := range ids {
		if id == m.target {
			idx = i
			break
		}
	}
	idx = ((idx+delta)%len(ids) + len(ids)) % len(ids)
	m.target = ids[idx]
}

// refreshPeers reloads the roster and keeps the target valid: a vanished
// peer falls back to the first live one.
func (m *Model) refreshPeers() {
	m.peers = m.session.Handler().Connections()
	ids := m.targets()
	for _, id := range ids {
		if id == m.target {
			return
		}
	}
	m.target = ""
	if len(ids) > 0 {
		m.target = ids[0]
	}
}

func (m *Model) layout() {
	paneHeight := m.height - 3
	if m.vertical {
		h := paneHeight/2 - 3
		m.send.resize(m.width-2, h)
		m.recv.resize(m.width-2, paneHeight-paneHeight/2-3)
	} else {
		w := m.width/2 - 2
		m.send.resize(w, paneHeight-3)
		m.recv.resize(m.width-m.width/2-2, paneHeight-3)
	}
	m.input.Width = max(m.width-20, 10)
	m.rerender()
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar(),
		m.panes(),
		m.inputLine(),
		hintStyle.Render(m.hints()),
	)
}

func (m Model) statusBar() string {
	h := m.session.Handler()
	state := m.loc.T(i18n.KeyDisconnected)
	if h.IsRunning() && (h.Metadata().Role == protocol.RoleServer || len(m.peers) > 0) {
		state = onlineStyle.Render(m.loc.T(i18n.KeyConnected))
	}

	parts := []string{
		h.Name(),
		m.loc.T(i18n.KeySent, humanize.Bytes(uint64(m.stats.BytesSent))),
		m.loc.T(i18n.KeyReceived, humanize.Bytes(uint64(m.stats.BytesReceived))),
		state,
		m.loc.T(i18n.KeyPeers, len(m.peers)),
	}
	if h.Metadata().Role == protocol.RoleServer {
		parts = append(parts, m.loc.T(i18n.KeyTarget, m.targetLabel()))
	}
	if m.stats.Dropped > 0 {
		parts = append(parts, m.loc.T(i18n.KeyDropped, m.stats.Dropped))
	}
	return statusStyle.Width(m.width).Render(strings.Join(parts, " | "))
}

func (m Model) targetLabel() string {
	switch m.target {
	case "":
		return m.loc.T(i18n.KeyNoPeer)
	case protocol.TargetAll:
		return m.loc.T(i18n.KeyAllPeers)
	default:
		return m.target
	}
}

func (m Model) panes() string {
	suffix := ""
	if m.mode.Hex {
		suffix += " [hex]"
	}
	if m.mode.JSON {
		suffix += " [json]"
	}
	send := paneStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		paneTitleStyle.Render(m.loc.T(i18n.KeySendPane)+suffix), m.send.vp.View()))
	recv := paneStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		paneTitleStyle.Render(m.loc.T(i18n.KeyReceivePane)+suffix), m.recv.vp.View()))
	if m.vertical {
		return lipgloss.JoinVertical(lipgloss.Left, send, recv)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, send, recv)
}

func (m Model) inputLine() string {
	if m.composing {
		return m.loc.T(i18n.KeyCompose, m.formatName()) + " " + m.input.View()
	}
	if m.notice != "" {
		return noticeStyle.Render(m.notice)
	}
	return ""
}

func (m Model) formatName() string {
	if m.format == engine.FormatHex {
		return m.loc.T(i18n.KeyFormatHex)
	}
	return m.loc.T(i18n.KeyFormatText)
}

func (m Model) hints() string {
	if m.composing {
		return m.loc.T(i18n.KeyHintsCompose)
	}
	return m.loc.T(i18n.KeyHintsNormal)
}

// Run shows the UI until the user quits or ctx is cancelled. The caller
// owns the session and stops it afterwards.
func Run(ctx context.Context, s Session, opts Options) error {
	p := tea.NewProgram(New(s, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
