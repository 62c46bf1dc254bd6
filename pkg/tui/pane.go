package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/punisher1/nt/pkg/protocol"
)

// pane is a scrollable list of the most recent MaxLines messages.
type pane struct {
	msgs []protocol.Message
	vp   viewport.Model
}

func newPane() pane {
	return pane{vp: viewport.New(0, 0)}
}

func (p *pane) push(msg protocol.Message) {
	p.msgs = append(p.msgs, msg)
	if over := len(p.msgs) - MaxLines; over > 0 {
		p.msgs = append(p.msgs[:0:0], p.msgs[over:]...)
	}
}

func (p *pane) clear() {
	p.msgs = nil
	p.vp.SetContent("")
	p.vp.GotoTop()
}

func (p *pane) resize(width, height int) {
	p.vp.Width = max(width, 0)
	p.vp.Height = max(height, 0)
}

// refresh re-renders the content, following the tail unless the user has
// scrolled up.
func (p *pane) refresh(mode ViewMode) {
	follow := p.vp.AtBottom()
	lines := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		lines[i] = FormatMessage(m, mode)
	}
	p.vp.SetContent(strings.Join(lines, "\n"))
	if follow {
		p.vp.GotoBottom()
	}
}
