package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/punisher1/nt/pkg/engine"
	"github.com/punisher1/nt/pkg/i18n"
	"github.com/punisher1/nt/pkg/protocol"
)

// PlainOptions configures RunPlain.
type PlainOptions struct {
	Localizer *i18n.Localizer
	Mode      ViewMode
}

// plainCommand is one parsed input line.
type plainCommand struct {
	peers  bool
	target string
	input  string
	format engine.InputFormat
}

// parseLine understands:
//
//	text            send text to the default target
//	/hex 01 02      send hex
//	@<id> text      send to a specific peer (@* broadcasts)
//	@<id> /hex 01   combine both
//	/peers          list live peers
func parseLine(line string) (plainCommand, bool) {
	var cmd plainCommand
	if strings.TrimSpace(line) == "" {
		return cmd, false
	}
	if strings.TrimSpace(line) == "/peers" {
		cmd.peers = true
		return cmd, true
	}
	if strings.HasPrefix(line, "@") {
		target, rest, _ := strings.Cut(line[1:], " ")
		cmd.target = target
		line = rest
	}
	if rest, ok := strings.CutPrefix(line, "/hex "); ok {
		cmd.format = engine.FormatHex
		line = rest
	}
	cmd.input = line
	return cmd, cmd.input != ""
}

// RunPlain prints every inbound message as a line on out and sends each line
// read from in. After in reaches EOF traffic keeps printing until ctx is
// cancelled.
func RunPlain(ctx context.Context, s Session, in io.Reader, out io.Writer, opts PlainOptions) error {
	if opts.Localizer == nil {
		opts.Localizer = i18n.New(language.English)
	}
	loc := opts.Localizer

	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(out, format+"\n", args...)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-s.Inbound():
				if !ok {
					return
				}
				printf("%s", FormatMessage(msg, opts.Mode))
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			cmd, ok := parseLine(line)
			if !ok {
				continue
			}
			if cmd.peers {
				printf("%s", loc.T(i18n.KeyPeerListHeader))
				for _, p := range s.Handler().Connections() {
					printf("  %s", p.ID)
				}
				continue
			}
			target := cmd.target
			if target == "" {
				target = defaultTarget(s.Handler())
			}
			if err := s.Submit(cmd.input, cmd.format, target); err != nil {
				printf("!! %s", loc.T(i18n.KeySendFailed, err))
			}
		}
	}
}

// defaultTarget picks the only live peer of a server, if there is exactly one.
func defaultTarget(h protocol.Handler) string {
	if h.Metadata().Role != protocol.RoleServer {
		return ""
	}
	if peers := h.Connections(); len(peers) == 1 {
		return peers[0].ID
	}
	return ""
}
