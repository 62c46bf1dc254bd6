package testing

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/punisher1/nt/pkg/protocol"
)

// DefaultWait is how long the Wait helpers poll before failing.
const DefaultWait = 3 * time.Second

// Recorder is a thread-safe protocol.Sink that keeps every message.
type Recorder struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements protocol.Sink.
func (r *Recorder) Emit(msg protocol.Message) bool {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	return true
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Message(nil), r.msgs...)
}

// Len returns how many messages were recorded.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

// ForPeer returns the messages of one peer in emission order.
func (r *Recorder) ForPeer(id string) []protocol.Message {
	var out []protocol.Message
	for _, m := range r.Messages() {
		if m.ConnectionID() == id {
			out = append(out, m)
		}
	}
	return out
}

// Count returns how many messages of kind were recorded for peer id, or for
// any peer when id is "".
func (r *Recorder) Count(kind protocol.Kind, id string) int {
	n := 0
	for _, m := range r.Messages() {
		if m.Content().Kind() == kind && (id == "" || m.ConnectionID() == id) {
			n++
		}
	}
	return n
}

// Payload concatenates the rendered payloads received from (or sent to)
// peer id, or any peer when id is "".
func (r *Recorder) Payload(dir protocol.Direction, id string) string {
	var b strings.Builder
	for _, m := range r.Messages() {
		if m.Direction() != dir || m.Content().Kind().IsEvent() {
			continue
		}
		if id == "" || m.ConnectionID() == id {
			b.WriteString(m.Content().String())
		}
	}
	return b.String()
}

// PeerIDs returns the IDs of every peer that has a Connected message, in
// connect order.
func (r *Recorder) PeerIDs() []string {
	var ids []string
	for _, m := range r.Messages() {
		if m.Content().Kind() == protocol.KindConnected {
			ids = append(ids, m.ConnectionID())
		}
	}
	return ids
}

// WaitCount blocks until Count(kind, id) >= n or fails the test.
func (r *Recorder) WaitCount(t testing.TB, kind protocol.Kind, id string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.Count(kind, id) >= n
	}, DefaultWait, 10*time.Millisecond, "waiting for %d %s message(s)", n, kind)
}

// WaitPayload blocks until Payload(dir, id) contains want or fails the test.
func (r *Recorder) WaitPayload(t testing.TB, dir protocol.Direction, id, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(r.Payload(dir, id), want)
	}, DefaultWait, 10*time.Millisecond, "waiting for %s payload %q", dir, want)
}
