package testing

import (
	"testing"

	"github.com/punisher1/nt/pkg/protocol"
)

// AssertBracketed checks that one peer's messages start with Connected, end
// with Disconnected, and carry no other lifecycle event in between.
func AssertBracketed(t testing.TB, msgs []protocol.Message) {
	t.Helper()

	if len(msgs) < 2 {
		t.Errorf("expected at least connect and disconnect, got %d message(s)", len(msgs))
		return
	}
	if k := msgs[0].Content().Kind(); k != protocol.KindConnected {
		t.Errorf("first message is %s, want connected", k)
	}
	if k := msgs[len(msgs)-1].Content().Kind(); k != protocol.KindDisconnected {
		t.Errorf("last message is %s, want disconnected", k)
	}
	for i, m := range msgs[1 : len(msgs)-1] {
		if k := m.Content().Kind(); k == protocol.KindConnected || k == protocol.KindDisconnected {
			t.Errorf("message %d is %s between connect and disconnect", i+1, k)
		}
	}
}

// AssertConnectFirst checks that no Received payload precedes the peer's
// Connected message.
func AssertConnectFirst(t testing.TB, msgs []protocol.Message) {
	t.Helper()

	for i, m := range msgs {
		switch {
		case m.Content().Kind() == protocol.KindConnected:
			return
		case m.Direction() == protocol.Received && !m.Content().Kind().IsEvent():
			t.Errorf("payload at index %d precedes connect", i)
			return
		}
	}
}
