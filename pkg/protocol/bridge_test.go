package protocol

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_EmitDropsWhenFull(t *testing.T) {
	t.Parallel()

	b := NewBridge(BridgeConfig{Capacity: 1, SendTimeout: 10 * time.Millisecond})
	assert.True(t, b.Emit(NewReceived(Text("1"), nil)))

	start := time.Now()
	assert.False(t, b.Emit(NewReceived(Text("2"), nil)))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), b.Dropped())

	msg := <-b.Inbound()
	assert.Equal(t, "1", msg.Content().String())
}

func TestBridge_EmitWaitsForConsumer(t *testing.T) {
	t.Parallel()

	b := NewBridge(BridgeConfig{Capacity: 1, SendTimeout: time.Second})
	require.True(t, b.Emit(NewReceived(Text("1"), nil)))

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-b.Inbound()
	}()
	assert.True(t, b.Emit(NewReceived(Text("2"), nil)))
	assert.Equal(t, int64(0), b.Dropped())
}

func TestBridge_SubmitFull(t *testing.T) {
	t.Parallel()

	b := NewBridge(BridgeConfig{Capacity: 2})
	require.NoError(t, b.Submit(Outgoing{Content: Text("a")}))
	require.NoError(t, b.Submit(Outgoing{Content: Text("b")}))
	assert.ErrorIs(t, b.Submit(Outgoing{Content: Text("c")}), ErrBridgeFull)
	assert.Equal(t, 2, b.Pending())
}

type broadcastHandler struct {
	mockHandler
	n int
}

func (h *broadcastHandler) Broadcast(Content) (int, error) { return h.n, nil }

func TestBridge_Pump(t *testing.T) {
	t.Parallel()

	b := NewBridge(BridgeConfig{})
	h := &mockHandler{id: "h", proto: ProtocolTCP}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.Pump(ctx, h)
	}()

	require.NoError(t, b.Submit(Outgoing{Content: Text("one"), Target: "p1"}))
	require.NoError(t, b.Submit(Outgoing{Content: Text("two"), Target: "p2"}))
	require.Eventually(t, func() bool { return len(h.sent()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "p1", h.sent()[0].Target)

	// Broadcast needs a Broadcaster.
	require.NoError(t, b.Submit(Outgoing{Content: Text("all"), Target: TargetAll}))
	msg := <-b.Inbound()
	assert.Equal(t, KindNotice, msg.Content().Kind())
	assert.Contains(t, msg.Content().String(), ErrBroadcastUnsupported.Error())

	cancel()
	wg.Wait()
}

func TestBridge_PumpBroadcast(t *testing.T) {
	t.Parallel()

	b := NewBridge(BridgeConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	empty := &broadcastHandler{mockHandler: mockHandler{id: "h"}}
	go b.Pump(ctx, empty)

	require.NoError(t, b.Submit(Outgoing{Content: Text("all"), Target: TargetAll}))
	msg := <-b.Inbound()
	assert.Equal(t, KindNotice, msg.Content().Kind(), "broadcast to no peers is reported")
}

func TestGate(t *testing.T) {
	t.Parallel()

	var got []Message
	g := NewGate(SinkFunc(func(m Message) bool {
		got = append(got, m)
		return true
	}))

	assert.False(t, g.Emit(NewReceived(Text("early"), nil)))
	g.Open()
	assert.True(t, g.Emit(NewReceived(Text("open"), nil)))
	g.Close()
	assert.False(t, g.Emit(NewReceived(Text("late"), nil)))

	require.Len(t, got, 1)
	assert.Equal(t, "open", got[0].Content().String())

	assert.False(t, NewGate(nil).Emit(NewReceived(Text("x"), nil)))
}
