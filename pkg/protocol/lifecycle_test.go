package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycle_Transitions(t *testing.T) {
	t.Parallel()

	var lc Lifecycle
	assert.Equal(t, StateCreated, lc.State())
	assert.False(t, lc.BeginStop(), "stop before start is a no-op")

	assert.NoError(t, lc.BeginStart())
	assert.Equal(t, StateStarting, lc.State())
	assert.ErrorIs(t, lc.BeginStart(), ErrAlreadyRunning)

	lc.FailStart()
	assert.Equal(t, StateCreated, lc.State())

	assert.NoError(t, lc.BeginStart())
	lc.Started()
	assert.True(t, lc.Running())
	assert.ErrorIs(t, lc.BeginStart(), ErrAlreadyRunning)

	assert.True(t, lc.BeginStop())
	assert.False(t, lc.BeginStop(), "second stop is a no-op")
	assert.Equal(t, StateStopping, lc.State())
	assert.ErrorIs(t, lc.BeginStart(), ErrStopped)

	lc.Stopped()
	assert.Equal(t, StateStopped, lc.State())
	assert.ErrorIs(t, lc.BeginStart(), ErrStopped)
	assert.Equal(t, "stopped", lc.State().String())
}
