package collector

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewSessionInitialState(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(1234, OnCPU{FrequencyHz: 99}, time.Second, NewFoldedSink(&buf), zerolog.Nop())

	require.Equal(t, 1234, s.PID)
	require.Equal(t, StateIdle, s.State())
	require.NotEmpty(t, s.ID)
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:     "idle",
		StateLoading:  "loading",
		StateAttached: "attached",
		StateDraining: "draining",
		StateStopping: "stopping",
		StateDone:     "done",
		State(99):     "unknown",
	}
	for state, want := range cases {
		require.Equal(t, want, state.String())
	}
}

func TestSetStateTransitions(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(1, OffCPU{}, time.Second, NewFoldedSink(&buf), zerolog.Nop())

	s.setState(StateLoading)
	require.Equal(t, StateLoading, s.State())

	s.setState(StateAttached)
	require.Equal(t, StateAttached, s.State())
}

func TestOnCPUAndOffCPUAreDistinctKinds(t *testing.T) {
	var onCPU SessionKind = OnCPU{FrequencyHz: 50}
	var offCPU SessionKind = OffCPU{}

	_, onIsOnCPU := onCPU.(OnCPU)
	_, offIsOnCPU := offCPU.(OnCPU)

	require.True(t, onIsOnCPU)
	require.False(t, offIsOnCPU)
}
