package collector

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldedSinkEmitWritesLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFoldedSink(&buf)

	require.NoError(t, sink.Emit([]string{"main", "work"}, 3))
	require.Equal(t, "main;work 3\n", buf.String())
}

func TestFoldedSinkEmitEmptyFramesWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFoldedSink(&buf)

	require.NoError(t, sink.Emit(nil, 1))
	require.Empty(t, buf.String())
}

func TestFoldedSinkCloseIsNoop(t *testing.T) {
	sink := NewFoldedSink(&bytes.Buffer{})
	require.NoError(t, sink.Close())
}
