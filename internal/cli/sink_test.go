package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenOutputDashIsStdout(t *testing.T) {
	w, closeFn, err := openOutput("-")
	require.NoError(t, err)
	require.Equal(t, os.Stdout, w)
	closeFn()

	w, closeFn, err = openOutput("")
	require.NoError(t, err)
	require.Equal(t, os.Stdout, w)
	closeFn()
}

func TestOpenSinkWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	sink, closeFn, err := openSink(formatFolded, path, "samples", "count")
	require.NoError(t, err)
	require.NoError(t, sink.Emit([]string{"main", "work"}, 2))
	require.NoError(t, sink.Close())
	closeFn()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "main;work 2\n", string(contents))
}

func TestOpenSinkUnknownFormatErrors(t *testing.T) {
	_, _, err := openSink("bogus", "-", "samples", "count")
	require.Error(t, err)
}

func TestOpenSinkPprofFormatProducesParseableProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pb.gz")

	sink, closeFn, err := openSink(formatPprof, path, "samples", "count")
	require.NoError(t, err)
	require.NoError(t, sink.Emit([]string{"main", "work"}, 1))
	require.NoError(t, sink.Close())
	closeFn()

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}
