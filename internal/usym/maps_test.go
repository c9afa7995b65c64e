package usym

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleMaps = `555555554000-555555556000 r-xp 00000000 08:01 123456 /usr/bin/demo
555555756000-555555758000 rw-p 00002000 08:01 123456 /usr/bin/demo
7ffff7dc0000-7ffff7de5000 r-xp 00000000 08:01 654321 /usr/lib/x86_64-linux-gnu/libc.so.6
7ffffffde000-7ffffffff000 rw-p 00000000 00:00 0      [stack]
7ffff7fc5000-7ffff7fc9000 r--p 00000000 00:00 0      [vvar]
`

func TestParseMapsSkipsAnonymous(t *testing.T) {
	segments := parseMaps(sampleMaps)
	require.Len(t, segments, 3)
	require.Equal(t, "/usr/bin/demo", segments[0].Path)
	require.Equal(t, uint64(0x555555554000), segments[0].Start)
	require.Equal(t, uint64(0x555555556000), segments[0].End)
	require.Equal(t, uint64(0x00002000), segments[1].FileOffset)
	require.Equal(t, "/usr/lib/x86_64-linux-gnu/libc.so.6", segments[2].Path)
}

func TestFindSegment(t *testing.T) {
	segments := parseMaps(sampleMaps)

	seg, ok := find(segments, 0x555555554100)
	require.True(t, ok)
	require.Equal(t, "/usr/bin/demo", seg.Path)

	_, ok = find(segments, 0x1000)
	require.False(t, ok)
}
