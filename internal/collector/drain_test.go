package collector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riftrace/riftrace/internal/record"
)

func TestStackIPsNoStackShortCircuits(t *testing.T) {
	ips, err := stackIPs(nil, record.NoStack)
	require.NoError(t, err)
	require.Nil(t, ips)
}

func TestTrimStackCutsAtFirstZero(t *testing.T) {
	raw := make([]uint64, maxStackDepth)
	raw[0] = 0x401000
	raw[1] = 0x401100
	// rest stays zero, as the kernel leaves an under-depth capture

	require.Equal(t, []uint64{0x401000, 0x401100}, trimStack(raw))
}

func TestTrimStackFullDepthKeepsEverything(t *testing.T) {
	raw := make([]uint64, 3)
	raw[0], raw[1], raw[2] = 0x1, 0x2, 0x3

	require.Equal(t, raw, trimStack(raw))
}
