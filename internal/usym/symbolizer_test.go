package usym

import (
	"debug/dwarf"
	"testing"

	"github.com/stretchr/testify/require"
)

func entryWith(tag dwarf.Tag, fields ...dwarf.Field) *dwarf.Entry {
	return &dwarf.Entry{Tag: tag, Field: fields}
}

func TestPCRangeAbsoluteHighPC(t *testing.T) {
	entry := entryWith(dwarf.TagSubprogram,
		dwarf.Field{Attr: dwarf.AttrLowpc, Val: uint64(0x1000)},
		dwarf.Field{Attr: dwarf.AttrHighpc, Val: uint64(0x1100)},
	)

	low, high, ok := pcRange(entry)
	require.True(t, ok)
	require.Equal(t, uint64(0x1000), low)
	require.Equal(t, uint64(0x1100), high)
}

func TestPCRangeOffsetHighPC(t *testing.T) {
	entry := entryWith(dwarf.TagSubprogram,
		dwarf.Field{Attr: dwarf.AttrLowpc, Val: uint64(0x2000)},
		dwarf.Field{Attr: dwarf.AttrHighpc, Val: int64(0x50)},
	)

	low, high, ok := pcRange(entry)
	require.True(t, ok)
	require.Equal(t, uint64(0x2000), low)
	require.Equal(t, uint64(0x2050), high)
}

func TestPCRangeMissingAttrs(t *testing.T) {
	entry := entryWith(dwarf.TagSubprogram)
	_, _, ok := pcRange(entry)
	require.False(t, ok)
}

func TestEntryName(t *testing.T) {
	entry := entryWith(dwarf.TagSubprogram, dwarf.Field{Attr: dwarf.AttrName, Val: "do_work"})
	require.Equal(t, "do_work", entryName(entry))

	require.Empty(t, entryName(entryWith(dwarf.TagSubprogram)))
}

func TestFrameString(t *testing.T) {
	require.Equal(t, "0x2a", Frame{Offset: 0x2a}.String())
	require.Equal(t, "do_work", Frame{Function: "do_work"}.String())
	require.Equal(t, "do_work (main.c:42)", Frame{Function: "do_work", File: "main.c", Line: 42}.String())
}
