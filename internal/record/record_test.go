package record

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeSampleRoundTrip(t *testing.T) {
	want := Sample{
		PID:      1234,
		CPU:      3,
		KStackID: 7,
		UStackID: NoStack,
	}
	copy(want.Comm[:], "hot-loop")

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.NativeEndian, want))

	got, err := DecodeSample(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, "hot-loop", got.CommString())
}

func TestDecodeSampleTooShort(t *testing.T) {
	_, err := DecodeSample(make([]byte, 4))
	require.Error(t, err)
}

func TestDecodeOffCPUSampleRoundTrip(t *testing.T) {
	want := OffCPUSample{
		PID:      42,
		TGID:     0,
		OffNS:    2_500_000_000,
		KStackID: NoStack,
		UStackID: 9,
	}
	copy(want.Comm[:], "reader")

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.NativeEndian, want))

	got, err := DecodeOffCPUSample(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, uint64(2_500_000_000), got.OffNS)
	require.Equal(t, "reader", got.CommString())
}

func TestDecodeOffCPUSampleTooShort(t *testing.T) {
	_, err := DecodeOffCPUSample(make([]byte, 10))
	require.Error(t, err)
}

func TestCommStringTruncatesAtNUL(t *testing.T) {
	var comm [CommLen]byte
	copy(comm[:], "short\x00garbage")
	require.Equal(t, "short", commString(comm[:]))
}
