// Package record defines the fixed-layout sample records exchanged across
// the kernel/user boundary. Field order and width here must match the BPF
// struct definitions in bpf/on_cpu.bpf.c and bpf/off_cpu.bpf.c exactly —
// layout is the interface.
package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// CommLen is the kernel task command name width (TASK_COMM_LEN).
const CommLen = 16

// NoStack marks a stack ID as unavailable: no stack captured, or the
// stack-trace table was full when the kernel tried to insert one.
const NoStack int64 = -1

// TaskIdent identifies a kernel task. Tgid may be zero in the off-CPU path
// (see OffCPUSample); consumers must tolerate that and treat it as advisory.
type TaskIdent struct {
	PID  uint32
	TGID uint32
}

// Sample is an on-CPU record, written by bpf/on_cpu.bpf.c on every timer
// fire.
type Sample struct {
	PID       uint32
	CPU       uint32
	Comm      [CommLen]byte
	KStackID  int64
	UStackID  int64
}

// onCPUSampleSize is the packed, native-endian wire size of Sample:
// 4 + 4 + 16 + 8 + 8.
const onCPUSampleSize = 4 + 4 + CommLen + 8 + 8

// CommString returns Comm as a Go string, trimmed at the first NUL.
func (s Sample) CommString() string {
	return commString(s.Comm[:])
}

// DecodeSample decodes a packed, native-endian Sample from raw ring-buffer
// bytes. Records are reserved/committed atomically in the kernel program, so
// a short read here indicates caller error, not a torn write.
func DecodeSample(raw []byte) (Sample, error) {
	if len(raw) < onCPUSampleSize {
		return Sample{}, fmt.Errorf("record: on-cpu sample too short: got %d bytes, want %d", len(raw), onCPUSampleSize)
	}
	var s Sample
	if err := binary.Read(bytes.NewReader(raw), binary.NativeEndian, &s); err != nil {
		return Sample{}, fmt.Errorf("record: decode on-cpu sample: %w", err)
	}
	return s, nil
}

// OffCPUSample is an off-CPU record, written by bpf/off_cpu.bpf.c on every
// scheduler switch whose resuming task had a recorded off-switch timestamp.
type OffCPUSample struct {
	PID      uint32
	TGID     uint32 // Always 0 today — see package doc on TaskIdent.
	OffNS    uint64
	KStackID int64
	UStackID int64
	Comm     [CommLen]byte
}

const offCPUSampleSize = 4 + 4 + 8 + 8 + 8 + CommLen

// CommString returns Comm as a Go string, trimmed at the first NUL.
func (s OffCPUSample) CommString() string {
	return commString(s.Comm[:])
}

// DecodeOffCPUSample decodes a packed, native-endian OffCPUSample from raw
// ring-buffer bytes.
func DecodeOffCPUSample(raw []byte) (OffCPUSample, error) {
	if len(raw) < offCPUSampleSize {
		return OffCPUSample{}, fmt.Errorf("record: off-cpu sample too short: got %d bytes, want %d", len(raw), offCPUSampleSize)
	}
	var s OffCPUSample
	if err := binary.Read(bytes.NewReader(raw), binary.NativeEndian, &s); err != nil {
		return OffCPUSample{}, fmt.Errorf("record: decode off-cpu sample: %w", err)
	}
	return s, nil
}

func commString(comm []byte) string {
	if i := bytes.IndexByte(comm, 0); i >= 0 {
		comm = comm[:i]
	}
	return string(comm)
}
