//go:build !linux

package bpfprog

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/rs/zerolog"
)

// OnCPUProgram is a stub on non-Linux systems; the in-kernel samplers this
// package loads only exist on Linux.
type OnCPUProgram struct{}

// LoadOnCPU always fails on non-Linux systems.
func LoadOnCPU(pid int, frequencyHz int, logger zerolog.Logger) (*OnCPUProgram, error) {
	return nil, fmt.Errorf("bpfprog: on-cpu sampling requires Linux")
}

func (p *OnCPUProgram) Reader() *ringbuf.Reader { return nil }
func (p *OnCPUProgram) KernelStacks() *ebpf.Map { return nil }
func (p *OnCPUProgram) UserStacks() *ebpf.Map   { return nil }
func (p *OnCPUProgram) Detach() error           { return nil }
func (p *OnCPUProgram) Close() error            { return nil }
func (p *OnCPUProgram) CloseReader() error      { return nil }

// OffCPUProgram is a stub on non-Linux systems.
type OffCPUProgram struct{}

// LoadOffCPU always fails on non-Linux systems.
func LoadOffCPU(logger zerolog.Logger) (*OffCPUProgram, error) {
	return nil, fmt.Errorf("bpfprog: off-cpu sampling requires Linux")
}

func (p *OffCPUProgram) Reader() *ringbuf.Reader { return nil }
func (p *OffCPUProgram) KernelStacks() *ebpf.Map { return nil }
func (p *OffCPUProgram) UserStacks() *ebpf.Map   { return nil }
func (p *OffCPUProgram) Detach() error           { return nil }
func (p *OffCPUProgram) Close() error            { return nil }
func (p *OffCPUProgram) CloseReader() error      { return nil }
