package bpfprog

import (
	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"
)

// Program is the common surface internal/collector drives, implemented by
// both OnCPUProgram and OffCPUProgram. It exists so the collector's drain
// loop doesn't need a mode switch to reach the ring-buffer reader and
// stack-trace tables.
type Program interface {
	Reader() *ringbuf.Reader
	KernelStacks() *ebpf.Map
	UserStacks() *ebpf.Map
	Detach() error
	Close() error
	CloseReader() error
}

var (
	_ Program = (*OnCPUProgram)(nil)
	_ Program = (*OffCPUProgram)(nil)
)
