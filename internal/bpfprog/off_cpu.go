//go:build linux

package bpfprog

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/rs/zerolog"
)

// OffCPUProgram is a loaded and attached off-CPU sampler: the kernel
// program attached to the raw sched_switch tracepoint, system-wide. PID
// scoping happens in user space (see internal/collector), not here — see
// bpf/off_cpu.bpf.c's doc comment for why.
type OffCPUProgram struct {
	objects off_cpuObjects
	link    link.Link
	reader  *ringbuf.Reader
	logger  zerolog.Logger
}

// LoadOffCPU loads the off-CPU BPF objects and attaches the program to the
// raw sched_switch tracepoint.
func LoadOffCPU(logger zerolog.Logger) (*OffCPUProgram, error) {
	log := logger.With().Str("component", "bpfprog").Str("mode", "off-cpu").Logger()

	var objs off_cpuObjects
	if err := loadOff_cpuObjects(&objs, nil); err != nil {
		return nil, fmt.Errorf("bpfprog: load off-cpu objects: %w", err)
	}

	tp, err := link.AttachRawTracepoint(link.RawTracepointOptions{
		Name:    "sched_switch",
		Program: objs.OffCpuTrace,
	})
	if err != nil {
		objs.Close() // nolint:errcheck
		return nil, fmt.Errorf("bpfprog: attach sched_switch raw tracepoint: %w", err)
	}

	reader, err := ringbuf.NewReader(objs.Events)
	if err != nil {
		tp.Close()   // nolint:errcheck
		objs.Close() // nolint:errcheck
		return nil, fmt.Errorf("bpfprog: open off-cpu ringbuf reader: %w", err)
	}

	log.Info().Msg("off-cpu sampler attached to sched_switch")

	return &OffCPUProgram{
		objects: objs,
		link:    tp,
		reader:  reader,
		logger:  log,
	}, nil
}

// Reader returns the ring-buffer reader for off-CPU samples.
func (p *OffCPUProgram) Reader() *ringbuf.Reader {
	return p.reader
}

// KernelStacks returns the kernel stack-trace table.
func (p *OffCPUProgram) KernelStacks() *ebpf.Map {
	return p.objects.Kstack
}

// UserStacks returns the user stack-trace table.
func (p *OffCPUProgram) UserStacks() *ebpf.Map {
	return p.objects.Ustack
}

// Detach removes the sched_switch tracepoint link, stopping new records
// from being produced. The ring buffer map itself (and any records
// already in it) survives until Close.
func (p *OffCPUProgram) Detach() error {
	if err := p.link.Close(); err != nil {
		return fmt.Errorf("bpfprog: detach sched_switch tracepoint: %w", err)
	}
	return nil
}

// Close releases the BPF objects (maps and program). Call Detach and
// CloseReader first.
func (p *OffCPUProgram) Close() error {
	if err := p.objects.Close(); err != nil {
		return fmt.Errorf("bpfprog: close off-cpu objects: %w", err)
	}
	return nil
}

// CloseReader closes the ring-buffer reader, unblocking any in-flight Read.
func (p *OffCPUProgram) CloseReader() error {
	return p.reader.Close()
}
