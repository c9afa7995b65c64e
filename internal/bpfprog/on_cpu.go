//go:build linux

// Package bpfprog loads the two kernel sampling programs and attaches them
// to their trigger (a per-thread perf event for on-CPU, the sched_switch
// raw tracepoint for off-CPU), handing the caller a ring-buffer reader for
// the records each one emits.
package bpfprog

import (
	"fmt"
	"unsafe"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/riftrace/riftrace/internal/safe"
	"github.com/riftrace/riftrace/internal/sys/proc"
)

//go:generate go run github.com/cilium/ebpf/cmd/bpf2go -tags linux on_cpu ../../bpf/on_cpu.bpf.c -- -I../../bpf/headers
//go:generate go run github.com/cilium/ebpf/cmd/bpf2go -tags linux off_cpu ../../bpf/off_cpu.bpf.c -- -I../../bpf/headers

// OnCPUProgram is a loaded and attached on-CPU sampler: one perf event per
// thread of the target process, each with the kernel program attached and
// enabled.
type OnCPUProgram struct {
	objects      on_cpuObjects
	perfEventFDs []int
	reader       *ringbuf.Reader
	logger       zerolog.Logger
}

// LoadOnCPU loads the on-CPU BPF objects and opens one PERF_COUNT_SW_TASK_CLOCK
// perf event per thread of pid, attaching the kernel program to each and
// enabling it. frequencyHz must already be validated by the caller (see
// internal/cli's frequency bounds).
func LoadOnCPU(pid int, frequencyHz int, logger zerolog.Logger) (*OnCPUProgram, error) {
	log := logger.With().Str("component", "bpfprog").Str("mode", "on-cpu").Logger()

	var objs on_cpuObjects
	if err := loadOn_cpuObjects(&objs, nil); err != nil {
		return nil, fmt.Errorf("bpfprog: load on-cpu objects: %w", err)
	}

	reader, err := ringbuf.NewReader(objs.Samples)
	if err != nil {
		objs.Close() // nolint:errcheck
		return nil, fmt.Errorf("bpfprog: open on-cpu ringbuf reader: %w", err)
	}

	sample, clamp := safe.IntToUint64(frequencyHz)
	if clamp {
		reader.Close() // nolint:errcheck
		objs.Close()   // nolint:errcheck
		return nil, fmt.Errorf("bpfprog: invalid on-cpu frequency %dHz", frequencyHz)
	}

	attr := &unix.PerfEventAttr{
		Type:   unix.PERF_TYPE_SOFTWARE,
		Config: unix.PERF_COUNT_SW_TASK_CLOCK,
		Size:   uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Sample: sample,
		Bits:   unix.PerfBitFreq | unix.PerfBitInherit,
	}

	tids, err := proc.ListThreads(pid)
	if err != nil || len(tids) == 0 {
		log.Warn().Err(err).Int("pid", pid).Msg("failed to list threads, falling back to main pid only")
		tids = []int{pid}
	}

	var fds []int
	for _, tid := range tids {
		fd, err := unix.PerfEventOpen(attr, tid, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
		if err != nil {
			log.Warn().Err(err).Int("tid", tid).Msg("failed to open perf event for thread, skipping")
			continue
		}
		if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_SET_BPF, objs.ProfileCpu.FD()); err != nil {
			unix.Close(fd) // nolint:errcheck
			log.Warn().Err(err).Int("tid", tid).Msg("failed to attach bpf program to perf event, skipping")
			continue
		}
		if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
			unix.Close(fd) // nolint:errcheck
			log.Warn().Err(err).Int("tid", tid).Msg("failed to enable perf event, skipping")
			continue
		}
		fds = append(fds, fd)
	}

	if len(fds) == 0 {
		reader.Close() // nolint:errcheck
		objs.Close()    // nolint:errcheck
		return nil, fmt.Errorf("bpfprog: failed to open perf events for any thread of pid %d", pid)
	}

	log.Info().Int("threads_attached", len(fds)).Int("threads_total", len(tids)).Msg("on-cpu sampler attached")

	return &OnCPUProgram{
		objects:      objs,
		perfEventFDs: fds,
		reader:       reader,
		logger:       log,
	}, nil
}

// Reader returns the ring-buffer reader for on-CPU samples.
func (p *OnCPUProgram) Reader() *ringbuf.Reader {
	return p.reader
}

// KernelStacks returns the kernel stack-trace table.
func (p *OnCPUProgram) KernelStacks() *ebpf.Map {
	return p.objects.Stacks
}

// UserStacks returns the user stack-trace table.
func (p *OnCPUProgram) UserStacks() *ebpf.Map {
	return p.objects.Ustacks
}

// Detach disables and closes every perf event fd, stopping new records
// from being produced. The ring buffer map itself (and any records
// already in it) survives until Close.
func (p *OnCPUProgram) Detach() error {
	var firstErr error
	for _, fd := range p.perfEventFDs {
		_ = unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_DISABLE, 0)
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("bpfprog: close perf event fd %d: %w", fd, err)
		}
	}
	return firstErr
}

// Close releases the BPF objects (maps and program). Call Detach and
// CloseReader first.
func (p *OnCPUProgram) Close() error {
	if err := p.objects.Close(); err != nil {
		return fmt.Errorf("bpfprog: close on-cpu objects: %w", err)
	}
	return nil
}

// CloseReader closes the ring-buffer reader, unblocking any in-flight Read.
func (p *OnCPUProgram) CloseReader() error {
	return p.reader.Close()
}
