package collector

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"

	"github.com/riftrace/riftrace/internal/record"
	"github.com/riftrace/riftrace/internal/safe"
)

// drain pulls records until the reader's deadline expires, the reader is
// closed, or ctx is cancelled. It is called twice per session: once for the
// main duration, once more for the post-detach grace period — both times
// against the same reader, just with a fresh deadline set by the caller.
func (s *Session) drain(ctx context.Context, stats *Stats) error {
	reader := s.program.Reader()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := reader.Read()
		if err != nil {
			if errors.Is(err, ringbuf.ErrClosed) || errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("collector: read ring buffer: %w", err)
		}

		stats.RecordsRead++
		if err := s.handleRecord(rec.RawSample, stats); err != nil {
			s.logger.Debug().Err(err).Msg("dropping unreadable record")
		}
	}
}

// handleRecord decodes one raw ring-buffer record according to the
// session's kind, filters it to the target PID (required for off-CPU,
// whose kernel side captures system-wide), and emits its folded lines.
func (s *Session) handleRecord(raw []byte, stats *Stats) error {
	var pid uint32
	var kstackID, ustackID int64
	var weight uint64

	switch s.Kind.(type) {
	case OnCPU:
		sample, err := record.DecodeSample(raw)
		if err != nil {
			return err
		}
		pid, kstackID, ustackID, weight = sample.PID, sample.KStackID, sample.UStackID, 1
	case OffCPU:
		sample, err := record.DecodeOffCPUSample(raw)
		if err != nil {
			return err
		}
		pid, kstackID, ustackID, weight = sample.PID, sample.KStackID, sample.UStackID, sample.OffNS
	}

	if int(pid) != s.PID {
		stats.RecordsFiltered++
		return nil
	}

	kernelIPs, err := stackIPs(s.program.KernelStacks(), kstackID)
	if err != nil {
		s.logger.Debug().Err(err).Msg("kernel stack lookup failed")
	}
	userIPs, err := stackIPs(s.program.UserStacks(), ustackID)
	if err != nil {
		s.logger.Debug().Err(err).Msg("user stack lookup failed")
	}

	wroteAny := false
	if len(kernelIPs) > 0 {
		if frames := foldKernel(kernelIPs, s.kResolver); len(frames) > 0 {
			if err := s.sink.Emit(frames, weight); err != nil {
				return fmt.Errorf("emit kernel stack: %w", err)
			}
			wroteAny = true
		}
	}
	if len(userIPs) > 0 {
		if frames := foldUser(userIPs, s.uResolver); len(frames) > 0 {
			if err := s.sink.Emit(frames, weight); err != nil {
				return fmt.Errorf("emit user stack: %w", err)
			}
			wroteAny = true
		}
	}
	if wroteAny {
		stats.RecordsFolded++
	}
	return nil
}

// stackIPs resolves a stack ID into its raw instruction-pointer vector.
// record.NoStack (-1) means no stack was captured; that is not an error,
// just an absent side.
func stackIPs(table *ebpf.Map, id int64) ([]uint64, error) {
	if id == record.NoStack {
		return nil, nil
	}

	key, clamped := safe.Int64ToUint32(id)
	if clamped {
		return nil, fmt.Errorf("collector: stack id %d out of range", id)
	}

	var raw [maxStackDepth]uint64
	if err := table.Lookup(&key, &raw); err != nil {
		return nil, fmt.Errorf("collector: lookup stack id %d: %w", id, err)
	}
	return trimStack(raw[:]), nil
}

// trimStack cuts a fixed-width stack-trace table entry at its first zero
// instruction pointer: the kernel zero-pads entries shorter than
// maxStackDepth, and 0 is never a valid instruction pointer.
func trimStack(raw []uint64) []uint64 {
	for i, ip := range raw {
		if ip == 0 {
			return raw[:i]
		}
	}
	return raw
}
