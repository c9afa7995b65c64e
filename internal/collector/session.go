// Package collector drives one profiling session end to end: load the
// matching kernel sampler, attach it to the target process, drain the ring
// buffer while symbolizing and folding each record, and stop cleanly at the
// deadline. It is the one piece of the pipeline that touches every other
// package: bpfprog, ksym, usym and record.
package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/riftrace/riftrace/internal/bpfprog"
	"github.com/riftrace/riftrace/internal/ksym"
	"github.com/riftrace/riftrace/internal/usym"
)

// State is a session's position in its lifecycle. Transitions are linear;
// any failure jumps straight to Stopping.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateAttached
	StateDraining
	StateStopping
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateAttached:
		return "attached"
	case StateDraining:
		return "draining"
	case StateStopping:
		return "stopping"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// SessionKind selects which kernel sampler a session drives and how its
// records are decoded. The two modes share everything else: load, attach,
// drain, stop.
type SessionKind interface {
	isSessionKind()
}

// OnCPU runs the timer-driven CPU-clock sampler at FrequencyHz.
type OnCPU struct {
	FrequencyHz int
}

func (OnCPU) isSessionKind() {}

// OffCPU runs the scheduler-switch sampler.
type OffCPU struct{}

func (OffCPU) isSessionKind() {}

// gracePeriod bounds how long the session keeps draining after detaching
// the kernel program, per the termination rule: drain residual records for
// up to a small grace, then stop.
const gracePeriod = 100 * time.Millisecond

// maxStackDepth matches MAX_STACK_DEPTH in bpf/on_cpu.bpf.c and
// bpf/off_cpu.bpf.c: the stack-trace tables' value is an array of this many
// u64 instruction pointers, zero-padded past the captured depth.
const maxStackDepth = 127

// Stats summarizes what a session observed, for the CLI to report after Run
// returns.
type Stats struct {
	RecordsRead     int
	RecordsFolded   int
	RecordsFiltered int
}

// Session drives one target process through one sampling mode for a fixed
// duration, writing folded-stack lines to sink as records arrive.
type Session struct {
	ID       string
	PID      int
	Kind     SessionKind
	Duration time.Duration

	sink   Sink
	logger zerolog.Logger

	mu    sync.Mutex
	state State

	program   bpfprog.Program
	kResolver *ksym.Resolver
	uResolver *usym.Resolver
	detached  bool
}

// NewSession constructs a session ready to Run. Nothing is loaded or
// attached yet — that happens inside Run, so construction can never fail
// partway through a kernel attach. sink receives one folded stack per
// emitted line; weight is a plain count for OnCPU sessions and nanoseconds
// for OffCPU sessions — the two units are never mixed within one sink.
func NewSession(pid int, kind SessionKind, duration time.Duration, sink Sink, logger zerolog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:       id,
		PID:      pid,
		Kind:     kind,
		Duration: duration,
		sink:     sink,
		logger:   logger.With().Str("component", "collector").Str("session_id", id).Int("pid", pid).Logger(),
		state:    StateIdle,
	}
}

// State reports the session's current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.logger.Debug().Str("state", state.String()).Msg("session state transition")
}

// Run executes the full session lifecycle: load, attach, drain until
// duration elapses or ctx is cancelled, detach, drain the grace period, and
// release kernel resources. It returns once the session reaches Done.
func (s *Session) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	s.setState(StateLoading)
	if err := s.load(); err != nil {
		s.setState(StateStopping)
		return stats, fmt.Errorf("collector: load session: %w", err)
	}
	defer s.release()

	s.setState(StateAttached)
	s.logger.Info().Dur("duration", s.Duration).Msg("session attached")

	deadline := time.Now().Add(s.Duration)
	if err := s.program.Reader().SetDeadline(deadline); err != nil {
		s.setState(StateStopping)
		return stats, fmt.Errorf("collector: set drain deadline: %w", err)
	}

	s.setState(StateDraining)
	drainErr := s.drain(ctx, &stats)

	s.setState(StateStopping)
	s.detachOnce()

	// A cancelled context means the caller no longer wants to wait at all;
	// skip the grace-period drain but still fall through to release the
	// program below, so perf events / the tracepoint link and the ring
	// buffer map are never leaked.
	if drainErr == nil || ctx.Err() == nil {
		grace := time.Now().Add(gracePeriod)
		if err := s.program.Reader().SetDeadline(grace); err == nil {
			_ = s.drain(ctx, &stats)
		}
	}

	s.setState(StateDone)
	s.logger.Info().
		Int("records_read", stats.RecordsRead).
		Int("records_folded", stats.RecordsFolded).
		Int("records_filtered", stats.RecordsFiltered).
		Msg("session done")

	if drainErr != nil && ctx.Err() != nil {
		return stats, ctx.Err()
	}
	return stats, nil
}

func (s *Session) load() error {
	kResolver, zeroCount, err := ksym.NewResolver(s.logger)
	if err != nil {
		return fmt.Errorf("load kernel symbol table: %w", err)
	}
	if zeroCount > 0 {
		s.logger.Warn().Int("zeroed_entries", zeroCount).Msg("kernel symbolization will be degraded")
	}
	s.kResolver = kResolver

	uResolver, err := usym.NewResolver(s.PID, s.logger)
	if err != nil {
		return fmt.Errorf("snapshot process memory map: %w", err)
	}
	s.uResolver = uResolver

	switch kind := s.Kind.(type) {
	case OnCPU:
		prog, err := bpfprog.LoadOnCPU(s.PID, kind.FrequencyHz, s.logger)
		if err != nil {
			return fmt.Errorf("load on-cpu program: %w", err)
		}
		s.program = prog
	case OffCPU:
		prog, err := bpfprog.LoadOffCPU(s.logger)
		if err != nil {
			return fmt.Errorf("load off-cpu program: %w", err)
		}
		s.program = prog
	default:
		return fmt.Errorf("unknown session kind %T", s.Kind)
	}

	return nil
}

// detachOnce stops new records from being produced. It is safe to call more
// than once (release calls it again as a backstop on paths that return
// before Run reaches its normal Stopping transition).
func (s *Session) detachOnce() {
	if s.detached || s.program == nil {
		return
	}
	if err := s.program.Detach(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to detach kernel program cleanly")
	}
	s.detached = true
}

// release tears down everything load acquired, in reverse order, tolerating
// partial initialization (a failed load may have set only some fields).
func (s *Session) release() {
	s.detachOnce()
	if s.program != nil {
		_ = s.program.CloseReader()
		_ = s.program.Close()
	}
	if s.uResolver != nil {
		_ = s.uResolver.Close()
	}
	if err := s.sink.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to close output sink cleanly")
	}
}
