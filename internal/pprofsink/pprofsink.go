// Package pprofsink adapts a collector session's folded-stack stream into
// a pprof-compatible profile, so riftrace's output can be opened directly
// with `go tool pprof` alongside the folded-stack text format spec.md
// requires. It is additive: the folded sink remains the default.
package pprofsink

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"
)

// Sink accumulates folded stacks into a pprof profile, writing it to w on
// Close. It satisfies collector.Sink structurally — it does not import
// that package, to keep the dependency one-directional (cli wires both).
type Sink struct {
	w          io.Writer
	sampleType string
	sampleUnit string

	functions map[string]*profile.Function
	locations map[string]*profile.Location
	samples   []*profile.Sample
	nextID    uint64
}

// New returns a Sink that writes a gzip-compressed pprof profile to w when
// closed. sampleType/sampleUnit label the single sample type the profile
// carries — e.g. ("samples", "count") for on-CPU, ("off-cpu", "nanoseconds")
// for off-CPU — since a pprof profile's sample types are fixed up front and
// a riftrace session never mixes the two units.
func New(w io.Writer, sampleType, sampleUnit string) *Sink {
	return &Sink{
		w:          w,
		sampleType: sampleType,
		sampleUnit: sampleUnit,
		functions:  make(map[string]*profile.Function),
		locations:  make(map[string]*profile.Location),
	}
}

// Emit records one folded stack as a pprof sample. frames are in root-first
// order (as the collector's fold step produces); pprof's convention is
// leaf-first locations per sample, so Emit reverses them here.
func (s *Sink) Emit(frames []string, weight uint64) error {
	if len(frames) == 0 {
		return nil
	}

	locs := make([]*profile.Location, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		locs = append(locs, s.locationFor(frames[i]))
	}

	s.samples = append(s.samples, &profile.Sample{
		Location: locs,
		Value:    []int64{int64(weight)}, // #nosec G115 -- weight is a sample count or a duration, always small enough in practice
	})
	return nil
}

// Close finalizes the accumulated samples into a profile.Profile and writes
// it to w.
func (s *Sink) Close() error {
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: s.sampleType, Unit: s.sampleUnit}},
		Sample:     s.samples,
		Location:   make([]*profile.Location, 0, len(s.locations)),
		Function:   make([]*profile.Function, 0, len(s.functions)),
	}
	for _, loc := range s.locations {
		prof.Location = append(prof.Location, loc)
	}
	for _, fn := range s.functions {
		prof.Function = append(prof.Function, fn)
	}

	if err := prof.CheckValid(); err != nil {
		return fmt.Errorf("pprofsink: built an invalid profile: %w", err)
	}
	if err := prof.Write(s.w); err != nil {
		return fmt.Errorf("pprofsink: write profile: %w", err)
	}
	return nil
}

func (s *Sink) locationFor(name string) *profile.Location {
	if loc, ok := s.locations[name]; ok {
		return loc
	}

	fn := s.functionFor(name)
	s.nextID++
	loc := &profile.Location{
		ID:   s.nextID,
		Line: []profile.Line{{Function: fn}},
	}
	s.locations[name] = loc
	return loc
}

func (s *Sink) functionFor(name string) *profile.Function {
	if fn, ok := s.functions[name]; ok {
		return fn
	}

	s.nextID++
	fn := &profile.Function{
		ID:   s.nextID,
		Name: name,
	}
	s.functions[name] = fn
	return fn
}
