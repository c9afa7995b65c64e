package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/riftrace/riftrace/internal/collector"
	"github.com/riftrace/riftrace/internal/pprofsink"
)

const (
	formatFolded = "folded"
	formatPprof  = "pprof"
)

// openSink builds the sink a session writes folded stacks to. sampleType/
// sampleUnit label the pprof profile's single sample type when format is
// pprof; on-CPU sessions weight each sample by 1 (a count of timer ticks)
// and off-CPU sessions weight by nanoseconds blocked, so the two need
// different labels — per spec.md §9 the two units are never reconciled
// into one profile.
func openSink(format, output, sampleType, sampleUnit string) (collector.Sink, func(), error) {
	w, closeFn, err := openOutput(output)
	if err != nil {
		return nil, func() {}, err
	}

	switch format {
	case formatFolded, "":
		return collector.NewFoldedSink(w), closeFn, nil
	case formatPprof:
		return pprofsink.New(w, sampleType, sampleUnit), closeFn, nil
	default:
		closeFn()
		return nil, func() {}, fmt.Errorf("unknown --format %q: want %q or %q", format, formatFolded, formatPprof)
	}
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(path) // #nosec G304 -- path is an operator-supplied CLI flag, not untrusted input
	if err != nil {
		return nil, func() {}, fmt.Errorf("open output file %q: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
