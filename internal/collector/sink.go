package collector

import "io"

// Sink receives one folded stack per call: the ordered frame names and the
// sample's weight (a count for on-CPU, nanoseconds for off-CPU — see
// Session's doc on weight units). Implementations decide how to render
// that: the default is plain folded-stack text, but anything satisfying
// this interface can be wired in (see internal/pprofsink).
type Sink interface {
	Emit(frames []string, weight uint64) error
	Close() error
}

// FoldedSink writes the canonical collapsed-stack text format: frames
// joined by ';', a space, the weight, and a newline. One call to Emit is
// one line.
type FoldedSink struct {
	w io.Writer
}

// NewFoldedSink wraps w as a Sink. w is never closed by Close — callers
// that opened a file own closing it.
func NewFoldedSink(w io.Writer) *FoldedSink {
	return &FoldedSink{w: w}
}

func (s *FoldedSink) Emit(frames []string, weight uint64) error {
	line := foldLine(frames, weight)
	if line == "" {
		return nil
	}
	_, err := s.w.Write([]byte(line))
	return err
}

func (s *FoldedSink) Close() error {
	return nil
}
