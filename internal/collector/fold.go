package collector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/riftrace/riftrace/internal/ksym"
	"github.com/riftrace/riftrace/internal/usym"
)

// kernelResolver and userResolver are the narrow slices of ksym.Resolver
// and usym.Resolver that folding needs. Defining them here (rather than
// taking the concrete types) keeps fold logic testable with fakes, without
// the production callers changing at all — *ksym.Resolver and
// *usym.Resolver already satisfy these.
type kernelResolver interface {
	Resolve(addr uint64) ksym.Symbol
}

type userResolver interface {
	Resolve(addr uint64) []usym.Frame
}

// foldKernel resolves a raw kernel stack and orders it root-first. Captured
// stacks arrive leaf-first (the kernel writes the current instruction
// pointer at index 0, the outermost caller last); reversing puts the root
// caller first and the sampled instruction last, matching the folded-stack
// convention the renderer expects.
func foldKernel(ips []uint64, resolver kernelResolver) []string {
	frames := make([]string, 0, len(ips))
	for i := len(ips) - 1; i >= 0; i-- {
		name := resolver.Resolve(ips[i]).Name
		if name == "" {
			name = "unknown"
		}
		frames = append(frames, name)
	}
	return frames
}

// foldUser mirrors foldKernel, but each address can expand into more than
// one frame when the compiler inlined calls there. usym.Resolver orders a
// single address's expansion caller-first, leaf-last (the physical,
// non-inlined function first, its inlined callees following in nesting
// order). Both the address sequence and each address's own expansion are
// reversed before appending: addresses come out root-first, and within one
// address the inlined leaf comes before the function it was inlined into.
func foldUser(ips []uint64, resolver userResolver) []string {
	frames := make([]string, 0, len(ips))
	for i := len(ips) - 1; i >= 0; i-- {
		expansion := resolver.Resolve(ips[i])
		for j := len(expansion) - 1; j >= 0; j-- {
			name := expansion[j].Function
			if name == "" {
				name = fmt.Sprintf("0x%x", expansion[j].Offset)
			}
			frames = append(frames, name)
		}
	}
	return frames
}

// foldLine renders a folded-stack line: frames joined by ';', followed by a
// space and the weight. Returns "" when frames is empty — callers must not
// emit a line with no frames (see the folded-line invariant).
func foldLine(frames []string, weight uint64) string {
	if len(frames) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Join(frames, ";"))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(weight, 10))
	b.WriteByte('\n')
	return b.String()
}
