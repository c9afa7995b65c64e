// Package usym resolves user-space instruction addresses sampled from a
// target process into function/file/line frames. It snapshots the
// process's memory map once at session init, locates the ELF segment
// owning each sampled address, and symbolizes through DWARF (falling back
// to the plain symbol table, and from there to a separate debug-info file
// located by GNU build-id).
package usym

import (
	"sync"

	"github.com/rs/zerolog"
)

// Resolver resolves addresses for one target process. It is intended to
// be retained for the lifetime of a symbolization worker so its per-binary
// ELF/DWARF caches carry across samples instead of being rebuilt per
// lookup.
type Resolver struct {
	pid      int
	segments []Segment
	logger   zerolog.Logger

	mu       sync.Mutex
	binaries map[string]*binarySymbolizer
}

// NewResolver snapshots pid's memory map and returns a Resolver ready to
// symbolize addresses against it.
func NewResolver(pid int, logger zerolog.Logger) (*Resolver, error) {
	segments, err := ReadMaps(pid)
	if err != nil {
		return nil, err
	}

	log := logger.With().Str("component", "usym").Int("pid", pid).Logger()
	log.Debug().Int("segments", len(segments)).Msg("snapshotted process memory map")

	return &Resolver{
		pid:      pid,
		segments: segments,
		logger:   log,
		binaries: make(map[string]*binarySymbolizer),
	}, nil
}

// Resolve maps a runtime virtual address to one or more frames. It
// returns a single offset-only Frame when the address falls outside any
// known segment, the mapped file can't be opened, or nothing in it
// resolves — callers render that as a bare hex address.
func (r *Resolver) Resolve(addr uint64) []Frame {
	segment, ok := find(r.segments, addr)
	if !ok {
		return []Frame{{Offset: addr}}
	}

	offset := addr - segment.Start + segment.FileOffset

	bs, err := r.binarySymbolizerFor(segment.Path)
	if err != nil {
		r.logger.Debug().Err(err).Str("path", segment.Path).Msg("could not open mapped binary for symbolization")
		return []Frame{{Offset: offset}}
	}

	frames, err := bs.resolve(offset)
	if err != nil || len(frames) == 0 {
		return []Frame{{Offset: offset}}
	}
	return frames
}

func (r *Resolver) binarySymbolizerFor(path string) (*binarySymbolizer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bs, ok := r.binaries[path]; ok {
		return bs, nil
	}

	bs, err := newBinarySymbolizer(path)
	if err != nil {
		return nil, err
	}
	r.binaries[path] = bs
	return bs, nil
}

// Close releases every ELF file opened while resolving addresses for this
// process.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, bs := range r.binaries {
		if err := bs.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
