// Package ksym resolves kernel instruction addresses to symbol names using
// /proc/kallsyms. Kallsyms lists each symbol's start address only, so the
// resolver builds an explicit range table: every symbol's end is the next
// symbol's start, and the last symbol's end is unbounded.
package ksym

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/riftrace/riftrace/internal/sys/proc"
)

// Symbol is a resolved kernel address.
type Symbol struct {
	// Name is the function or object owning the address, empty if
	// unresolved.
	Name string
	// Module is the kernel module that owns Name, empty for core kernel
	// symbols.
	Module string
	// Offset is addr - range start, the byte offset into Name.
	Offset uint64
}

// String renders sym as "name+0x1a2b [module]", "name+0x1a2b" for core
// kernel symbols, or "" when unresolved. Folded-stack output uses Name
// alone, not this form.
func (s Symbol) String() string {
	if s.Name == "" {
		return ""
	}
	if s.Module != "" {
		return fmt.Sprintf("%s+0x%x [%s]", s.Name, s.Offset, s.Module)
	}
	return fmt.Sprintf("%s+0x%x", s.Name, s.Offset)
}

type symRange struct {
	start  uint64
	end    uint64
	name   string
	module string
}

// Resolver resolves kernel addresses against a snapshot of /proc/kallsyms
// taken at construction time. It does not refresh automatically: modules
// loaded after NewResolver runs are invisible to it.
type Resolver struct {
	ranges []symRange
	logger zerolog.Logger
}

// NewResolver reads and sorts /proc/kallsyms, building the range table
// used by Resolve. Kernel address-space layout randomization means
// unprivileged readers may see all-zero addresses; that is reported back
// as zeroCount so callers can log or surface the degraded condition
// instead of silently returning empty symbols forever.
func NewResolver(logger zerolog.Logger) (*Resolver, int, error) {
	log := logger.With().Str("component", "ksym").Logger()

	symbols, zeroCount, err := proc.ReadKallsyms()
	if err != nil {
		return nil, zeroCount, fmt.Errorf("ksym: %w", err)
	}

	entries := make([]symRange, 0, len(symbols))
	for _, sym := range symbols {
		entries = append(entries, symRange{
			start:  sym.Address,
			name:   sym.Name,
			module: sym.Module,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].start < entries[j].start })

	for i := range entries {
		if i+1 < len(entries) {
			entries[i].end = entries[i+1].start
		} else {
			entries[i].end = ^uint64(0)
		}
	}

	if zeroCount > 0 {
		log.Warn().Int("zero_addresses", zeroCount).Msg("kallsyms contains zeroed addresses; kernel symbol resolution will be degraded")
	}
	log.Debug().Int("symbols", len(entries)).Msg("loaded kernel symbol table")

	return &Resolver{ranges: entries, logger: log}, zeroCount, nil
}

// Resolve looks up addr in the range table. It returns the zero Symbol if
// addr falls outside every known range: before the first symbol, or when
// the table is empty. The last range has no upper bound.
func (r *Resolver) Resolve(addr uint64) Symbol {
	n := len(r.ranges)
	idx := sort.Search(n, func(i int) bool {
		return i == n-1 || addr < r.ranges[i].end
	})
	if idx == n || addr < r.ranges[idx].start {
		return Symbol{}
	}

	owner := r.ranges[idx]
	return Symbol{
		Name:   owner.name,
		Module: owner.module,
		Offset: addr - owner.start,
	}
}

// SymbolCount reports how many symbols are loaded, for diagnostics.
func (r *Resolver) SymbolCount() int {
	return len(r.ranges)
}
