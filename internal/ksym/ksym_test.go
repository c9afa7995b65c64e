package ksym

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildResolver(entries ...symRange) *Resolver {
	for i := range entries {
		if i+1 < len(entries) {
			entries[i].end = entries[i+1].start
		} else {
			entries[i].end = ^uint64(0)
		}
	}
	return &Resolver{ranges: entries}
}

func TestResolveWithinRange(t *testing.T) {
	r := buildResolver(
		symRange{start: 0x1000, name: "alpha"},
		symRange{start: 0x2000, name: "beta"},
		symRange{start: 0x3000, name: "gamma", module: "nf_conntrack"},
	)

	sym := r.Resolve(0x2050)
	require.Equal(t, "beta", sym.Name)
	require.Equal(t, uint64(0x50), sym.Offset)
	require.Empty(t, sym.Module)

	sym = r.Resolve(0x3fff)
	require.Equal(t, "gamma", sym.Name)
	require.Equal(t, "nf_conntrack", sym.Module)
}

func TestResolveLastRangeIsUnbounded(t *testing.T) {
	r := buildResolver(
		symRange{start: 0x1000, name: "alpha"},
		symRange{start: 0x2000, name: "omega"},
	)

	sym := r.Resolve(0xffffffffffffffff)
	require.Equal(t, "omega", sym.Name)
}

func TestResolveBeforeFirstSymbol(t *testing.T) {
	r := buildResolver(symRange{start: 0x1000, name: "alpha"})

	sym := r.Resolve(0x500)
	require.Equal(t, Symbol{}, sym)
}

func TestSymbolString(t *testing.T) {
	require.Equal(t, "", Symbol{}.String())
	require.Equal(t, "do_sys_open+0x10", Symbol{Name: "do_sys_open", Offset: 0x10}.String())
	require.Equal(t, "nf_hook+0x4 [nf_conntrack]", Symbol{Name: "nf_hook", Offset: 4, Module: "nf_conntrack"}.String())
}

func TestSymbolCount(t *testing.T) {
	r := buildResolver(symRange{start: 0x1000, name: "a"}, symRange{start: 0x2000, name: "b"})
	require.Equal(t, 2, r.SymbolCount())
}
