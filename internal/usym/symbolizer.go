package usym

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"sync"
)

// Frame is one resolved user-stack frame. A physical address can expand
// into several Frames when the compiler inlined functions at that
// address: the physical (non-inlined) function comes first, and the
// inlined callees follow in nesting order with Inline set, so the
// innermost call (the one whose body the address falls in) comes last.
type Frame struct {
	Function string
	File     string
	Line     int
	Offset   uint64
	Inline   bool
}

// String renders a frame for display: the function name with file:line
// when known, or the hex offset when unresolved. Folded-stack output uses
// Function (or the hex offset) alone, without file:line.
func (f Frame) String() string {
	if f.Function == "" {
		return fmt.Sprintf("0x%x", f.Offset)
	}
	if f.File != "" && f.Line > 0 {
		return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
	}
	return f.Function
}

// binarySymbolizer resolves file offsets within one ELF binary. It is
// retained for the lifetime of a Resolver so its symbol-table and DWARF
// caches survive across samples from the same mapped file.
type binarySymbolizer struct {
	path      string
	elfFile   *elf.File
	dwarfData *dwarf.Data
	symtab    []elf.Symbol

	mu    sync.Mutex
	cache map[uint64][]Frame
}

func loadBinarySymbolizer(path string) (*binarySymbolizer, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("usym: open %s: %w", path, err)
	}

	bs := &binarySymbolizer{
		path:    path,
		elfFile: f,
		cache:   make(map[uint64][]Frame),
	}
	if d, err := f.DWARF(); err == nil {
		bs.dwarfData = d
	}
	if syms, err := f.Symbols(); err == nil {
		bs.symtab = syms
	}
	return bs, nil
}

func newBinarySymbolizer(path string) (*binarySymbolizer, error) {
	bs, err := loadBinarySymbolizer(path)
	if err == nil && (bs.dwarfData != nil || len(bs.symtab) > 0) {
		return bs, nil
	}

	if debugPath, ok := FindDebugInfo(path); ok {
		if dbg, derr := loadBinarySymbolizer(debugPath); derr == nil {
			return dbg, nil
		}
	}

	if err != nil {
		return nil, err
	}
	return bs, nil // stripped binary, no debug-info fallback found; resolve() will report not-found
}

func (b *binarySymbolizer) resolve(offset uint64) ([]Frame, error) {
	b.mu.Lock()
	if frames, ok := b.cache[offset]; ok {
		b.mu.Unlock()
		return frames, nil
	}
	b.mu.Unlock()

	var frames []Frame
	var err error

	if b.dwarfData != nil {
		frames, err = b.resolveDWARF(offset)
	}
	if len(frames) == 0 && len(b.symtab) > 0 {
		if frame, serr := b.resolveSymTab(offset); serr == nil {
			frames = []Frame{frame}
			err = nil
		}
	}
	if len(frames) == 0 {
		if err == nil {
			err = fmt.Errorf("usym: no symbol for offset 0x%x in %s", offset, b.path)
		}
		return nil, err
	}

	b.mu.Lock()
	b.cache[offset] = frames
	b.mu.Unlock()
	return frames, nil
}

// resolveDWARF finds the subprogram DIE owning offset and, when the
// compiler inlined calls at that address, expands them into additional
// frames. Every inlined frame takes the enclosing physical frame's
// file:line; the inlined entries' own call-site attributes
// (DW_AT_call_file, DW_AT_call_line) are not read.
func (b *binarySymbolizer) resolveDWARF(offset uint64) ([]Frame, error) {
	reader := b.dwarfData.Reader()

	for {
		entry, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagSubprogram {
			continue
		}

		low, high, ok := pcRange(entry)
		if !ok || offset < low || offset >= high {
			if entry.Children {
				if err := reader.SkipChildren(); err != nil {
					return nil, err
				}
			}
			continue
		}

		frame := Frame{Function: entryName(entry)}
		if lineReader, lerr := b.dwarfData.LineReader(entry); lerr == nil && lineReader != nil {
			var le dwarf.LineEntry
			if sErr := lineReader.SeekPC(offset, &le); sErr == nil {
				frame.File = le.File.Name
				frame.Line = le.Line
			}
		}

		frames := []Frame{frame}
		if entry.Children {
			inlined, err := b.collectInlineFrames(reader, offset, frame.File, frame.Line)
			if err != nil {
				return nil, err
			}
			frames = append(frames, inlined...)
		}
		return frames, nil
	}

	return nil, fmt.Errorf("usym: no DWARF subprogram for offset 0x%x", offset)
}

// collectInlineFrames walks the subtree of an already-consumed subprogram
// entry (whose Children flag was true), looking for TagInlinedSubroutine
// entries whose PC range covers offset. depth tracks nested children lists
// via the DWARF null-entry convention so the walk stops exactly at the end
// of the subprogram's own subtree.
func (b *binarySymbolizer) collectInlineFrames(reader *dwarf.Reader, offset uint64, fallbackFile string, fallbackLine int) ([]Frame, error) {
	var frames []Frame
	depth := 1

	for depth > 0 {
		entry, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		if entry.Tag == 0 {
			depth--
			continue
		}

		if entry.Tag == dwarf.TagInlinedSubroutine {
			low, high, hasRange := pcRange(entry)
			if !hasRange || (offset >= low && offset < high) {
				name := inlineOriginName(b.dwarfData, entry)
				file, line := fallbackFile, fallbackLine
				frames = append(frames, Frame{Function: name, File: file, Line: line, Inline: true})
			}
		}

		if entry.Children {
			depth++
		}
	}

	return frames, nil
}

func (b *binarySymbolizer) resolveSymTab(offset uint64) (Frame, error) {
	for _, sym := range b.symtab {
		if offset >= sym.Value && offset < sym.Value+sym.Size {
			return Frame{Function: sym.Name}, nil
		}
	}
	return Frame{}, fmt.Errorf("usym: no symtab entry for offset 0x%x", offset)
}

func (b *binarySymbolizer) close() error {
	if b.elfFile != nil {
		return b.elfFile.Close()
	}
	return nil
}

func pcRange(entry *dwarf.Entry) (low, high uint64, ok bool) {
	lowAttr := entry.Val(dwarf.AttrLowpc)
	highAttr := entry.Val(dwarf.AttrHighpc)
	if lowAttr == nil || highAttr == nil {
		return 0, 0, false
	}

	low, ok = lowAttr.(uint64)
	if !ok {
		return 0, 0, false
	}

	switch v := highAttr.(type) {
	case uint64:
		high = v
	case int64:
		high = low + uint64(v) // #nosec G115 -- highpc-as-offset is always non-negative in practice
	default:
		return 0, 0, false
	}
	return low, high, true
}

func entryName(entry *dwarf.Entry) string {
	if v, ok := entry.Val(dwarf.AttrName).(string); ok {
		return v
	}
	return ""
}

// inlineOriginName resolves an inlined_subroutine's function name, which
// DWARF usually stores indirectly via DW_AT_abstract_origin pointing back
// at the out-of-line subprogram DIE. A fresh reader is used for the
// lookup so the caller's walk position is undisturbed.
func inlineOriginName(data *dwarf.Data, entry *dwarf.Entry) string {
	if name, ok := entry.Val(dwarf.AttrName).(string); ok && name != "" {
		return name
	}

	originOff, ok := entry.Val(dwarf.AttrAbstractOrigin).(dwarf.Offset)
	if !ok {
		return ""
	}

	r := data.Reader()
	r.Seek(originOff)
	origin, err := r.Next()
	if err != nil || origin == nil {
		return ""
	}
	if name, ok := origin.Val(dwarf.AttrName).(string); ok {
		return name
	}
	return ""
}
