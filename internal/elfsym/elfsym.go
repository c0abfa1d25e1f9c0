// Package elfsym reads the dynamic symbol table of an on-disk shared
// object: open with debug/elf, iterate the dynamic symbols, strip version
// suffixes, and collect name -> value.
//
// This package never maps segments into memory and never resolves PLT/GOT
// relocations into a callable address; it exists purely to answer "what
// address does this shared object define this symbol at", which the
// link-map fallback path in internal/resolver needs.
package elfsym

import (
	"debug/elf"
	"fmt"
	"strings"
)

// SymbolTable is a name -> st_value map for one shared object's dynamic
// symbols. Values are link-time addresses within the object; callers add the
// object's load bias (internal/linkmap.Object.LoadBias) to get a runtime
// address.
type SymbolTable struct {
	Path    string
	Machine elf.Machine
	Symbols map[string]uint64
}

// Lookup returns the link-time value of name, or ok=false if this object
// does not define it.
func (t *SymbolTable) Lookup(name string) (uint64, bool) {
	v, ok := t.Symbols[name]
	return v, ok
}

// Read opens path and loads its dynamic symbol table. It is not an error for
// a shared object to have no dynamic symbols (DynamicSymbols returns
// elf.ErrNoSymbols in that case); Read reports an empty table rather than
// failing, since the caller is typically scanning many objects looking for
// one name.
func Read(path string) (*SymbolTable, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfsym: open %s: %w", path, err)
	}
	defer f.Close()

	t := &SymbolTable{Path: path, Machine: f.Machine, Symbols: make(map[string]uint64)}

	syms, err := f.DynamicSymbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, fmt.Errorf("elfsym: dynamic symbols of %s: %w", path, err)
	}
	for _, sym := range syms {
		if sym.Name == "" || sym.Value == 0 {
			continue
		}
		t.Symbols[sym.Name] = sym.Value
		if base, ok := stripVersion(sym.Name); ok {
			t.Symbols[base] = sym.Value
		}
	}
	return t, nil
}

// CodeBytes reads up to n bytes of raw section content starting at the
// link-time virtual address value, for shimguinctl inspect's disassembly
// preview. It locates the allocated section containing value and slices
// straight out of that section's on-disk data; this never maps anything
// into memory, matching the rest of this package's on-disk-only contract.
// Returns fewer than n bytes if value sits within n bytes of the section's
// end.
func CodeBytes(path string, value uint64, n int) ([]byte, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfsym: open %s: %w", path, err)
	}
	defer f.Close()

	for _, sec := range f.Sections {
		if sec.Flags&elf.SHF_ALLOC == 0 || sec.Addr == 0 {
			continue
		}
		if value < sec.Addr || value >= sec.Addr+sec.Size {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return nil, fmt.Errorf("elfsym: read section %s of %s: %w", sec.Name, path, err)
		}
		off := value - sec.Addr
		end := off + uint64(n)
		if end > uint64(len(data)) {
			end = uint64(len(data))
		}
		return data[off:end], nil
	}
	return nil, fmt.Errorf("elfsym: no allocated section in %s contains address 0x%x", path, value)
}

// stripVersion removes a GLIBC-style symbol version suffix (@@VERSION for
// the default version, @VERSION otherwise) so lookups by bare name succeed
// regardless of which form a given object uses.
func stripVersion(name string) (string, bool) {
	if idx := strings.Index(name, "@@"); idx != -1 {
		return name[:idx], true
	}
	if idx := strings.Index(name, "@"); idx != -1 {
		return name[:idx], true
	}
	return name, false
}
