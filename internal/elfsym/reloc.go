package elfsym

import (
	"debug/elf"
	"fmt"
)

// Relocation is a diagnostic-only view of one RELA entry: where it applies,
// which symbol it names (if any), and its addend. It exists for
// `shimguinctl inspect --relocs`, so an operator picking rule-set targets
// can see which names in a shared object are imported (undefined, resolved
// via PLT/GOT) versus defined locally.
type Relocation struct {
	Offset uint64
	Symbol string
	Addend int64
	Type   uint32
}

// Relocations walks every SHT_RELA section in the object (conventionally
// .rela.dyn and .rela.plt) and decodes each entry's 24-byte
// r_offset/r_info/r_addend layout by hand, since debug/elf exposes raw
// section data but no typed RELA accessor. Multi-byte fields are read with
// f.ByteOrder, the endianness debug/elf already detected from the file's own
// header, so a big-endian 64-bit object (mips64) decodes correctly too. Only
// the ELF64 entry layout is decoded: the 12-byte entries of a 32-bit object
// are not decoded correctly.
// Symbol indices are resolved against elf.File.DynamicSymbols, which already
// returns entries in ELF symbol-table order starting at index 1.
func Relocations(path string) ([]Relocation, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfsym: open %s: %w", path, err)
	}
	defer f.Close()

	dynSyms, _ := f.DynamicSymbols()

	var out []Relocation
	for _, sec := range f.Sections {
		if sec.Type != elf.SHT_RELA {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			continue
		}
		const entrySize = 24
		for i := 0; i+entrySize <= len(data); i += entrySize {
			rOffset := f.ByteOrder.Uint64(data[i:])
			rInfo := f.ByteOrder.Uint64(data[i+8:])
			rAddend := int64(f.ByteOrder.Uint64(data[i+16:]))

			relType := uint32(rInfo)
			symIdx := int(rInfo >> 32)

			var name string
			if arrayIdx := symIdx - 1; arrayIdx >= 0 && arrayIdx < len(dynSyms) {
				name = dynSyms[arrayIdx].Name
			}

			out = append(out, Relocation{
				Offset: rOffset,
				Symbol: name,
				Addend: rAddend,
				Type:   relType,
			})
		}
	}
	return out, nil
}
