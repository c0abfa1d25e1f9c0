package elfsym

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildMinimalSO hand-assembles the smallest ET_DYN ELF64 file debug/elf will
// parse a dynamic symbol table out of: a file header, one SHT_DYNSYM section
// (two entries: the mandatory STN_UNDEF slot and one real symbol), its
// backing SHT_STRTAB, and a section-header string table. No program headers
// or loadable segments exist; Read never needs them.
func buildMinimalSO(t *testing.T, symName string, symValue uint64) string {
	t.Helper()

	const (
		ehdrSize = 64
		symSize  = 24
		shdrSize = 64
	)

	dynsymOff := uint64(ehdrSize)
	dynsym := make([]byte, symSize*2)
	// entry 0: STN_UNDEF, left zeroed.
	binary.LittleEndian.PutUint32(dynsym[symSize+0:], 1) // st_name -> offset 1 in .dynstr
	dynsym[symSize+4] = 0x12                             // st_info: GLOBAL FUNC
	dynsym[symSize+5] = 0                                // st_other
	binary.LittleEndian.PutUint16(dynsym[symSize+6:], 0xfff1) // st_shndx: SHN_ABS
	binary.LittleEndian.PutUint64(dynsym[symSize+8:], symValue)
	binary.LittleEndian.PutUint64(dynsym[symSize+16:], 0) // st_size

	dynstr := append([]byte{0}, append([]byte(symName), 0)...)
	dynstrOff := dynsymOff + uint64(len(dynsym))

	shstrtab := []byte("\x00.dynsym\x00.dynstr\x00.shstrtab\x00")
	shstrtabOff := align8(dynstrOff + uint64(len(dynstr)))

	shoff := align8(shstrtabOff + uint64(len(shstrtab)))

	buf := make([]byte, shoff+shdrSize*4)

	// e_ident
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT

	binary.LittleEndian.PutUint16(buf[16:], 3)  // e_type = ET_DYN
	binary.LittleEndian.PutUint16(buf[18:], 62) // e_machine = EM_X86_64
	binary.LittleEndian.PutUint32(buf[20:], 1)  // e_version
	binary.LittleEndian.PutUint64(buf[40:], shoff)
	binary.LittleEndian.PutUint16(buf[52:], ehdrSize) // e_ehsize
	binary.LittleEndian.PutUint16(buf[58:], shdrSize) // e_shentsize
	binary.LittleEndian.PutUint16(buf[60:], 4)        // e_shnum
	binary.LittleEndian.PutUint16(buf[62:], 3)        // e_shstrndx

	copy(buf[dynsymOff:], dynsym)
	copy(buf[dynstrOff:], dynstr)
	copy(buf[shstrtabOff:], shstrtab)

	writeShdr(buf, shoff+shdrSize*0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0) // NULL section
	writeShdr(buf, shoff+shdrSize*1, 1 /* .dynsym */, 11 /* SHT_DYNSYM */, 2, 0,
		dynsymOff, uint64(len(dynsym)), 2 /* link: .dynstr */, 1 /* info: first global */, 8, symSize)
	writeShdr(buf, shoff+shdrSize*2, 9 /* .dynstr */, 3 /* SHT_STRTAB */, 2, 0,
		dynstrOff, uint64(len(dynstr)), 0, 0, 1, 0)
	writeShdr(buf, shoff+shdrSize*3, 17 /* .shstrtab */, 3 /* SHT_STRTAB */, 0, 0,
		shstrtabOff, uint64(len(shstrtab)), 0, 0, 1, 0)

	path := filepath.Join(t.TempDir(), "libfixture.so")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func align8(v uint64) uint64 {
	return (v + 7) &^ 7
}

func writeShdr(buf []byte, off uint64, name, typ uint32, flags, addr, offset, size uint64, link, info uint32, addralign, entsize uint64) {
	binary.LittleEndian.PutUint32(buf[off+0:], name)
	binary.LittleEndian.PutUint32(buf[off+4:], typ)
	binary.LittleEndian.PutUint64(buf[off+8:], flags)
	binary.LittleEndian.PutUint64(buf[off+16:], addr)
	binary.LittleEndian.PutUint64(buf[off+24:], offset)
	binary.LittleEndian.PutUint64(buf[off+32:], size)
	binary.LittleEndian.PutUint32(buf[off+40:], link)
	binary.LittleEndian.PutUint32(buf[off+44:], info)
	binary.LittleEndian.PutUint64(buf[off+48:], addralign)
	binary.LittleEndian.PutUint64(buf[off+56:], entsize)
}

func TestReadFindsDynamicSymbol(t *testing.T) {
	path := buildMinimalSO(t, "do_work", 0x1234)

	tbl, err := Read(path)
	require.NoError(t, err)

	v, ok := tbl.Lookup("do_work")
	require.True(t, ok)
	require.Equal(t, uint64(0x1234), v)
}

func TestReadStripsVersionSuffix(t *testing.T) {
	path := buildMinimalSO(t, "do_work@@GLIBC_2.2.5", 0x4000)

	tbl, err := Read(path)
	require.NoError(t, err)

	v, ok := tbl.Lookup("do_work")
	require.True(t, ok)
	require.Equal(t, uint64(0x4000), v)

	v, ok = tbl.Lookup("do_work@@GLIBC_2.2.5")
	require.True(t, ok)
	require.Equal(t, uint64(0x4000), v)
}

func TestReadMissingSymbol(t *testing.T) {
	path := buildMinimalSO(t, "do_work", 0x1234)

	tbl, err := Read(path)
	require.NoError(t, err)

	_, ok := tbl.Lookup("no_such_symbol")
	require.False(t, ok)
}

func TestReadNonELFFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-elf")
	require.NoError(t, os.WriteFile(path, []byte("not an elf file"), 0o644))

	_, err := Read(path)
	require.Error(t, err)
}

func TestStripVersion(t *testing.T) {
	cases := []struct {
		in       string
		wantBase string
		wantOK   bool
	}{
		{"plain", "plain", false},
		{"foo@@GLIBC_2.2.5", "foo", true},
		{"foo@GLIBC_PRIVATE", "foo", true},
	}
	for _, c := range cases {
		base, ok := stripVersion(c.in)
		require.Equal(t, c.wantOK, ok)
		require.Equal(t, c.wantBase, base)
	}
}
