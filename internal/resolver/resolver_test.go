package resolver

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/shimguin/shimguin-go/internal/rendezvous"
	"github.com/stretchr/testify/require"
)

// buildMinimalSO is the same fixture-builder approach internal/elfsym's own
// tests use, duplicated here (rather than imported) since it writes directly
// to unexported layout knowledge that belongs to the test, not to either
// package's public surface.
func buildMinimalSO(t *testing.T, symName string, symValue uint64) string {
	t.Helper()

	const (
		ehdrSize = 64
		symSize  = 24
		shdrSize = 64
	)

	dynsymOff := uint64(ehdrSize)
	dynsym := make([]byte, symSize*2)
	binary.LittleEndian.PutUint32(dynsym[symSize+0:], 1)
	dynsym[symSize+4] = 0x12
	binary.LittleEndian.PutUint16(dynsym[symSize+6:], 0xfff1)
	binary.LittleEndian.PutUint64(dynsym[symSize+8:], symValue)

	dynstr := append([]byte{0}, append([]byte(symName), 0)...)
	dynstrOff := dynsymOff + uint64(len(dynsym))

	shstrtab := []byte("\x00.dynsym\x00.dynstr\x00.shstrtab\x00")
	shstrtabOff := align8(dynstrOff + uint64(len(dynstr)))
	shoff := align8(shstrtabOff + uint64(len(shstrtab)))

	buf := make([]byte, shoff+shdrSize*4)
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 2
	buf[5] = 1
	buf[6] = 1
	binary.LittleEndian.PutUint16(buf[16:], 3)
	binary.LittleEndian.PutUint16(buf[18:], 62)
	binary.LittleEndian.PutUint32(buf[20:], 1)
	binary.LittleEndian.PutUint64(buf[40:], shoff)
	binary.LittleEndian.PutUint16(buf[52:], ehdrSize)
	binary.LittleEndian.PutUint16(buf[58:], shdrSize)
	binary.LittleEndian.PutUint16(buf[60:], 4)
	binary.LittleEndian.PutUint16(buf[62:], 3)

	copy(buf[dynsymOff:], dynsym)
	copy(buf[dynstrOff:], dynstr)
	copy(buf[shstrtabOff:], shstrtab)

	writeShdr(buf, shoff+shdrSize*0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	writeShdr(buf, shoff+shdrSize*1, 1, 11, 2, 0, dynsymOff, uint64(len(dynsym)), 2, 1, 8, symSize)
	writeShdr(buf, shoff+shdrSize*2, 9, 3, 2, 0, dynstrOff, uint64(len(dynstr)), 0, 0, 1, 0)
	writeShdr(buf, shoff+shdrSize*3, 17, 3, 0, 0, shstrtabOff, uint64(len(shstrtab)), 0, 0, 1, 0)

	path := filepath.Join(t.TempDir(), "libfixture.so")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func align8(v uint64) uint64 { return (v + 7) &^ 7 }

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

// fakeNode mirrors internal/linkmap's own test helper: a byte buffer shaped
// like the leading prefix of struct link_map.
type fakeNode struct {
	buf     []byte
	nameBuf []byte
	addr    uintptr
}

func newFakeNode(path string) *fakeNode {
	n := &fakeNode{buf: make([]byte, 64)}
	n.addr = uintptr(unsafe.Pointer(&n.buf[0]))
	n.nameBuf = append([]byte(path), 0)
	n.setPtr(nameOffsetForTest, uintptr(unsafe.Pointer(&n.nameBuf[0])))
	return n
}

func (n *fakeNode) setPtr(off uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(n.addr + off)) = v
}

// These mirror internal/linkmap's layout_64.go constants for the
// architecture family this test suite runs under in CI (amd64); the
// resolver fallback path is architecture-agnostic logic, so exercising it
// against one concrete layout is sufficient.
const (
	addrOffsetForTest = 0
	nameOffsetForTest = 8
	nextOffsetForTest = 24
)

func TestResolveFallbackFindsSymbolInLoadedObject(t *testing.T) {
	path := buildMinimalSO(t, "replacement_fn", 0x2000)

	node := newFakeNode(path)
	node.setPtr(addrOffsetForTest, 0x10000)
	node.setPtr(nextOffsetForTest, 0)

	debugBuf := make([]byte, 64)
	d := rendezvous.FromAddr(uintptr(unsafe.Pointer(&debugBuf[0])))
	d.SetMapHeadForTest(node.addr)

	addr, err := ResolveFallback(d, "replacement_fn")
	require.NoError(t, err)
	require.Equal(t, uintptr(0x10000+0x2000), addr)
}

func TestResolveFallbackNotFound(t *testing.T) {
	path := buildMinimalSO(t, "replacement_fn", 0x2000)

	node := newFakeNode(path)
	node.setPtr(addrOffsetForTest, 0x10000)
	node.setPtr(nextOffsetForTest, 0)

	debugBuf := make([]byte, 64)
	d := rendezvous.FromAddr(uintptr(unsafe.Pointer(&debugBuf[0])))
	d.SetMapHeadForTest(node.addr)

	_, err := ResolveFallback(d, "no_such_symbol")
	require.ErrorIs(t, err, ErrNotFound)
}
