// Package procmem provides the raw, unchecked memory reads the link-map
// walker and rendezvous reader need to interpret structures owned by the
// dynamic linker rather than by this process's Go runtime.
//
// The link map is read without locking; the CONSISTENT state check is the
// only synchronization available, so these reads are deliberately
// unsynchronized and unchecked: there is no Go value on the other end to
// race with, only memory the linker owns.
package procmem

import "unsafe"

// ReadUintptr reads a pointer-sized word at addr.
func ReadUintptr(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

// WriteUintptr writes a pointer-sized word at addr. Its only caller is
// rendezvous.Debug.SetMapHeadForTest, which tests use to build synthetic
// rendezvous structures; the hook installer writes code through
// WriteBytes instead.
func WriteUintptr(addr uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v
}

// WriteBytes copies data into memory starting at addr, one byte at a time.
// This is the Code Patcher's only write primitive: the caller is expected to
// have already made [addr, addr+len(data)) writable.
func WriteBytes(addr uintptr, data []byte) {
	for i, b := range data {
		*(*byte)(unsafe.Pointer(addr + uintptr(i))) = b
	}
}

// ReadUint32 reads a 32-bit word at addr.
func ReadUint32(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}

// ReadCString reads a NUL-terminated C string starting at addr, returning ""
// for a null pointer.
func ReadCString(addr uintptr) string {
	if addr == 0 {
		return ""
	}
	var buf []byte
	for i := uintptr(0); ; i++ {
		b := *(*byte)(unsafe.Pointer(addr + i))
		if b == 0 {
			break
		}
		buf = append(buf, b)
		if len(buf) > 1<<20 {
			// Runaway read guard: a real path never approaches this length.
			break
		}
	}
	return string(buf)
}
