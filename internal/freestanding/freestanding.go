// Package freestanding exports the handful of libc symbols a
// -buildmode=c-shared archive linked without its platform's normal libc
// still needs at load time. This system otherwise assumes a normal
// dynamically linked C runtime is present, but some minimal/musl/
// static-libc target environments strip even these, so this package exists
// as an opt-in extension, built only under the "freestanding" tag.
//
// __gxx_personality_v0 takes the same "don't support real exception
// handling, just stop" posture as a halting stub would in an emulator: with
// nothing to halt here, it is simply inert.
//
//go:build freestanding

package freestanding

import "C"

import "unsafe"

//export memset
func memset(dst unsafe.Pointer, c C.int, n C.size_t) unsafe.Pointer {
	b := unsafe.Slice((*byte)(dst), int(n))
	fill := byte(c)
	for i := range b {
		b[i] = fill
	}
	return dst
}

//export memcpy
func memcpy(dst, src unsafe.Pointer, n C.size_t) unsafe.Pointer {
	copy(unsafe.Slice((*byte)(dst), int(n)), unsafe.Slice((*byte)(src), int(n)))
	return dst
}

//export memmove
func memmove(dst, src unsafe.Pointer, n C.size_t) unsafe.Pointer {
	// Go's copy is already safe for overlapping byte slices, unlike memcpy.
	copy(unsafe.Slice((*byte)(dst), int(n)), unsafe.Slice((*byte)(src), int(n)))
	return dst
}

//export memcmp
func memcmp(a, b unsafe.Pointer, n C.size_t) C.int {
	sa := unsafe.Slice((*byte)(a), int(n))
	sb := unsafe.Slice((*byte)(b), int(n))
	for i := range sa {
		if sa[i] != sb[i] {
			if sa[i] < sb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

//export bcmp
func bcmp(a, b unsafe.Pointer, n C.size_t) C.int {
	return memcmp(a, b, n)
}

// __gxx_personality_v0 and __cxa_begin_catch's freestanding counterpart are
// not implemented: this system never unwinds C++ exceptions across the
// patched prologues it installs, so a personality routine that is ever
// actually invoked indicates something this system does not support. It
// returns a nonzero "no handler found" style result rather than attempting
// any real unwinding.

//export __gxx_personality_v0
func gxxPersonalityV0() C.int {
	return 1
}
