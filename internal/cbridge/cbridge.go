// Package cbridge is the shim's single FFI boundary into the C runtime: it
// resolves symbols via dlsym(3), changes page protection via mprotect(2),
// and flushes instruction caches on architectures that need it. Every other
// package talks to the host process only through this package, kept as one
// scoped primitive around the R+W<->R+X transition and the choke point for
// dlsym, so no other component needs its own cgo preamble.
//
// Built only with cgo enabled (the shim is meaningless without it: a shared
// object that cannot call dlsym or mprotect cannot patch anything). A build
// without cgo selects cbridge_stub.go instead, a stub implementation of this
// package, for unit testing the pure-Go logic (rule parsing, link-map
// traversal, trampoline encoding) without a real dynamic linker present.
//go:build cgo

package cbridge

/*
#include <dlfcn.h>
#include <sys/mman.h>
#include <stdint.h>
#include <string.h>
#include <unistd.h>
#include <stdlib.h>

// rtld_default_lookup wraps dlsym(RTLD_DEFAULT, name) so cgo doesn't need to
// reason about the RTLD_DEFAULT macro's type on the Go side.
static void *rtld_default_lookup(const char *name) {
	return dlsym(RTLD_DEFAULT, name);
}

static int do_mprotect(void *addr, size_t len, int prot) {
	return mprotect(addr, len, prot);
}

#if defined(__arm__) || defined(__aarch64__)
extern void __clear_cache(void *beg, void *end);
static void clear_icache(void *beg, void *end) {
	__clear_cache(beg, end);
}
#elif defined(__mips__)
static void clear_icache(void *beg, void *end) {
	__builtin___clear_cache((char *)beg, (char *)end);
}
#else
static void clear_icache(void *beg, void *end) {
	(void)beg;
	(void)end;
}
#endif

// goResumeDispatch is defined below with //export; this forward declaration
// lets resume_trampoline_addr take its address as a plain C function pointer
// so the rendezvous hook trampoline has a real, stable code address to jump
// to (a Go closure has no such address).
extern void goResumeDispatch(void);

static void *resume_trampoline_addr(void) {
	return (void *)goResumeDispatch;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Dlsym resolves name in the default symbol scope (RTLD_DEFAULT), searching
// loaded objects in load order. Returns 0 if not found.
func Dlsym(name string) uintptr {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	ptr := C.rtld_default_lookup(cname)
	return uintptr(ptr)
}

// Protection flags, mirroring PROT_READ/PROT_WRITE/PROT_EXEC so callers
// don't need their own cgo import just to name a protection mode.
const (
	ProtRead  = int(C.PROT_READ)
	ProtWrite = int(C.PROT_WRITE)
	ProtExec  = int(C.PROT_EXEC)
)

// Mprotect changes the protection of the page(s) containing [addr, addr+len)
// to prot. Any failure is fatal to the caller: a partial protection change
// leaves the process in an undefined state.
func Mprotect(addr uintptr, length uintptr, prot int) error {
	res := C.do_mprotect(unsafe.Pointer(addr), C.size_t(length), C.int(prot))
	if res != 0 {
		return fmt.Errorf("cbridge: mprotect(0x%x, %d, %d) failed", addr, length, prot)
	}
	return nil
}

// ClearICache flushes the instruction cache for [beg, end) on architectures
// that require it for self-modifying code to be observed by the CPU's
// fetch pipeline (arm, arm64, mips). A no-op on x86-64, where the hardware keeps
// the I-cache coherent with stores.
func ClearICache(beg, end uintptr) {
	C.clear_icache(unsafe.Pointer(beg), unsafe.Pointer(end))
}

// PageSize returns the runtime page size. Unlike dlsym/mprotect, a page-size
// query has no pointer-shaped ABI mismatch across platforms, so this one
// call goes through golang.org/x/sys/unix rather than the cgo preamble.
func PageSize() uintptr {
	return uintptr(unix.Getpagesize())
}

var (
	resumeMu     sync.Mutex
	activeResume func()
)

// SetActiveResume registers the Go function the rendezvous hook trampoline
// dispatches to. internal/rendezvous.Install calls this before patching
// r_brk so that by the time the linker ever jumps to the trampoline, a
// handler is already registered.
func SetActiveResume(fn func()) {
	resumeMu.Lock()
	activeResume = fn
	resumeMu.Unlock()
}

// ResumeTrampolineAddr returns the address of goResumeDispatch, the one
// stable C-callable entrypoint every rendezvous hook trampoline targets.
func ResumeTrampolineAddr() uintptr {
	return uintptr(C.resume_trampoline_addr())
}

//export goResumeDispatch
func goResumeDispatch() {
	resumeMu.Lock()
	fn := activeResume
	resumeMu.Unlock()
	if fn != nil {
		fn()
	}
}
