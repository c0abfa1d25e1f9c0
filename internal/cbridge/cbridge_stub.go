//go:build !cgo

// This file backs the non-cgo test configuration: a shim built without cgo
// cannot call dlsym or mprotect, so it cannot patch anything real, but the
// link-map/ELF-parsing/trampoline logic in the rest of the module can still
// be exercised against synthetic fixtures without a real dynamic linker
// present.
package cbridge

import "fmt"

const (
	ProtRead  = 1
	ProtWrite = 2
	ProtExec  = 4
)

// Dlsym always fails without cgo: there is no libc to call into.
func Dlsym(name string) uintptr {
	return 0
}

// Mprotect always fails without cgo.
func Mprotect(addr uintptr, length uintptr, prot int) error {
	return fmt.Errorf("cbridge: mprotect unavailable without cgo")
}

// ClearICache is a no-op without cgo.
func ClearICache(beg, end uintptr) {}

// PageSize returns the conventional 4KiB page size as a stand-in when cgo
// (and therefore sysconf) is unavailable.
func PageSize() uintptr {
	return 4096
}

// SetActiveResume is a no-op without cgo: there is no trampoline that could
// ever dispatch to it.
func SetActiveResume(fn func()) {}

// ResumeTrampolineAddr always returns 0 without cgo.
func ResumeTrampolineAddr() uintptr {
	return 0
}
