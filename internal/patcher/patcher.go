// Package patcher performs the R+W/R+X code-page transition around writing
// trampoline bytes into a loaded shared object's executable pages,
// including the case where the write straddles a page boundary, and flushes
// the instruction cache once the write completes.
package patcher

import (
	"fmt"

	"github.com/shimguin/shimguin-go/internal/cbridge"
	"github.com/shimguin/shimguin-go/internal/procmem"
)

// Write overwrites the len(code) bytes at pc with code, temporarily mapping
// the containing page (or two, if code straddles a page boundary) R+W and
// restoring R+X on every exit path, success or failure.
func Write(pc uintptr, code []byte) error {
	if len(code) == 0 {
		return nil
	}

	pageBase, protectLen := plan(pc, len(code), cbridge.PageSize())

	if err := cbridge.Mprotect(pageBase, protectLen, cbridge.ProtRead|cbridge.ProtWrite); err != nil {
		return fmt.Errorf("patcher: mprotect R+W at 0x%x: %w", pageBase, err)
	}

	procmem.WriteBytes(pc, code)

	cbridge.ClearICache(pc, pc+uintptr(len(code)))

	if err := cbridge.Mprotect(pageBase, protectLen, cbridge.ProtRead|cbridge.ProtExec); err != nil {
		return fmt.Errorf("patcher: mprotect R+X at 0x%x: %w", pageBase, err)
	}
	return nil
}

// plan computes the page-aligned base address and total length to mprotect
// for a write of n bytes at pc, mapping a second page only when the write
// would otherwise cross the first page's end.
func plan(pc uintptr, n int, pageSize uintptr) (pageBase, protectLen uintptr) {
	pageBase = alignDown(pc, pageSize)
	pageEnd := pageBase + pageSize
	spanEnd := pc + uintptr(n)

	protectLen = pageSize
	if spanEnd > pageEnd {
		protectLen = alignUp(spanEnd, pageSize) - pageBase
	}
	return pageBase, protectLen
}

func alignDown(v, align uintptr) uintptr {
	return v &^ (align - 1)
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}
