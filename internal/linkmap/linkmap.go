// Package linkmap walks the dynamic linker's runtime link map: the
// doubly-linked (though this walker only follows l_next) list of loaded
// shared objects reachable from the rendezvous structure's r_map field.
// Object exposes only a safe, value-typed view over the pointer-owned
// structure, never aliasing the underlying process memory past the call
// that produced it.
package linkmap

import (
	"github.com/shimguin/shimguin-go/internal/procmem"
	"github.com/shimguin/shimguin-go/internal/rendezvous"
)

// Object is a value-typed view of one loaded-object descriptor: the
// filesystem path backing it and the load bias to add to its on-disk
// virtual addresses to obtain runtime addresses. It is a snapshot, not a
// live pointer — walking again may yield a different set if libraries have
// been loaded or unloaded meanwhile.
type Object struct {
	Path     string
	LoadBias uintptr
}

// Walk performs a straightforward forward traversal of the link map
// starting at d.MapHead(), following l_next links until null, yielding one
// Object per node. The walker never mutates the list and never follows
// l_prev.
func Walk(d *rendezvous.Debug) []Object {
	var objects []Object
	for node := d.MapHead(); node != 0; node = procmem.ReadUintptr(node + nextOffset) {
		objects = append(objects, Object{
			Path:     procmem.ReadCString(procmem.ReadUintptr(node + nameOffset)),
			LoadBias: procmem.ReadUintptr(node + addrOffset),
		})
	}
	return objects
}

// Eligible reports whether an Object should be patched: its path must be
// non-empty and must not be in the deny list. Entries with empty paths (the
// main executable, vDSO in some configurations) and deny-listed pseudo-names
// are skipped.
func Eligible(o Object, denyList map[string]bool) bool {
	if o.Path == "" {
		return false
	}
	return !denyList[o.Path]
}
