// Package resolver finds the runtime address a replacement function name
// resolves to, trying the cheap cgo dlsym path first and falling back to a
// link-map walk plus per-object ELF symbol lookup when dlsym finds nothing.
// The fallback composes internal/linkmap and internal/elfsym, both
// otherwise only exercised by the patch pass itself.
package resolver

import (
	"fmt"

	"github.com/shimguin/shimguin-go/internal/cbridge"
	"github.com/shimguin/shimguin-go/internal/elfsym"
	"github.com/shimguin/shimguin-go/internal/linkmap"
	"github.com/shimguin/shimguin-go/internal/rendezvous"
)

// ErrNotFound means neither strategy located name.
var ErrNotFound = fmt.Errorf("resolver: symbol not found in default scope or link map")

// Resolve returns the runtime address of name. It first tries dlsym against
// the default symbol scope (RTLD_DEFAULT); if that fails it walks the link
// map and searches each loaded object's dynamic symbol table, returning
// load_bias + st_value on the first hit. The fallback locates the rendezvous
// structure through rendezvous.Locate, which itself uses dlsym, so in a
// build without cgo Resolve always returns an error; ResolveFallback with an
// already-known Debug does not depend on cgo.
func Resolve(name string) (uintptr, error) {
	if addr := cbridge.Dlsym(name); addr != 0 {
		return addr, nil
	}

	d, err := rendezvous.Locate()
	if err != nil {
		return 0, fmt.Errorf("resolver: fallback locate: %w", err)
	}
	return ResolveFallback(d, name)
}

// ResolveFallback performs only the link-map-walk fallback strategy,
// exposed separately so tests can drive it against a synthetic rendezvous
// structure without depending on a real dlsym.
func ResolveFallback(d *rendezvous.Debug, name string) (uintptr, error) {
	for _, obj := range linkmap.Walk(d) {
		if obj.Path == "" {
			continue
		}
		tbl, err := elfsym.Read(obj.Path)
		if err != nil {
			continue
		}
		if v, ok := tbl.Lookup(name); ok {
			return obj.LoadBias + uintptr(v), nil
		}
	}
	return 0, ErrNotFound
}
