// Package rendezvous models the dynamic linker's debug rendezvous structure:
// a process-wide record through which the linker exposes its state and the
// list of loaded objects (the "link map") to debuggers and introspection
// tools such as this shim.
//
// Locate tries the conventional _r_debug symbol first, then falls back to
// the _dl_debug_addr indirection. Fields are exposed only as safe
// value-typed accessors over the pointer-owned structure, never as a raw
// struct callers could mutate.
package rendezvous

import (
	"fmt"

	"github.com/shimguin/shimguin-go/internal/cbridge"
	"github.com/shimguin/shimguin-go/internal/procmem"
)

// State enumerates the three states of the rendezvous structure. Patching is
// only valid while State == Consistent.
type State int32

const (
	// Consistent means the link map is fully formed and safe to walk.
	Consistent State = 0
	// Add means the linker is in the middle of adding an object.
	Add State = 1
	// Delete means the linker is in the middle of removing an object.
	Delete State = 2
)

func (s State) String() string {
	switch s {
	case Consistent:
		return "CONSISTENT"
	case Add:
		return "ADD"
	case Delete:
		return "DELETE"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Debug is a read-only view over the dynamic linker's r_debug structure.
// Fields are read live from process memory on every access; this type never
// owns or copies the structure, since it is not owned by this process's
// code and must not be mutated outside of installing the hook.
type Debug struct {
	addr uintptr
}

// Locator resolves the address of the rendezvous structure. Two real
// strategies exist: the conventional `_r_debug` symbol, or the
// `_dl_debug_addr` indirection whose value is itself a pointer to the
// structure. Expressed as an interface so other platforms' conventions
// (DT_DEBUG, DT_MIPS_RLD_MAP) can be added without touching callers.
type Locator interface {
	// Locate returns the address of the r_debug structure, or an error if
	// this strategy's symbol isn't present in the default scope.
	Locate() (uintptr, error)
}

// directSymbolLocator resolves the rendezvous structure directly via the
// conventional `_r_debug` symbol.
type directSymbolLocator struct{ symbol string }

func (l directSymbolLocator) Locate() (uintptr, error) {
	addr := cbridge.Dlsym(l.symbol)
	if addr == 0 {
		return 0, fmt.Errorf("rendezvous: symbol %q not found in default scope", l.symbol)
	}
	return addr, nil
}

// indirectSymbolLocator resolves the rendezvous structure through a pointer
// symbol: the symbol's value, read as a pointer-sized word, is the address
// of the structure.
type indirectSymbolLocator struct{ symbol string }

func (l indirectSymbolLocator) Locate() (uintptr, error) {
	ptrAddr := cbridge.Dlsym(l.symbol)
	if ptrAddr == 0 {
		return 0, fmt.Errorf("rendezvous: indirection symbol %q not found in default scope", l.symbol)
	}
	addr := procmem.ReadUintptr(ptrAddr)
	if addr == 0 {
		return 0, fmt.Errorf("rendezvous: indirection symbol %q resolved to null", l.symbol)
	}
	return addr, nil
}

// DefaultLocators is the ordered list of strategies Locate tries: _r_debug
// first, then the _dl_debug_addr indirection.
var DefaultLocators = []Locator{
	directSymbolLocator{symbol: "_r_debug"},
	indirectSymbolLocator{symbol: "_dl_debug_addr"},
}

// Locate finds the rendezvous structure by trying each of DefaultLocators in
// order. If none succeed, the system cannot operate and this is a fatal
// load-time error.
func Locate() (*Debug, error) {
	return LocateWith(DefaultLocators)
}

// LocateWith tries an explicit ordered list of locators, useful for tests
// that substitute synthetic strategies.
func LocateWith(locators []Locator) (*Debug, error) {
	var errs []error
	for _, l := range locators {
		addr, err := l.Locate()
		if err == nil {
			return &Debug{addr: addr}, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("rendezvous: no locator succeeded: %v", errs)
}

// FromAddr wraps an already-known rendezvous address. Used by tests that
// build a synthetic r_debug in a byte buffer.
func FromAddr(addr uintptr) *Debug {
	return &Debug{addr: addr}
}

// SetMapHeadForTest writes r_debug.r_map through d's own address. It exists
// so callers outside this package (internal/linkmap's tests) can build a
// synthetic rendezvous structure without duplicating this package's
// per-architecture field offsets.
func (d *Debug) SetMapHeadForTest(v uintptr) {
	procmem.WriteUintptr(d.addr+mapOffset, v)
}

// Addr returns the address of the underlying r_debug structure.
func (d *Debug) Addr() uintptr {
	return d.addr
}

// Version returns r_debug.r_version.
func (d *Debug) Version() int32 {
	return int32(procmem.ReadUint32(d.addr + versionOffset))
}

// MapHead returns the head of the link-map list (r_debug.r_map).
func (d *Debug) MapHead() uintptr {
	return procmem.ReadUintptr(d.addr + mapOffset)
}

// Brk returns the code address the linker calls on state transitions
// (r_debug.r_brk). This is the only field the system ever writes to, and
// only to install the Rendezvous Hook's trampoline.
func (d *Debug) Brk() uintptr {
	return procmem.ReadUintptr(d.addr + brkOffset)
}

// State returns the current rendezvous state.
func (d *Debug) State() State {
	return State(int32(procmem.ReadUint32(d.addr + stateOffset)))
}

// LDBase returns the dynamic linker's own load address (r_debug.r_ldbase).
func (d *Debug) LDBase() uintptr {
	return procmem.ReadUintptr(d.addr + ldbaseOffset)
}
